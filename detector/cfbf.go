package detector

import (
	"bytes"
	"encoding/binary"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

var (
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	typeCFB  = Type{"cfb", "application/x-cfb"}

	// {000C1084-0000-0000-C000-000000000046} in its on-disk byte order
	msiCLSID = []byte{0x84, 0x10, 0x0C, 0x00, 0x00, 0x00, 0x00, 0x00, 0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46}
)

// Compound file constants
const (
	cfbHeaderSize    = 512
	cfbDirEntrySize  = 128
	cfbHeaderDIFAT   = 109
	cfbMaxRegSector  = 0xFFFFFFFA
	cfbEndOfChain    = 0xFFFFFFFE
	cfbTypeRoot      = 5
	cfbMaxNameLength = 64
)

// cfbHeader holds the compound file header fields needed to walk the directory
type cfbHeader struct {
	sectorShift uint16
	firstDir    uint32
	fatSectors  []uint32 // from the header DIFAT only
}

func (h *cfbHeader) sectorSize() int64 {
	return 1 << h.sectorShift
}

func (h *cfbHeader) sectorOffset(sector uint32) int64 {
	return (int64(sector) + 1) << h.sectorShift
}

// CFBF identifies legacy Office documents, Outlook messages and installer
// packages stored in the Compound File Binary Format (OLE2). It reads the
// directory stream names and the root storage class id.
type CFBF struct{}

// NewCFBF creates the compound file detector
func NewCFBF() *CFBF {
	return &CFBF{}
}

// Name implements Detector
func (d *CFBF) Name() string {
	return "cfbf"
}

// Detect implements Detector
func (d *CFBF) Detect(w *Window) (Type, error) {
	if !w.Has(0, cfbMagic) {
		return Unknown, nil
	}
	hdr, err := readCFBHeader(w)
	if err != nil {
		return Unknown, err
	}

	var (
		names   []string
		rootMSI bool
	)
	err = walkCFBDirectory(w, hdr, func(name string, typ byte, clsid []byte) {
		names = append(names, name)
		if typ == cfbTypeRoot && bytes.Equal(clsid, msiCLSID) {
			rootMSI = true
		}
	})
	// A broken chain after the first sector still leaves usable names
	if err != nil && (!IsNoMatch(err) || len(names) == 0) {
		return Unknown, err
	}
	return classifyCFB(names, rootMSI), nil
}

func classifyCFB(names []string, rootMSI bool) Type {
	has := func(want ...string) bool {
		for _, n := range names {
			for _, w := range want {
				if n == w {
					return true
				}
			}
		}
		return false
	}

	switch {
	case has("WordDocument"):
		return Type{"doc", "application/msword"}
	case has("Workbook", "Book"):
		return Type{"xls", "application/vnd.ms-excel"}
	case has("PowerPoint Document"):
		return Type{"ppt", "application/vnd.ms-powerpoint"}
	case has("VisioDocument"):
		return Type{"vsd", "application/vnd.visio"}
	}
	for _, n := range names {
		if strings.HasPrefix(n, "__substg1.0_") {
			return Type{"msg", "application/vnd.ms-outlook"}
		}
	}
	if rootMSI {
		return Type{"msi", "application/x-msi"}
	}
	return typeCFB
}

func readCFBHeader(w *Window) (*cfbHeader, error) {
	raw, err := w.ReadAt(0, cfbHeaderSize)
	if err != nil {
		return nil, err
	}
	le := binary.LittleEndian

	if le.Uint16(raw[28:30]) != 0xFFFE {
		return nil, malformed("cfbf", "invalid byte order mark")
	}
	hdr := &cfbHeader{
		sectorShift: le.Uint16(raw[30:32]),
		firstDir:    le.Uint32(raw[48:52]),
	}
	if hdr.sectorShift != 9 && hdr.sectorShift != 12 {
		return nil, malformed("cfbf", "unsupported sector shift %d", hdr.sectorShift)
	}

	n := min(int(le.Uint32(raw[44:48])), cfbHeaderDIFAT)
	for i := range n {
		off := 76 + i*4
		hdr.fatSectors = append(hdr.fatSectors, le.Uint32(raw[off:off+4]))
	}
	return hdr, nil
}

// nextSector follows the FAT chain one step
func nextSector(w *Window, hdr *cfbHeader, sector uint32) (uint32, error) {
	perSector := uint32(hdr.sectorSize() / 4)
	idx := sector / perSector
	if int(idx) >= len(hdr.fatSectors) {
		return 0, malformed("cfbf", "sector %d is outside the header FAT", sector)
	}
	fat := hdr.fatSectors[idx]
	if fat >= cfbMaxRegSector {
		return 0, malformed("cfbf", "FAT sector %d is not allocated", idx)
	}
	return w.Uint32(hdr.sectorOffset(fat)+int64(sector%perSector)*4, binary.LittleEndian)
}

// walkCFBDirectory calls fn for every used directory entry. The chain is
// bounded by MaxDirSectors.
func walkCFBDirectory(w *Window, hdr *cfbHeader, fn func(name string, typ byte, clsid []byte)) error {
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	visited := make(map[uint32]struct{})
	limit := w.Limits().MaxDirSectors

	sector := hdr.firstDir
	for sector != cfbEndOfChain {
		if sector >= cfbMaxRegSector {
			return malformed("cfbf", "invalid directory sector %#x", sector)
		}
		if _, ok := visited[sector]; ok {
			return malformed("cfbf", "directory chain loops at sector %d", sector)
		}
		if len(visited) >= limit {
			break
		}
		visited[sector] = struct{}{}

		data, err := w.ReadAt(hdr.sectorOffset(sector), int(hdr.sectorSize()))
		if err != nil {
			return err
		}
		for off := 0; off+cfbDirEntrySize <= len(data); off += cfbDirEntrySize {
			entry := data[off : off+cfbDirEntrySize]
			typ := entry[66]
			if typ == 0 {
				continue
			}
			nameLen := min(int(binary.LittleEndian.Uint16(entry[64:66])), cfbMaxNameLength)
			if nameLen < 2 {
				continue
			}
			// name length counts the terminating null character
			name, err := decoder.Bytes(entry[:nameLen-2])
			if err != nil {
				continue
			}
			fn(string(name), typ, entry[80:96])
		}

		sector, err = nextSector(w, hdr, sector)
		if err != nil {
			return err
		}
	}
	return nil
}
