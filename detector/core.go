package detector

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

var (
	typeMP3  = Type{"mp3", "audio/mpeg"}
	typeMPEG = Type{"mpg", "video/mpeg"}
	typeMOV  = Type{"mov", "video/quicktime"}
	typeTAR  = Type{"tar", "application/x-tar"}
	typeTIFF = Type{"tif", "image/tiff"}
)

const (
	// maxID3Tags caps how many consecutive ID3 tags are skipped
	maxID3Tags = 8

	maxTIFFTags     = 512
	maxPNGChunks    = 64
	maxEBMLChildren = 64
	asfHeaderWindow = 1024
)

// Core is the built-in signature matcher. It walks a priority-ordered magic
// table; the first matching entry wins.
type Core struct {
	table []Signature
}

// NewCore creates the core matcher. Inputs starting with a ZIP header are
// handed to zip for sub-typing; a nil zip reports every archive as plain zip.
func NewCore(zip Detector) *Core {
	c := &Core{}
	c.table = c.signatures(zip)
	return c
}

// Name implements Detector
func (c *Core) Name() string {
	return "core"
}

// Detect implements Detector
func (c *Core) Detect(w *Window) (Type, error) {
	// Surface a failing source once instead of letting every signature
	// silently miss
	if _, err := w.Prefix(); err != nil && !IsNoMatch(err) {
		return Unknown, err
	}

	for i := range c.table {
		sig := &c.table[i]
		if !sig.match(w) {
			continue
		}
		if sig.Refine == nil {
			return sig.Type, nil
		}

		t, err := sig.Refine(w)
		switch {
		case err != nil && !IsNoMatch(err):
			return Unknown, err
		case err == nil && !t.IsUnknown():
			return t, nil
		case !sig.Type.IsUnknown():
			return sig.Type, nil
		}
	}
	return Unknown, nil
}

// id3Size decodes the 28-bit sync-safe tag size of the ID3 header at the
// start of w, including the 10 byte header itself
func id3Size(w *Window) (int64, bool) {
	b, err := w.ReadAt(6, 4)
	if err != nil {
		return 0, false
	}
	n := uint32(b[0]&0x7F)<<21 | uint32(b[1]&0x7F)<<14 | uint32(b[2]&0x7F)<<7 | uint32(b[3]&0x7F)
	return 10 + int64(n), true
}

// afterID3 skips ID3v2 tags and detects what follows. Tags that run past the
// end of the input, or more than maxID3Tags of them, are assumed to belong to
// an mp3. An unrecognised payload stays unknown.
func (c *Core) afterID3(w *Window) (Type, error) {
	next := w
	for range maxID3Tags {
		if !next.HasString(0, "ID3") {
			return c.Detect(next)
		}
		size, ok := id3Size(next)
		if !ok {
			return Unknown, nil
		}
		if s := next.Size(); s >= 0 && size > s {
			return typeMP3, nil
		}
		next = next.Slice(size)
	}
	return typeMP3, nil
}

func postScriptType(w *Window) (Type, error) {
	if w.HasString(2, "PS-Adobe-") && w.HasString(14, " EPSF-") {
		return Type{"eps", "application/eps"}, nil
	}
	return Unknown, nil
}

// tiffType reads the TIFF header and the first IFD to tell camera raw
// formats from plain TIFF
func tiffType(bo binary.ByteOrder) func(w *Window) (Type, error) {
	return func(w *Window) (Type, error) {
		version, err := w.Uint16(2, bo)
		if err != nil {
			return Unknown, err
		}
		switch version {
		case 42:
		case 43:
			// BigTIFF
			return typeTIFF, nil
		default:
			return Unknown, nil
		}

		ifd, err := w.Uint32(4, bo)
		if err != nil {
			return Unknown, err
		}
		if ifd >= 6 && w.HasString(8, "CR") {
			return Type{"cr2", "image/x-canon-cr2"}, nil
		}
		if ifd >= 8 && (w.Has(8, []byte{0x1C, 0x00, 0xFE, 0x00}) || w.Has(8, []byte{0x1F, 0x00, 0x0B, 0x00})) {
			return Type{"nef", "image/x-nikon-nef"}, nil
		}

		count, err := w.Uint16(int64(ifd), bo)
		if err != nil {
			return typeTIFF, nil
		}
		for n := range min(int(count), maxTIFFTags) {
			tag, err := w.Uint16(int64(ifd)+2+int64(n)*12, bo)
			if err != nil {
				break
			}
			switch tag {
			case 50_341:
				return Type{"arw", "image/x-sony-arw"}, nil
			case 50_706:
				return Type{"dng", "image/x-adobe-dng"}, nil
			}
		}
		return typeTIFF, nil
	}
}

// tarType verifies the header checksum of a pre-POSIX tar archive
func tarType(w *Window) (Type, error) {
	header, err := w.ReadAt(0, 512)
	if err != nil {
		return Unknown, err
	}

	field := header[148:154]
	if idx := bytes.IndexByte(field, 0x00); idx > -1 {
		field = field[:idx]
	}
	want, err := strconv.ParseUint(strings.TrimSpace(string(field)), 8, 64)
	if err != nil {
		return Unknown, nil
	}

	// The checksum field itself counts as eight spaces
	sum := uint64(8 * 0x20)
	for _, b := range header[:148] {
		sum += uint64(b)
	}
	for _, b := range header[156:] {
		sum += uint64(b)
	}
	if sum != want {
		return Unknown, nil
	}
	return typeTAR, nil
}

// readVint reads an EBML variable length integer at off and returns it with
// its width in bytes. Element IDs keep their length marker, sizes drop it.
func readVint(w *Window, off int64, keepMarker bool) (uint64, int64, error) {
	first, err := w.ReadAt(off, 1)
	if err != nil {
		return 0, 0, err
	}
	width := bits.LeadingZeros8(first[0]) + 1
	if width > 8 {
		return 0, 0, malformed("ebml", "invalid length marker at offset %d", off)
	}
	raw, err := w.ReadAt(off, width)
	if err != nil {
		return 0, 0, err
	}
	var v uint64
	for _, b := range raw {
		v = v<<8 | uint64(b)
	}
	if !keepMarker {
		v &^= 1 << (7 * width)
	}
	return v, int64(width), nil
}

// ebmlType finds the DocType of the EBML header to tell WebM from Matroska
func ebmlType(w *Window) (Type, error) {
	_, idLen, err := readVint(w, 0, true)
	if err != nil {
		return Unknown, err
	}
	size, sizeLen, err := readVint(w, idLen, false)
	if err != nil {
		return Unknown, err
	}
	if size > math.MaxInt32 {
		return Unknown, malformed("ebml", "header length %d is beyond int32 boundary", size)
	}

	off := idLen + sizeLen
	end := off + int64(size)
	for n := 0; off < end && n < maxEBMLChildren; n++ {
		id, idLen, err := readVint(w, off, true)
		if err != nil {
			return Unknown, err
		}
		l, lLen, err := readVint(w, off+idLen, false)
		if err != nil {
			return Unknown, err
		}
		if l > math.MaxInt32 {
			return Unknown, malformed("ebml", "element length %d is beyond int32 boundary", l)
		}
		off += idLen + lLen

		if id == 0x42_82 {
			raw, err := w.ReadAt(off, int(l))
			if err != nil {
				return Unknown, err
			}
			if idx := bytes.IndexByte(raw, 0x00); idx > -1 {
				raw = raw[:idx]
			}
			switch string(raw) {
			case "webm":
				return Type{"webm", "video/webm"}, nil
			case "matroska":
				return Type{"mkv", "video/x-matroska"}, nil
			}
			return Unknown, nil
		}
		off += int64(l)
	}
	return Unknown, nil
}

// riffType reads the RIFF form type
func riffType(w *Window) (Type, error) {
	switch {
	case w.HasString(8, "AVI"):
		return Type{"avi", "video/vnd.avi"}, nil
	case w.HasString(8, "WAVE"):
		return Type{"wav", "audio/vnd.wave"}, nil
	case w.HasString(8, "QLCM"):
		return Type{"qcp", "audio/qcelp"}, nil
	case w.HasString(8, "WEBP"):
		return Type{"webp", "image/webp"}, nil
	}
	return Unknown, nil
}

// pngType looks for an animation control chunk before the first image data
func pngType(w *Window) (Type, error) {
	off := int64(8)
	for range maxPNGChunks {
		chunk, err := w.ReadAt(off, 8)
		if err != nil {
			return Unknown, err
		}
		length := binary.BigEndian.Uint32(chunk[0:4])
		if length > math.MaxInt32 {
			return Unknown, malformed("png", "invalid chunk length %d", length)
		}
		switch string(chunk[4:8]) {
		case "IDAT":
			return Unknown, nil
		case "acTL":
			return Type{"apng", "image/apng"}, nil
		}
		// Skip chunk data and CRC
		off += 8 + int64(length) + 4
	}
	return Unknown, nil
}

func oggType(w *Window) (Type, error) {
	switch {
	case w.Has(28, []byte("OpusHead")):
		return Type{"opus", "audio/opus"}, nil
	case w.Has(28, []byte{0x80, 't', 'h', 'e', 'o', 'r', 'a'}):
		return Type{"ogv", "video/ogg"}, nil
	case w.Has(28, []byte{0x01, 'v', 'i', 'd', 'e', 'o', 0x00}):
		return Type{"ogm", "video/ogg"}, nil
	case w.Has(28, []byte{0x7F, 'F', 'L', 'A', 'C'}):
		return Type{"oga", "audio/ogg"}, nil
	case w.Has(28, []byte("Speex  ")):
		return Type{"spx", "audio/ogg"}, nil
	case w.Has(28, []byte{0x01, 'v', 'o', 'r', 'b', 'i', 's'}):
		return Type{"ogg", "audio/ogg"}, nil
	}
	return Unknown, nil
}

func jpeg2000Type(w *Window) (Type, error) {
	brand, err := w.ReadAt(20, 4)
	if err != nil {
		return Unknown, err
	}
	switch string(brand) {
	case "jp2 ":
		return Type{"jp2", "image/jp2"}, nil
	case "jpx ":
		return Type{"jpx", "image/jpx"}, nil
	case "jpm ":
		return Type{"jpm", "image/jpm"}, nil
	case "mjp2":
		return Type{"mj2", "image/mj2"}, nil
	}
	return Unknown, nil
}

func debType(w *Window) (Type, error) {
	if w.HasString(8, "debian-binary") {
		return Type{"deb", "application/x-deb"}, nil
	}
	return Unknown, nil
}

// lzhType matches the compression method identifiers of LHA archives
func lzhType(w *Window) (Type, error) {
	method, err := w.ReadAt(2, 5)
	if err != nil {
		return Unknown, err
	}
	switch string(method) {
	case "-lh0-", "-lh1-", "-lh2-", "-lh3-", "-lh4-", "-lh5-", "-lh6-", "-lh7-",
		"-lzs-", "-lz4-", "-lz5-", "-lhd-":
		return Type{"lzh", "application/x-lzh-compressed"}, nil
	}
	return Unknown, nil
}

// mpegStreamType tells MPEG-1 from MPEG-2 program streams by the pack header
func mpegStreamType(w *Window) (Type, error) {
	switch {
	case w.HasMask(4, []byte{0x21}, []byte{0xF1}):
		return Type{"mpg", "video/MP1S"}, nil
	case w.HasMask(4, []byte{0x44}, []byte{0xC4}):
		return Type{"mpg", "video/MP2P"}, nil
	}
	return Unknown, nil
}

// mpegAudioType checks the layer bits of an MPEG audio frame header or
// ADTS header
func mpegAudioType(w *Window) (Type, error) {
	switch {
	case w.HasMask(1, []byte{0x10}, []byte{0x16}):
		return Type{"aac", "audio/aac"}, nil
	case w.HasMask(1, []byte{0x02}, []byte{0x06}):
		return typeMP3, nil
	case w.HasMask(1, []byte{0x04}, []byte{0x06}):
		return Type{"mp2", "audio/mpeg"}, nil
	case w.HasMask(1, []byte{0x06}, []byte{0x06}):
		return Type{"mp1", "audio/mpeg"}, nil
	}
	return Unknown, nil
}

var (
	asfStreamProperties = []byte{0x91, 0x07, 0xDC, 0xB7, 0xB7, 0xA9, 0xCF, 0x11, 0x8E, 0xE6, 0x00, 0xC0, 0x0C, 0x20, 0x53, 0x65}
	asfAudioMedia       = []byte{0x40, 0x9E, 0x69, 0xF8, 0x4D, 0x5B, 0xCF, 0x11, 0xA8, 0xFD, 0x00, 0x80, 0x5F, 0x5C, 0x44, 0x2B}
	asfVideoMedia       = []byte{0xC0, 0xEF, 0x19, 0xBC, 0x4D, 0x5B, 0xCF, 0x11, 0xA8, 0xFD, 0x00, 0x80, 0x5F, 0x5C, 0x44, 0x2B}
)

// asfType syncs on the first Stream Properties Object, which should be in
// the first KB of the file
func asfType(w *Window) (Type, error) {
	off := int64(30)
	for off < asfHeaderWindow {
		obj, err := w.ReadAt(off, 24)
		if err != nil {
			return Unknown, err
		}
		size := binary.LittleEndian.Uint64(obj[16:24])
		if size < 24 || size > math.MaxInt32 {
			return Unknown, nil
		}

		if bytes.Equal(obj[0:16], asfStreamProperties) {
			media, err := w.ReadAt(off+24, 16)
			if err != nil {
				return Unknown, err
			}
			switch {
			case bytes.Equal(media, asfAudioMedia):
				return Type{"asf", "audio/x-ms-asf"}, nil
			case bytes.Equal(media, asfVideoMedia):
				return Type{"asf", "video/x-ms-asf"}, nil
			}
			return Unknown, nil
		}
		off += int64(size)
	}
	return Unknown, nil
}

// transportStreamType checks for the sync byte of the second MPEG-2
// transport stream packet at next. Packets are 188 bytes; Blu-ray streams
// carry a 4 byte extra header before each one.
func transportStreamType(next int64) func(w *Window) (Type, error) {
	return func(w *Window) (Type, error) {
		if w.Has(next, []byte{0x47}) {
			return Type{"mts", "video/mp2t"}, nil
		}
		return Unknown, nil
	}
}
