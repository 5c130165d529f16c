package detector

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	zipLocalHeader = []byte{0x50, 0x4B, 0x03, 0x04}
	zipEndOfDir    = []byte{0x50, 0x4B, 0x05, 0x06}

	typeZIP = Type{"zip", "application/zip"}
)

const (
	// maxMimetypeSize bounds the "mimetype" entry of EPUB and ODF packages
	maxMimetypeSize = 256
)

// zipListing is what the ZIP detector learned about an archive
type zipListing struct {
	names    map[string]struct{}
	mimetype string
}

func newZipListing() *zipListing {
	return &zipListing{names: make(map[string]struct{})}
}

func (l *zipListing) add(name string) {
	l.names[name] = struct{}{}
}

func (l *zipListing) has(name string) bool {
	_, ok := l.names[name]
	return ok
}

// ZIP tells ZIP based formats (OOXML, ODF, EPUB, APK, JAR, XPI, 3MF) from
// plain archives. It reads the central directory when the whole input is
// reachable and falls back to walking local file headers otherwise.
type ZIP struct{}

// NewZIP creates the ZIP detector
func NewZIP() *ZIP {
	return &ZIP{}
}

// Name implements Detector
func (z *ZIP) Name() string {
	return "zip"
}

// Detect implements Detector
func (z *ZIP) Detect(w *Window) (Type, error) {
	if w.Has(0, zipEndOfDir) {
		// empty archive
		return typeZIP, nil
	}
	if !w.Has(0, zipLocalHeader) {
		return Unknown, nil
	}

	listing, ok := z.centralDirectory(w)
	if !ok {
		var err error
		listing, err = z.scanLocalHeaders(w)
		if err != nil {
			return Unknown, err
		}
	}
	return classifyZip(listing), nil
}

// classifyZip applies the container rules in priority order
func classifyZip(l *zipListing) Type {
	switch l.mimetype {
	case "application/epub+zip":
		return Type{"epub", "application/epub+zip"}
	case "application/vnd.oasis.opendocument.text":
		return Type{"odt", l.mimetype}
	case "application/vnd.oasis.opendocument.spreadsheet":
		return Type{"ods", l.mimetype}
	case "application/vnd.oasis.opendocument.presentation":
		return Type{"odp", l.mimetype}
	case "application/vnd.oasis.opendocument.graphics":
		return Type{"odg", l.mimetype}
	}

	if l.has("[Content_Types].xml") {
		if t, ok := officeType(l); ok {
			return t
		}
	}

	switch {
	// Signed APKs also carry a jar manifest
	case l.has("AndroidManifest.xml"):
		return Type{"apk", "application/vnd.android.package-archive"}
	// Assumes signed .xpi from addons.mozilla.org
	case l.has("META-INF/mozilla.rsa"):
		return Type{"xpi", "application/x-xpinstall"}
	case l.has("META-INF/MANIFEST.MF"):
		return Type{"jar", "application/java-archive"}
	case l.has("3D/3dmodel.model"):
		return Type{"3mf", "model/3mf"}
	}
	return typeZIP
}

// officeType identifies the Office Open XML document type from its main part.
// Macro-enabled variants carry a VBA project.
func officeType(l *zipListing) (Type, bool) {
	switch {
	case l.has("word/document.xml"):
		if l.has("word/vbaProject.bin") {
			return Type{"docm", "application/vnd.ms-word.document.macroEnabled.12"}, true
		}
		return Type{"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"}, true
	case l.has("xl/workbook.xml"):
		if l.has("xl/vbaProject.bin") {
			return Type{"xlsm", "application/vnd.ms-excel.sheet.macroEnabled.12"}, true
		}
		return Type{"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}, true
	case l.has("ppt/presentation.xml"):
		if l.has("ppt/vbaProject.bin") {
			return Type{"pptm", "application/vnd.ms-powerpoint.presentation.macroEnabled.12"}, true
		}
		return Type{"pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation"}, true
	case l.has("visio/document.xml"):
		return Type{"vsdx", "application/vnd.ms-visio.drawing.main+xml"}, true
	}
	return Unknown, false
}

// centralDirectory lists the archive from its central directory. It reports
// false when the directory is unreachable, unreadable or larger than
// MaxZipEntries.
func (z *ZIP) centralDirectory(w *Window) (*zipListing, bool) {
	r, ok := w.Section()
	if !ok {
		return nil, false
	}
	limit := w.Limits().MaxZipEntries
	if n, ok := zipEntryCount(w, r.Size()); ok && n > limit {
		return nil, false
	}

	zr, err := zip.NewReader(r, r.Size())
	if err != nil {
		return nil, false
	}

	l := newZipListing()
	for i, f := range zr.File {
		if i >= limit {
			break
		}
		l.add(f.Name)
		if f.Name == "mimetype" && f.UncompressedSize64 <= maxMimetypeSize {
			l.mimetype = readMimetype(f)
		}
	}
	return l, true
}

func readMimetype(f *zip.File) string {
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, maxMimetypeSize))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(content))
}

// zipEntryCount reads the total entry count from an end of central directory
// record without an archive comment
func zipEntryCount(w *Window, size int64) (int, bool) {
	if size < 22 {
		return 0, false
	}
	eocd, err := w.ReadAt(size-22, 22)
	if err != nil || !bytes.Equal(eocd[:4], zipEndOfDir) {
		return 0, false
	}
	return int(binary.LittleEndian.Uint16(eocd[10:12])), true
}

// scanLocalHeaders walks the local file headers from the start of the input.
// Entries written with a data descriptor have no compressed size up front;
// the next header is then searched for.
func (z *ZIP) scanLocalHeaders(w *Window) (*zipListing, error) {
	limits := w.Limits()
	l := newZipListing()

	off := int64(0)
	for range limits.MaxZipEntries {
		hdr, err := w.ReadAt(off, 30)
		if err != nil {
			return l, noMatchAsNil(err)
		}
		if !bytes.Equal(hdr[:4], zipLocalHeader) {
			break
		}

		// https://en.wikipedia.org/wiki/Zip_(file_format)#File_headers
		flags := binary.LittleEndian.Uint16(hdr[6:8])
		method := binary.LittleEndian.Uint16(hdr[8:10])
		compressedSize := binary.LittleEndian.Uint32(hdr[18:22])
		uncompressedSize := binary.LittleEndian.Uint32(hdr[22:26])
		nameLen := binary.LittleEndian.Uint16(hdr[26:28])
		extraLen := binary.LittleEndian.Uint16(hdr[28:30])

		raw, err := w.ReadAt(off+30, int(nameLen))
		if err != nil {
			return l, noMatchAsNil(err)
		}
		name := string(raw)
		l.add(name)

		data := off + 30 + int64(nameLen) + int64(extraLen)
		if name == "mimetype" && method == zip.Store && compressedSize == uncompressedSize && compressedSize <= maxMimetypeSize {
			if content, err := w.ReadAt(data, int(compressedSize)); err == nil {
				l.mimetype = strings.TrimSpace(string(content))
			}
		}

		if flags&0x08 != 0 || compressedSize == 0 {
			next, err := w.Index(data, int64(limits.MaxBuffer), zipLocalHeader)
			if err != nil {
				return l, err
			}
			if next < 0 {
				break
			}
			off = next
			continue
		}
		off = data + int64(compressedSize)
	}
	return l, nil
}

// noMatchAsNil drops errors that only mean the data ran out
func noMatchAsNil(err error) error {
	if IsNoMatch(err) {
		return nil
	}
	return err
}
