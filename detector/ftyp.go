package detector

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// maxCompatibleBrands bounds how many compatible brands of an ftyp box are read
const maxCompatibleBrands = 64

var (
	typeMP4  = Type{"mp4", "video/mp4"}
	typeM4A  = Type{"m4a", "audio/mp4"}
	typeAVIF = Type{"avif", "image/avif"}
	typeHEIC = Type{"heic", "image/heic"}
	typeHEIF = Type{"heic", "image/heif"}
)

// fileTypeBox is the decoded leading ftyp box of an ISO base media file
type fileTypeBox struct {
	size       int64
	major      string
	compatible []string
}

// hasBrand reports whether brand is the major brand or one of the compatible ones
func (b *fileTypeBox) hasBrand(brand string) bool {
	if b.major == brand {
		return true
	}
	for _, c := range b.compatible {
		if c == brand {
			return true
		}
	}
	return false
}

// readBrand reads the four character code at off. Brands must consist of
// ISO 8859-1 printable characters; the check is a mask which also lets one
// non-printable character through. Padding is trimmed.
func readBrand(w *Window, off int64) (string, bool) {
	b, err := w.ReadAt(off, 4)
	if err != nil || b[0]&0x60 == 0 {
		return "", false
	}
	out := make([]byte, 4)
	for i, c := range b {
		if c&0x60 == 0 || c == 0x00 {
			c = 0x20
		}
		out[i] = c
	}
	return string(bytes.TrimSpace(out)), true
}

// readFileTypeBox decodes the ftyp box at the start of w. Compatible brands
// past the available data are dropped silently.
func readFileTypeBox(w *Window) (*fileTypeBox, error) {
	if !w.HasString(4, "ftyp") {
		return nil, ErrInsufficientData
	}
	size, err := w.Uint32(0, binary.BigEndian)
	if err != nil {
		return nil, err
	}
	if size != 0 && size < 16 {
		return nil, malformed("bmff", "ftyp box too small (%d bytes)", size)
	}
	major, ok := readBrand(w, 8)
	if !ok {
		return nil, malformed("bmff", "major brand is not printable")
	}

	box := &fileTypeBox{size: int64(size), major: major}
	end := int64(size)
	if size == 0 {
		end = 16 + 4*maxCompatibleBrands
	}
	for off := int64(16); off+4 <= end && len(box.compatible) < maxCompatibleBrands; off += 4 {
		brand, ok := readBrand(w, off)
		if !ok {
			if _, err := w.ReadAt(off, 4); err != nil {
				break
			}
			continue
		}
		box.compatible = append(box.compatible, brand)
	}
	return box, nil
}

// brandType maps brands that identify a format on their own
func brandType(brand string) (Type, bool) {
	switch brand {
	case "avif", "avis":
		return typeAVIF, true
	case "mif1":
		return typeHEIF, true
	case "msf1":
		return Type{"heic", "image/heif-sequence"}, true
	case "heic", "heix":
		return typeHEIC, true
	case "hevc", "hevx":
		return Type{"heic", "image/heic-sequence"}, true
	case "qt":
		return Type{"mov", "video/quicktime"}, true
	case "M4V", "M4VH", "M4VP":
		return Type{"m4v", "video/x-m4v"}, true
	case "M4P":
		return Type{"m4p", "video/mp4"}, true
	case "M4B":
		return Type{"m4b", "audio/mp4"}, true
	case "M4A":
		return typeM4A, true
	case "F4V":
		return Type{"f4v", "video/mp4"}, true
	case "F4P":
		return Type{"f4p", "video/mp4"}, true
	case "F4A":
		return Type{"f4a", "audio/mp4"}, true
	case "F4B":
		return Type{"f4b", "audio/mp4"}, true
	case "crx":
		return Type{"cr3", "image/x-canon-cr3"}, true
	}
	switch {
	case strings.HasPrefix(brand, "3g2"):
		return Type{"3g2", "video/3gpp2"}, true
	case strings.HasPrefix(brand, "3g"):
		return Type{"3gp", "video/3gpp"}, true
	}
	return Unknown, false
}

// isAmbiguousBrand reports whether a major brand is shared by audio, video
// and image files alike
func isAmbiguousBrand(brand string) bool {
	switch brand {
	case "isom", "iso2", "iso3", "iso4", "iso5", "iso6", "iso7", "iso8", "iso9",
		"mp41", "mp42", "mp71", "avc1", "dash", "mmp4", "MSNV", "NDAS":
		return true
	}
	return false
}

// imageBrands are compatible brands that mark still image containers
var imageBrands = []string{"avif", "avis", "heic", "heix", "mif1", "msf1"}

// ftypType classifies an ftyp box from its brands alone. Ambiguous major
// brands are resolved through the image compatible brands, then default to mp4.
func ftypType(w *Window) (Type, error) {
	box, err := readFileTypeBox(w)
	if err != nil {
		return Unknown, err
	}
	if t, ok := brandType(box.major); ok {
		return t, nil
	}
	for _, brand := range imageBrands {
		if box.hasBrand(brand) {
			t, _ := brandType(brand)
			return t, nil
		}
	}
	return typeMP4, nil
}
