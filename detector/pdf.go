package detector

import (
	"bytes"
	"unicode/utf8"
)

var typePDF = Type{"pdf", "application/pdf"}

const (
	// pdfJunkWindow is how far into the input the %PDF- marker may start
	pdfJunkWindow = 1024

	// aiProbeSize bounds the search for the Illustrator private data marker
	aiProbeSize = 256 * KB
)

var (
	pdfMarker = []byte("%PDF-")
	aiMarker  = []byte("AIPrivateData")
)

// PDF finds a PDF header. The header detector only accepts the header at the
// start of the input; the junk detector also finds one preceded by up to a
// KB of junk, as written by some mail gateways and print drivers.
//
// The junk detector belongs after the core matcher so archives storing a PDF
// near their start are identified by their own signature first.
type PDF struct {
	junk bool
}

// NewPDF creates the detector for PDF headers at the start of the input
func NewPDF() *PDF {
	return &PDF{}
}

// NewJunkPDF creates the detector for PDF headers after leading junk
func NewJunkPDF() *PDF {
	return &PDF{junk: true}
}

// Name implements Detector
func (d *PDF) Name() string {
	if d.junk {
		return "pdf-junk"
	}
	return "pdf"
}

// Detect implements Detector
func (d *PDF) Detect(w *Window) (Type, error) {
	n := len(pdfMarker) + len("1.7")
	if d.junk {
		n += pdfJunkWindow
	}
	head, err := w.Head(n)
	if err != nil {
		return Unknown, err
	}

	idx := 0
	if d.junk {
		if isArchive(w) {
			return Unknown, nil
		}
		idx = pdfHeaderOffset(head)
	}
	if idx < 0 || !isPDFHeader(head, idx) {
		return Unknown, nil
	}

	t, err := illustratorType(w.Slice(int64(idx)))
	if err != nil || !t.IsUnknown() {
		return t, err
	}
	return typePDF, nil
}

// pdfHeaderOffset returns the offset of the first plausible PDF header that
// starts within pdfJunkWindow, or -1
func pdfHeaderOffset(head []byte) int {
	for i := 0; i < len(head) && i < pdfJunkWindow; i++ {
		j := bytes.Index(head[i:], pdfMarker)
		if j < 0 {
			return -1
		}
		i += j
		if i+len(pdfMarker) > pdfJunkWindow {
			return -1
		}
		if isPDFHeader(head, i) && isJunk(head[:i]) {
			return i
		}
	}
	return -1
}

// isPDFHeader reports whether a %PDF-d.d header starts at off
func isPDFHeader(head []byte, off int) bool {
	v := off + len(pdfMarker)
	if !bytes.HasPrefix(head[off:], pdfMarker) || len(head) < v+3 {
		return false
	}
	return isDigit(head[v]) && head[v+1] == '.' && isDigit(head[v+2])
}

// isJunk reports whether the bytes before a header may be wrapper junk: the
// header starts a line, or the junk is not text. Text mentioning the marker
// mid-line is not a PDF.
func isJunk(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	switch b[len(b)-1] {
	case '\r', '\n', 0x00:
		return true
	}
	return !isText(b)
}

// isText reports whether b is valid UTF-8 without control characters other
// than common whitespace
func isText(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, c := range b {
		if c < 0x20 && c != '\t' && c != '\n' && c != '\r' && c != '\f' {
			return false
		}
		if c == 0x7F {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isArchive reports whether the input starts as a ZIP or tar archive, which
// may well carry a PDF member near the start
func isArchive(w *Window) bool {
	return w.Has(0, zipLocalHeader) || w.HasString(257, "ustar")
}

// illustratorType checks a PDF for Adobe Illustrator private data
func illustratorType(w *Window) (Type, error) {
	idx, err := w.Index(0, aiProbeSize, aiMarker)
	if err != nil {
		return Unknown, err
	}
	if idx > -1 {
		return Type{"ai", "application/postscript"}, nil
	}
	return Unknown, nil
}
