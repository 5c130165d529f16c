package detector

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

var typeXML = Type{"xml", "application/xml"}

const (
	// maxXMLTokens bounds the prolog tokens read before the root element
	maxXMLTokens = 256

	nsAtom  = "http://www.w3.org/2005/Atom"
	nsXHTML = "http://www.w3.org/1999/xhtml"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// XML classifies markup documents by their root element: SVG, RSS, Atom,
// XHTML, HTML, KML, GPX, or generic XML. Only the prefix is parsed.
type XML struct{}

// NewXML creates the XML dialect detector
func NewXML() *XML {
	return &XML{}
}

// Name implements Detector
func (d *XML) Name() string {
	return "xml"
}

// Detect implements Detector
func (d *XML) Detect(w *Window) (Type, error) {
	prefix, err := w.Prefix()
	if err != nil {
		return Unknown, err
	}

	text, transcoded, err := decodeMarkup(prefix)
	if err != nil {
		return Unknown, err
	}
	text = bytes.TrimLeft(text, " \t\r\n")
	if !looksLikeMarkup(text) {
		return Unknown, nil
	}
	return rootElementType(text, transcoded)
}

// decodeMarkup strips a byte order mark and converts UTF-16 input to UTF-8.
// transcoded reports whether the declared encoding no longer applies.
func decodeMarkup(b []byte) ([]byte, bool, error) {
	var enc encoding.Encoding
	switch {
	case bytes.HasPrefix(b, bomUTF8):
		return b[len(bomUTF8):], false, nil
	case bytes.HasPrefix(b, bomUTF16LE):
		enc = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
	case bytes.HasPrefix(b, bomUTF16BE):
		enc = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	case bytes.HasPrefix(b, []byte{'<', 0x00}):
		enc = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case bytes.HasPrefix(b, []byte{0x00, '<'}):
		enc = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	default:
		return b, false, nil
	}

	// drop a code unit split by the end of the prefix
	b = b[:len(b)&^1]
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return nil, false, malformed("xml", "invalid UTF-16 text: %v", err)
	}
	return out, true, nil
}

// looksLikeMarkup reports whether text opens with an XML declaration or a
// tag, comment or doctype
func looksLikeMarkup(text []byte) bool {
	if len(text) < 2 || text[0] != '<' {
		return false
	}
	c := text[1]
	return c == '?' || c == '!' || c == '_' || c == ':' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// charsetReader decodes declared non UTF-8 encodings through the IANA index
func charsetReader(transcoded bool) func(label string, input io.Reader) (io.Reader, error) {
	return func(label string, input io.Reader) (io.Reader, error) {
		if transcoded {
			return input, nil
		}
		enc, err := ianaindex.IANA.Encoding(label)
		if err != nil {
			return nil, err
		}
		if enc == nil {
			return nil, fmt.Errorf("unsupported charset %q", label)
		}
		return enc.NewDecoder().Reader(input), nil
	}
}

// rootElementType reads tokens up to the first element
func rootElementType(text []byte, transcoded bool) (Type, error) {
	dec := xml.NewDecoder(bytes.NewReader(text))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charsetReader(transcoded)

	for range maxXMLTokens {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Unknown, ErrInsufficientData
			}
			// the prefix ended inside a token
			var syntax *xml.SyntaxError
			if errors.As(err, &syntax) && syntax.Msg == "unexpected EOF" {
				return Unknown, ErrInsufficientData
			}
			return Unknown, malformed("xml", "%v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			return elementType(t.Name), nil
		case xml.Directive:
			if doctypeIs(t, "svg") {
				return Type{"svg", "image/svg+xml"}, nil
			}
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return Unknown, malformed("xml", "text before the root element")
			}
		}
	}
	return Unknown, nil
}

func doctypeIs(d xml.Directive, root string) bool {
	fields := strings.Fields(string(d))
	return len(fields) >= 2 && strings.EqualFold(fields[0], "DOCTYPE") && strings.EqualFold(fields[1], root)
}

func elementType(name xml.Name) Type {
	switch strings.ToLower(name.Local) {
	case "svg":
		return Type{"svg", "image/svg+xml"}
	case "rss":
		return Type{"rss", "application/rss+xml"}
	case "feed":
		if name.Space == nsAtom {
			return Type{"atom", "application/atom+xml"}
		}
	case "html":
		if name.Space == nsXHTML {
			return Type{"xhtml", "application/xhtml+xml"}
		}
		return Type{"html", "text/html"}
	case "kml":
		return Type{"kml", "application/vnd.google-earth.kml+xml"}
	case "gpx":
		return Type{"gpx", "application/gpx+xml"}
	}
	return typeXML
}
