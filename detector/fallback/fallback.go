// Package fallback provides a last-resort detector backed by
// github.com/gabriel-vasile/mimetype. Append it to a chain to classify
// formats the built-in detectors have no signature for:
//
//	t, err := detector.DetectFile(ctx, path, detector.WithDetectors(fallback.New()))
package fallback

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/gobeaver/whatfile/detector"
)

// ignored are results that carry no information about the format
var ignored = map[string]struct{}{
	"application/octet-stream": {},
	"text/plain":               {},
}

// Detector sniffs the window prefix with the mimetype library
type Detector struct {
	text bool
}

// Option configures the fallback detector
type Option func(*Detector)

// WithText also reports text based types such as JSON, CSV or HTML.
// Plain text is never reported.
func WithText() Option {
	return func(d *Detector) {
		d.text = true
	}
}

// New creates the fallback detector
func New(opts ...Option) *Detector {
	d := &Detector{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name implements detector.Detector
func (d *Detector) Name() string {
	return "mimetype"
}

// Detect implements detector.Detector
func (d *Detector) Detect(w *detector.Window) (detector.Type, error) {
	prefix, err := w.Prefix()
	if err != nil {
		return detector.Unknown, err
	}
	if len(prefix) == 0 {
		return detector.Unknown, nil
	}

	m := mimetype.Detect(prefix)
	// drop parameters such as "; charset=utf-8"
	mime, _, _ := strings.Cut(m.String(), ";")
	mime = strings.TrimSpace(mime)

	if _, ok := ignored[mime]; ok {
		return detector.Unknown, nil
	}
	if !d.text && isText(m) {
		return detector.Unknown, nil
	}
	return detector.NewType(m.Extension(), mime), nil
}

// isText reports whether m descends from text/plain
func isText(m *mimetype.MIME) bool {
	for p := m; p != nil; p = p.Parent() {
		if p.Is("text/plain") {
			return true
		}
	}
	return false
}
