package detector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
)

// Option configures a detection
type Option func(*Options)

// Options contains the settings of a detection
type Options struct {
	// Limits bounds reads and container walks
	Limits Limits

	// OnFault receives faults recovered from the guarded ISO-BMFF detector
	OnFault FaultHandler

	// Extra detectors run after the built-in ones
	Extra []Detector
}

// WithLimits sets the read and walk limits
func WithLimits(limits Limits) Option {
	return func(o *Options) {
		o.Limits = limits
	}
}

// WithFaultHandler sets the hook called for recovered detector faults
func WithFaultHandler(fn FaultHandler) Option {
	return func(o *Options) {
		o.OnFault = fn
	}
}

// WithDetectors appends extra detectors to the default chain. They only run
// when no built-in detector matched.
func WithDetectors(detectors ...Detector) Option {
	return func(o *Options) {
		o.Extra = append(o.Extra, detectors...)
	}
}

func buildOptions(opts []Option) *Options {
	o := &Options{Limits: DefaultLimits()}
	for _, opt := range opts {
		opt(o)
	}
	o.Limits = o.Limits.normalize()
	return o
}

// DefaultChain returns the built-in detectors in priority order: XML
// dialects, ISO base media (guarded), compound files, PDF headers, the core
// signature matcher which hands ZIP archives to the ZIP detector, then PDF
// headers after leading junk.
func DefaultChain(onFault FaultHandler) Chain {
	return NewChain(
		NewXML(),
		Guard(NewBMFF(), onFault),
		NewCFBF(),
		NewPDF(),
		NewCore(NewZIP()),
		NewJunkPDF(),
	)
}

// Detect runs the default chain, plus any extra detectors, over w. It returns
// Unknown when nothing matched; errors are source failures or cancellation.
func Detect(ctx context.Context, w *Window, opts ...Option) (Type, error) {
	o := buildOptions(opts)
	return DefaultChain(o.OnFault).Append(o.Extra...).Run(ctx, w)
}

// DetectBytes detects the type of an in-memory buffer
func DetectBytes(ctx context.Context, data []byte, opts ...Option) (Type, error) {
	o := buildOptions(opts)
	w := NewWindow(bytes.NewReader(data), int64(len(data)), o.Limits)
	return Detect(ctx, w, opts...)
}

// sizer is implemented by readers that know their length, such as
// bytes.Reader, strings.Reader and io.SectionReader
type sizer interface {
	Size() int64
}

// DetectReader detects the type of r. Readers that also implement
// io.ReaderAt and report their size are probed without buffering; other
// streams are buffered up to Limits.MaxBuffer bytes.
func DetectReader(ctx context.Context, r io.Reader, opts ...Option) (Type, error) {
	o := buildOptions(opts)

	var w *Window
	ra, okRA := r.(io.ReaderAt)
	sz, okSize := r.(sizer)
	if okRA && okSize {
		w = NewWindow(ra, sz.Size(), o.Limits)
	} else {
		w = WindowFromReader(r, o.Limits)
	}
	return Detect(ctx, w, opts...)
}

// DetectFile detects the type of the file at path
func DetectFile(ctx context.Context, path string, opts ...Option) (Type, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Unknown, err
	}
	if info.IsDir() {
		return Unknown, fmt.Errorf("detect %s: is a directory", path)
	}

	o := buildOptions(opts)
	return Detect(ctx, NewWindow(f, info.Size(), o.Limits), opts...)
}
