package detector

import (
	"context"
	"fmt"
	"slices"
)

// Detector classifies the bytes in a Window. It returns Unknown when the
// input is not its format. Returned errors of type *MalformedError or
// ErrInsufficientData also mean "no match"; any other error aborts the chain.
type Detector interface {
	// Name identifies the detector in logs and fault reports
	Name() string

	// Detect inspects the window
	Detect(w *Window) (Type, error)
}

// DetectorFunc adapts a function to the Detector interface
type DetectorFunc func(w *Window) (Type, error)

// Detect implements Detector
func (fn DetectorFunc) Detect(w *Window) (Type, error) {
	return fn(w)
}

// Name implements Detector
func (fn DetectorFunc) Name() string {
	return "func"
}

type namedDetector struct {
	name string
	fn   DetectorFunc
}

func (d *namedDetector) Name() string                   { return d.name }
func (d *namedDetector) Detect(w *Window) (Type, error) { return d.fn(w) }

// Named wraps fn as a Detector with the given name
func Named(name string, fn DetectorFunc) Detector {
	return &namedDetector{name: name, fn: fn}
}

// FaultHandler receives faults swallowed by Guard
type FaultHandler func(f *FaultError)

type guardedDetector struct {
	inner   Detector
	onFault FaultHandler
}

// Guard wraps d so that panics and unexpected errors are converted into
// "no match". Only ErrInsufficientData and *MalformedError pass through
// unchanged; *SourceError is still returned because the byte source itself
// failed.
//
// Guard is meant for a single detector with a known failure mode, not for
// the whole chain.
func Guard(d Detector, onFault FaultHandler) Detector {
	return &guardedDetector{inner: d, onFault: onFault}
}

func (g *guardedDetector) Name() string {
	return g.inner.Name()
}

func (g *guardedDetector) Detect(w *Window) (t Type, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.fault(&FaultError{Detector: g.inner.Name(), Value: r})
			t, err = Unknown, nil
		}
	}()

	t, err = g.inner.Detect(w)
	if err == nil || IsNoMatch(err) || GetErrorType(err) == ErrorTypeSource {
		return t, err
	}
	g.fault(&FaultError{Detector: g.inner.Name(), Value: err})
	return Unknown, nil
}

func (g *guardedDetector) fault(f *FaultError) {
	if g.onFault != nil {
		g.onFault(f)
	}
}

// Chain is an ordered list of detectors. Earlier detectors win. A Chain is
// never modified in place; Append and Insert return new chains.
type Chain struct {
	detectors []Detector
}

// NewChain creates a chain from the given detectors, in priority order
func NewChain(detectors ...Detector) Chain {
	return Chain{detectors: slices.Clone(detectors)}
}

// Append returns a chain with extra detectors run after the existing ones
func (c Chain) Append(extra ...Detector) Chain {
	out := make([]Detector, 0, len(c.detectors)+len(extra))
	out = append(out, c.detectors...)
	out = append(out, extra...)
	return Chain{detectors: out}
}

// Insert returns a chain with extra detectors placed at index pos.
// pos is clamped to the chain bounds.
func (c Chain) Insert(pos int, extra ...Detector) Chain {
	pos = min(max(pos, 0), len(c.detectors))
	out := make([]Detector, 0, len(c.detectors)+len(extra))
	out = append(out, c.detectors[:pos]...)
	out = append(out, extra...)
	out = append(out, c.detectors[pos:]...)
	return Chain{detectors: out}
}

// Len returns the number of detectors in the chain
func (c Chain) Len() int {
	return len(c.detectors)
}

// Names returns the detector names in priority order
func (c Chain) Names() []string {
	names := make([]string, len(c.detectors))
	for i, d := range c.detectors {
		names[i] = d.Name()
	}
	return names
}

// Run executes the detectors in order and returns the first match.
// The context is checked between detectors.
func (c Chain) Run(ctx context.Context, w *Window) (Type, error) {
	for _, d := range c.detectors {
		if err := ctx.Err(); err != nil {
			return Unknown, err
		}

		t, err := d.Detect(w)
		if err != nil {
			if IsNoMatch(err) {
				continue
			}
			return Unknown, fmt.Errorf("detector %s: %w", d.Name(), err)
		}
		if !t.IsUnknown() {
			return t, nil
		}
	}
	return Unknown, nil
}
