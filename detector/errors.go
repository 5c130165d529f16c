package detector

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned by Window reads that extend past the bytes
// the source can provide. Detectors treat it as "no match".
var ErrInsufficientData = errors.New("insufficient data")

// ErrorType categorizes detector failures
type ErrorType string

const (
	ErrorTypeMalformed ErrorType = "malformed"
	ErrorTypeFault     ErrorType = "fault"
	ErrorTypeSource    ErrorType = "source"
)

// MalformedError reports that a container structure (box tree, central
// directory, compound file sectors) is inconsistent. The chain treats it as
// "no match".
type MalformedError struct {
	// Format is the container being parsed, e.g. "zip" or "bmff".
	Format string

	// Reason is the human-readable description.
	Reason string
}

// Error implements the error interface
func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: malformed structure: %s", e.Format, e.Reason)
}

func malformed(format, reason string, args ...any) *MalformedError {
	return &MalformedError{Format: format, Reason: fmt.Sprintf(reason, args...)}
}

// FaultError is produced by Guard when the wrapped detector panics or
// returns an unexpected error.
type FaultError struct {
	Detector string
	Value    any
}

// Error implements the error interface
func (e *FaultError) Error() string {
	return fmt.Sprintf("detector %s faulted: %v", e.Detector, e.Value)
}

// Unwrap returns the underlying error, if the fault carried one
func (e *FaultError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// SourceError wraps an I/O failure of the underlying byte source. It is the
// only error class that aborts a detection.
type SourceError struct {
	Offset int64
	Err    error
}

// Error implements the error interface
func (e *SourceError) Error() string {
	return fmt.Sprintf("read source at offset %d: %v", e.Offset, e.Err)
}

// Unwrap returns the underlying error
func (e *SourceError) Unwrap() error {
	return e.Err
}

// IsNoMatch reports whether err only means the detector could not classify
// the input.
func IsNoMatch(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, ErrInsufficientData) {
		return true
	}
	var m *MalformedError
	return errors.As(err, &m)
}

// GetErrorType returns the category of a detector error, or empty string
// when err is not one of this package's error types.
func GetErrorType(err error) ErrorType {
	var (
		m *MalformedError
		f *FaultError
		s *SourceError
	)
	switch {
	case errors.As(err, &s):
		return ErrorTypeSource
	case errors.As(err, &f):
		return ErrorTypeFault
	case errors.As(err, &m):
		return ErrorTypeMalformed
	}
	return ""
}
