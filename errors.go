package whatfile

import (
	"errors"
	"fmt"
)

// Common inspection errors
var (
	ErrNotExist       = errors.New("file does not exist")
	ErrIsDir          = errors.New("is a directory")
	ErrNotRegular     = errors.New("not a regular file")
	ErrPermission     = errors.New("permission denied")
	ErrInvalidPattern = errors.New("invalid pattern")
	ErrNotSupported   = errors.New("operation not supported")
)

// PathError records an error and the operation and file path that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// IsNotExist reports whether an error indicates that a file or directory
// does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsPermission reports whether an error indicates that permission is denied
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}
