// Identify files by their content.
package main

import (
	"errors"
	"fmt"
	"os"
)

// exitError carries a process exit code out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// Exit codes
const (
	exitOK       = 0
	exitFailure  = 1
	exitMismatch = 2
)

// exitCode maps an error returned by a command to the process exit code
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return exitFailure
}

func main() {
	err := newRootCommand().Execute()
	if err != nil {
		var e *exitError
		if !errors.As(err, &e) || e.code != exitMismatch {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	os.Exit(exitCode(err))
}
