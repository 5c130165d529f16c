package whatfile

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/gobeaver/whatfile/detector"
)

// Status is the progress of one inspection
type Status string

const (
	StatusPending   Status = "pending"
	StatusDetecting Status = "detecting"
	StatusDone      Status = "done"
	StatusError     Status = "error"
)

// Report is the outcome of inspecting one file
type Report struct {
	// Name is the base name the file was submitted under
	Name string `json:"name"`

	// Path is the file system path, empty for readers
	Path string `json:"path,omitempty"`

	Size   int64         `json:"size"`
	Status Status        `json:"status"`
	Type   detector.Type `json:"type"`

	// NominalExt is the extension of Name, lower-cased and without the dot
	NominalExt  string `json:"nominal_ext,omitempty"`
	NominalMIME string `json:"nominal_mime,omitempty"`

	// Mismatch is set when the detected type disagrees with NominalExt
	Mismatch bool `json:"mismatch"`

	Checksum          string            `json:"checksum,omitempty"`
	ChecksumAlgorithm ChecksumAlgorithm `json:"checksum_algorithm,omitempty"`

	// Faults recovered from guarded detectors; informational only
	Faults []string `json:"faults,omitempty"`

	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// newReport creates a pending report for a named input
func newReport(name, path string, size int64) *Report {
	ext := ExtensionOf(name)
	return &Report{
		Name:        name,
		Path:        path,
		Size:        size,
		Status:      StatusPending,
		NominalExt:  ext,
		NominalMIME: NominalMIME(name),
	}
}

// finish records the detection outcome
func (r *Report) finish(t detector.Type, err error, elapsed time.Duration) {
	r.Duration = elapsed
	if err != nil {
		r.Status = StatusError
		r.Err = err
		r.Error = err.Error()
		return
	}
	r.Status = StatusDone
	r.Type = t
	r.Mismatch = Mismatch(r.Name, t)
}

// Known reports whether a type was detected
func (r *Report) Known() bool {
	return r.Status == StatusDone && !r.Type.IsUnknown()
}

// HumanSize returns the size in IEC units, e.g. "1.2 KiB"
func (r *Report) HumanSize() string {
	if r.Size < 0 {
		return "?"
	}
	return humanize.IBytes(uint64(r.Size))
}

// Summary returns a one line description of the report
func (r *Report) Summary() string {
	head := fmt.Sprintf("%s (%s)", r.Name, r.HumanSize())
	switch r.Status {
	case StatusPending:
		return head + ": pending"
	case StatusDetecting:
		return head + ": detecting..."
	case StatusError:
		return fmt.Sprintf("%s: error: %s", head, r.Error)
	}
	if r.Type.IsUnknown() {
		return fmt.Sprintf("%s: %s", head, UnknownHint)
	}
	s := fmt.Sprintf("%s: %s .%s", head, r.Type.MIME, r.Type.Extension)
	if r.Mismatch {
		s += fmt.Sprintf(" (named .%s)", r.NominalExt)
	}
	return s
}
