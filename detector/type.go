package detector

import "strings"

// Type is the outcome of a detection: a canonical extension (without the
// leading dot) and its mime type. Both fields are set, or neither is.
type Type struct {
	Extension string `json:"extension,omitempty"`
	MIME      string `json:"mime,omitempty"`
}

// Unknown is the "no type found" result
var Unknown = Type{}

// NewType builds a Type. An empty extension or mime yields Unknown so the
// both-or-neither invariant holds.
func NewType(ext, mime string) Type {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" || mime == "" {
		return Unknown
	}
	return Type{Extension: ext, MIME: mime}
}

// IsUnknown returns true if no detector matched
func (t Type) IsUnknown() bool {
	return t.Extension == "" || t.MIME == ""
}

// String returns "ext (mime)" or "unknown"
func (t Type) String() string {
	if t.IsUnknown() {
		return "unknown"
	}
	return t.Extension + " (" + t.MIME + ")"
}

// Category returns a coarse category for the mime type
func (t Type) Category() string {
	switch {
	case t.IsUnknown():
		return "unknown"
	case strings.HasPrefix(t.MIME, "image/"):
		return "image"
	case strings.HasPrefix(t.MIME, "audio/"):
		return "audio"
	case strings.HasPrefix(t.MIME, "video/"):
		return "video"
	case strings.HasPrefix(t.MIME, "font/"):
		return "font"
	case strings.HasPrefix(t.MIME, "text/"),
		strings.HasSuffix(t.MIME, "+xml"),
		t.MIME == "application/xml":
		return "text"
	}
	return "application"
}
