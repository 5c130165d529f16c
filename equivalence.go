package whatfile

import (
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobeaver/whatfile/detector"
)

// UnknownHint is shown for files no detector recognized
const UnknownHint = "Unknown type - could be a text-based format (e.g. .txt, .csv, .svg)"

// equivalentExtensions groups extensions that name the same format
var equivalentExtensions = [][]string{
	{"jpg", "jpeg"},
	{"tif", "tiff"},
	{"htm", "html"},
	{"mpg", "mpeg"},
	// Windows PE images are all detected as exe
	{"exe", "dll", "sys", "ocx", "scr"},
}

// Extension to MIME mapping for names the mime package may not know
var extensionToMIME = map[string]string{
	"txt":  "text/plain",
	"html": "text/html",
	"htm":  "text/html",
	"json": "application/json",
	"xml":  "application/xml",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"webp": "image/webp",
	"heic": "image/heic",
	"avif": "image/avif",
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"ogg":  "audio/ogg",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"webm": "video/webm",
	"pdf":  "application/pdf",
	"zip":  "application/zip",
	"gz":   "application/gzip",
	"tar":  "application/x-tar",
	"csv":  "text/csv",
	"md":   "text/markdown",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"epub": "application/epub+zip",
	"exe":  "application/x-msdownload",
}

// ExtensionOf returns the lower-cased extension of a file name without the
// dot, or "" when the name has none
func ExtensionOf(name string) string {
	name = filepath.Base(name)
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// Equivalent reports whether two extensions name the same format
func Equivalent(a, b string) bool {
	a, b = strings.ToLower(strings.TrimPrefix(a, ".")), strings.ToLower(strings.TrimPrefix(b, "."))
	if a == b {
		return true
	}
	for _, group := range equivalentExtensions {
		if slices.Contains(group, a) && slices.Contains(group, b) {
			return true
		}
	}
	return false
}

// Mismatch reports whether the name's extension disagrees with the detected
// type. Names without an extension and unknown detections never mismatch.
func Mismatch(name string, t detector.Type) bool {
	ext := ExtensionOf(name)
	if ext == "" || t.IsUnknown() {
		return false
	}
	return !Equivalent(ext, t.Extension)
}

// NominalMIME guesses the mime type a file claims through its name
func NominalMIME(name string) string {
	ext := ExtensionOf(name)
	if ext == "" {
		return ""
	}
	if m, ok := extensionToMIME[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension("." + ext); m != "" {
		m, _, _ = strings.Cut(m, ";")
		return strings.TrimSpace(m)
	}
	return ""
}
