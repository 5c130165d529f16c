package detector

import (
	"cmp"
	"slices"
)

// refinedFormats are the types only produced by procedural checks and the
// container detectors
var refinedFormats = []Type{
	{"eps", "application/eps"},
	{"apng", "image/apng"},
	typeTIFF,
	{"cr2", "image/x-canon-cr2"},
	{"nef", "image/x-nikon-nef"},
	{"arw", "image/x-sony-arw"},
	{"dng", "image/x-adobe-dng"},
	{"webm", "video/webm"},
	{"mkv", "video/x-matroska"},
	{"avi", "video/vnd.avi"},
	{"wav", "audio/vnd.wave"},
	{"qcp", "audio/qcelp"},
	{"webp", "image/webp"},
	{"opus", "audio/opus"},
	{"ogv", "video/ogg"},
	{"ogm", "video/ogg"},
	{"oga", "audio/ogg"},
	{"spx", "audio/ogg"},
	{"ogg", "audio/ogg"},
	{"jp2", "image/jp2"},
	{"jpx", "image/jpx"},
	{"jpm", "image/jpm"},
	{"mj2", "image/mj2"},
	{"deb", "application/x-deb"},
	{"lzh", "application/x-lzh-compressed"},
	{"mpg", "video/MP1S"},
	{"mpg", "video/MP2P"},
	{"aac", "audio/aac"},
	{"mp2", "audio/mpeg"},
	{"mp1", "audio/mpeg"},
	{"asf", "audio/x-ms-asf"},
	{"asf", "video/x-ms-asf"},
	{"mts", "video/mp2t"},
	{"ai", "application/postscript"},

	// ISO base media
	typeMP4,
	typeM4A,
	typeAVIF,
	typeHEIC,
	typeHEIF,
	{"heic", "image/heif-sequence"},
	{"heic", "image/heic-sequence"},
	typeMOV,
	{"m4v", "video/x-m4v"},
	{"m4p", "video/mp4"},
	{"m4b", "audio/mp4"},
	{"f4v", "video/mp4"},
	{"f4p", "video/mp4"},
	{"f4a", "audio/mp4"},
	{"f4b", "audio/mp4"},
	{"cr3", "image/x-canon-cr3"},
	{"3g2", "video/3gpp2"},
	{"3gp", "video/3gpp"},

	// ZIP containers
	{"epub", "application/epub+zip"},
	{"odt", "application/vnd.oasis.opendocument.text"},
	{"ods", "application/vnd.oasis.opendocument.spreadsheet"},
	{"odp", "application/vnd.oasis.opendocument.presentation"},
	{"odg", "application/vnd.oasis.opendocument.graphics"},
	{"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	{"docm", "application/vnd.ms-word.document.macroEnabled.12"},
	{"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	{"xlsm", "application/vnd.ms-excel.sheet.macroEnabled.12"},
	{"pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
	{"pptm", "application/vnd.ms-powerpoint.presentation.macroEnabled.12"},
	{"vsdx", "application/vnd.ms-visio.drawing.main+xml"},
	{"apk", "application/vnd.android.package-archive"},
	{"xpi", "application/x-xpinstall"},
	{"jar", "application/java-archive"},
	{"3mf", "model/3mf"},

	// Compound files
	{"doc", "application/msword"},
	{"xls", "application/vnd.ms-excel"},
	{"ppt", "application/vnd.ms-powerpoint"},
	{"vsd", "application/vnd.visio"},
	{"msg", "application/vnd.ms-outlook"},
	{"msi", "application/x-msi"},

	// Markup
	{"svg", "image/svg+xml"},
	{"rss", "application/rss+xml"},
	{"atom", "application/atom+xml"},
	{"xhtml", "application/xhtml+xml"},
	{"html", "text/html"},
	{"kml", "application/vnd.google-earth.kml+xml"},
	{"gpx", "application/gpx+xml"},
}

// Formats lists every type the default chain can report, sorted by
// extension then mime type
func Formats() []Type {
	seen := make(map[Type]struct{})
	var out []Type
	add := func(t Type) {
		if t.IsUnknown() {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, sig := range NewCore(nil).table {
		add(sig.Type)
	}
	for _, t := range refinedFormats {
		add(t)
	}

	slices.SortFunc(out, func(a, b Type) int {
		return cmp.Or(cmp.Compare(a.Extension, b.Extension), cmp.Compare(a.MIME, b.MIME))
	})
	return out
}
