package detector

import (
	"archive/zip"
	"bytes"
	"testing"
)

type zipEntry struct {
	name  string
	body  string
	store bool
}

// createZip builds an archive with the entries in order
func createZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		method := zip.Deflate
		if e.store {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: method})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestZIP_Detect(t *testing.T) {
	contentTypes := zipEntry{name: "[Content_Types].xml", body: `<?xml version="1.0"?><Types/>`}
	rels := zipEntry{name: "_rels/.rels", body: `<?xml version="1.0"?><Relationships/>`}

	tests := []struct {
		name    string
		entries []zipEntry
		want    string
	}{
		{
			name:    "docx",
			entries: []zipEntry{contentTypes, rels, {name: "word/document.xml", body: "<w:document/>"}},
			want:    "docx",
		},
		{
			name:    "docx with main part first",
			entries: []zipEntry{{name: "word/document.xml", body: "<w:document/>"}, contentTypes},
			want:    "docx",
		},
		{
			name:    "docm",
			entries: []zipEntry{contentTypes, {name: "word/document.xml"}, {name: "word/vbaProject.bin", body: "\x00"}},
			want:    "docm",
		},
		{
			name:    "xlsx",
			entries: []zipEntry{contentTypes, rels, {name: "xl/workbook.xml"}},
			want:    "xlsx",
		},
		{
			name:    "xlsm",
			entries: []zipEntry{contentTypes, {name: "xl/workbook.xml"}, {name: "xl/vbaProject.bin"}},
			want:    "xlsm",
		},
		{
			name:    "pptx",
			entries: []zipEntry{contentTypes, rels, {name: "ppt/presentation.xml"}},
			want:    "pptx",
		},
		{
			name:    "vsdx",
			entries: []zipEntry{contentTypes, {name: "visio/document.xml"}},
			want:    "vsdx",
		},
		{
			name:    "content types without main part",
			entries: []zipEntry{contentTypes, {name: "custom/part.xml"}},
			want:    "zip",
		},
		{
			name:    "part directory without main part",
			entries: []zipEntry{contentTypes, {name: "word/styles.xml"}, {name: "xl/sharedStrings.xml"}},
			want:    "zip",
		},
		{
			name:    "relationships without content types",
			entries: []zipEntry{rels, {name: "word/document.xml"}},
			want:    "zip",
		},
		{
			name:    "epub",
			entries: []zipEntry{{name: "mimetype", body: "application/epub+zip", store: true}, {name: "META-INF/container.xml"}},
			want:    "epub",
		},
		{
			name:    "odt",
			entries: []zipEntry{{name: "mimetype", body: "application/vnd.oasis.opendocument.text", store: true}, {name: "content.xml"}},
			want:    "odt",
		},
		{
			name:    "ods deflated mimetype",
			entries: []zipEntry{{name: "mimetype", body: "application/vnd.oasis.opendocument.spreadsheet"}, {name: "content.xml"}},
			want:    "ods",
		},
		{
			name:    "odg",
			entries: []zipEntry{{name: "mimetype", body: "application/vnd.oasis.opendocument.graphics", store: true}},
			want:    "odg",
		},
		{
			name:    "unknown mimetype falls through",
			entries: []zipEntry{{name: "mimetype", body: "application/x-custom", store: true}, {name: "META-INF/MANIFEST.MF"}},
			want:    "jar",
		},
		{
			name:    "apk wins over jar",
			entries: []zipEntry{{name: "META-INF/MANIFEST.MF"}, {name: "AndroidManifest.xml"}, {name: "classes.dex"}},
			want:    "apk",
		},
		{
			name:    "xpi",
			entries: []zipEntry{{name: "META-INF/MANIFEST.MF"}, {name: "META-INF/mozilla.rsa"}, {name: "install.rdf"}},
			want:    "xpi",
		},
		{
			name:    "jar",
			entries: []zipEntry{{name: "META-INF/MANIFEST.MF", body: "Manifest-Version: 1.0\n"}, {name: "Main.class"}},
			want:    "jar",
		},
		{
			name:    "3mf",
			entries: []zipEntry{contentTypes, {name: "3D/3dmodel.model"}},
			want:    "3mf",
		},
		{
			name:    "plain archive",
			entries: []zipEntry{{name: "readme.txt", body: "hello"}, {name: "src/main.go", body: "package main"}},
			want:    "zip",
		},
	}

	z := NewZIP()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := z.Detect(WindowFromBytes(createZip(t, tt.entries...)))
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if got.Extension != tt.want {
				t.Errorf("Detect() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestZIP_Empty(t *testing.T) {
	data := createZip(t)
	got, err := NewZIP().Detect(WindowFromBytes(data))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got != typeZIP {
		t.Errorf("Detect() = %v, want %v", got, typeZIP)
	}
}

func TestZIP_NotZip(t *testing.T) {
	got, err := NewZIP().Detect(WindowFromBytes([]byte("%PDF-1.4")))
	if err != nil || !got.IsUnknown() {
		t.Errorf("Detect() = %v, %v; want unknown", got, err)
	}
}

func TestZIP_LocalHeaderScan(t *testing.T) {
	big := make([]byte, 8*KB)
	for i := range big {
		big[i] = byte(i * 7)
	}
	data := createZip(t,
		zipEntry{name: "[Content_Types].xml", body: "<Types/>"},
		zipEntry{name: "xl/workbook.xml", body: "<workbook/>"},
		zipEntry{name: "xl/media/image1.bin", body: string(big), store: true},
	)

	// The stream is longer than the buffer, so the central directory at the
	// end is out of reach
	limits := Limits{PrefixSize: 1 * KB, MaxBuffer: 2 * KB}
	w := WindowFromReader(streamOnly{bytes.NewReader(data)}, limits)

	got, err := NewZIP().Detect(w)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got.Extension != "xlsx" {
		t.Errorf("Detect() = %v, want xlsx", got)
	}
}

func TestZIP_TruncatedArchive(t *testing.T) {
	data := createZip(t,
		zipEntry{name: "META-INF/MANIFEST.MF", body: "Manifest-Version: 1.0\n"},
		zipEntry{name: "Main.class", body: "cafebabe"},
	)
	// drop the central directory
	truncated := data[:len(data)/2]

	got, err := NewZIP().Detect(WindowFromBytes(truncated))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got.Extension != "jar" && got != typeZIP {
		t.Errorf("Detect() = %v, want jar or zip", got)
	}
}

func TestZIP_EntryLimit(t *testing.T) {
	entries := []zipEntry{{name: "a.txt"}, {name: "b.txt"}, {name: "c.txt"}, {name: "AndroidManifest.xml"}}
	data := createZip(t, entries...)

	limits := DefaultLimits()
	limits.MaxZipEntries = 2
	got, err := NewZIP().Detect(NewWindow(bytes.NewReader(data), int64(len(data)), limits))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got != typeZIP {
		t.Errorf("Detect() = %v, want zip since the manifest is past the entry limit", got)
	}
}
