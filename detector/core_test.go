package detector

import (
	"archive/tar"
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"
)

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func pad(b []byte, n int) []byte {
	if len(b) >= n {
		return b
	}
	return append(b, make([]byte, n-len(b))...)
}

func pngChunk(typ string, data []byte) []byte {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	return concat(length, []byte(typ), data, make([]byte, 4))
}

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// v7TarHeader builds a pre-POSIX tar header without the ustar magic
func v7TarHeader(name string) []byte {
	h := make([]byte, 512)
	copy(h, name)
	copy(h[100:], "0000644\x00")
	copy(h[124:], "00000000000\x00")
	for i := 148; i < 156; i++ {
		h[i] = ' '
	}
	sum := 0
	for _, b := range h {
		sum += int(b)
	}
	copy(h[148:], fmt.Sprintf("%06o\x00 ", sum))
	return h
}

func ustarArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{Name: "hello.txt", Mode: 0o644, Size: 5, Format: tar.FormatUSTAR}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func id3Tag(size int) []byte {
	return []byte{'I', 'D', '3', 0x03, 0x00, 0x00,
		byte(size>>21) & 0x7F, byte(size>>14) & 0x7F, byte(size>>7) & 0x7F, byte(size) & 0x7F}
}

func TestCore_Detect(t *testing.T) {
	ihdr := pngChunk("IHDR", make([]byte, 13))

	tests := []struct {
		name string
		data []byte
		want Type
	}{
		{name: "jpeg", data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}, want: Type{"jpg", "image/jpeg"}},
		{name: "gif", data: []byte("GIF89a\x01\x00\x01\x00"), want: Type{"gif", "image/gif"}},
		{name: "png", data: concat(pngSignature, ihdr, pngChunk("IDAT", []byte{1, 2, 3})), want: Type{"png", "image/png"}},
		{name: "apng", data: concat(pngSignature, ihdr, pngChunk("acTL", make([]byte, 8)), pngChunk("IDAT", nil)), want: Type{"apng", "image/apng"}},
		{name: "png without IDAT in range", data: concat(pngSignature, ihdr), want: Type{"png", "image/png"}},
		{name: "gzip", data: []byte{0x1F, 0x8B, 0x08, 0x00, 0x00}, want: Type{"gz", "application/gzip"}},
		{name: "exe", data: []byte("MZ\x90\x00\x03\x00"), want: Type{"exe", "application/x-msdownload"}},
		{name: "mp3 frame", data: []byte{0xFF, 0xFB, 0x90, 0x00}, want: typeMP3},
		{name: "aac adts", data: []byte{0xFF, 0xF1, 0x50, 0x80}, want: Type{"aac", "audio/aac"}},
		{name: "id3 then flac", data: concat(id3Tag(10), make([]byte, 10), []byte("fLaC\x00\x00\x00\x22")), want: Type{"flac", "audio/x-flac"}},
		{name: "id3 then frame", data: concat(id3Tag(4), make([]byte, 4), []byte{0xFF, 0xFB, 0x90, 0x00}), want: typeMP3},
		{name: "id3 past end", data: concat(id3Tag(128), []byte{0, 0}), want: typeMP3},
		{name: "id3 then nothing known", data: concat(id3Tag(2), make([]byte, 2), []byte("zzzz")), want: Unknown},
		{name: "id3 header truncated", data: []byte{'I', 'D', '3', 0x03, 0x00, 0x00}, want: Unknown},
		{name: "postscript", data: []byte("%!PS-Adobe-3.0\n"), want: Type{"ps", "application/postscript"}},
		{name: "eps", data: []byte("%!PS-Adobe-3.0 EPSF-3.0\n"), want: Type{"eps", "application/eps"}},
		{name: "tiff", data: concat([]byte{'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x01}, make([]byte, 10)), want: typeTIFF},
		{name: "tiff big endian", data: concat([]byte{'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08, 0x00, 0x01, 0x01, 0x00}, make([]byte, 10)), want: typeTIFF},
		{name: "dng", data: concat([]byte{'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00, 0x01, 0x00, 0x12, 0xC6}, make([]byte, 10)), want: Type{"dng", "image/x-adobe-dng"}},
		{name: "arw", data: concat([]byte{'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00, 0x01, 0x00, 0xA5, 0xC4}, make([]byte, 10)), want: Type{"arw", "image/x-sony-arw"}},
		{name: "cr2", data: []byte{'I', 'I', 0x2A, 0x00, 0x10, 0x00, 0x00, 0x00, 'C', 'R', 0x02, 0x00}, want: Type{"cr2", "image/x-canon-cr2"}},
		{name: "bigtiff", data: []byte{'I', 'I', 0x2B, 0x00, 0x08, 0x00, 0x00, 0x00}, want: typeTIFF},
		{name: "webm", data: []byte{0x1A, 0x45, 0xDF, 0xA3, 0x87, 0x42, 0x82, 0x84, 'w', 'e', 'b', 'm'}, want: Type{"webm", "video/webm"}},
		{name: "matroska", data: []byte{0x1A, 0x45, 0xDF, 0xA3, 0x8B, 0x42, 0x82, 0x88, 'm', 'a', 't', 'r', 'o', 's', 'k', 'a'}, want: Type{"mkv", "video/x-matroska"}},
		{name: "wav", data: []byte("RIFF\x24\x00\x00\x00WAVEfmt "), want: Type{"wav", "audio/vnd.wave"}},
		{name: "avi", data: []byte("RIFF\x24\x00\x00\x00AVI LIST"), want: Type{"avi", "video/vnd.avi"}},
		{name: "webp", data: []byte("RIFF\x24\x00\x00\x00WEBPVP8 "), want: Type{"webp", "image/webp"}},
		{name: "opus", data: pad(concat([]byte("OggS"), make([]byte, 24), []byte("OpusHead")), 40), want: Type{"opus", "audio/opus"}},
		{name: "ogg container", data: pad([]byte("OggS"), 40), want: Type{"ogx", "application/ogg"}},
		{name: "jp2", data: concat([]byte{0x00, 0x00, 0x00, 0x0C, 0x6A, 0x50, 0x20, 0x20, 0x0D, 0x0A, 0x87, 0x0A}, []byte("\x00\x00\x00\x14ftypjp2 ")), want: Type{"jp2", "image/jp2"}},
		{name: "mpeg-2 program stream", data: []byte{0x00, 0x00, 0x01, 0xBA, 0x44, 0x00}, want: Type{"mpg", "video/MP2P"}},
		{name: "mpeg video", data: []byte{0x00, 0x00, 0x01, 0xB3, 0x14, 0x00}, want: typeMPEG},
		{name: "deb", data: []byte("!<arch>\ndebian-binary   "), want: Type{"deb", "application/x-deb"}},
		{name: "ar", data: []byte("!<arch>\nfoo.o/          "), want: Type{"ar", "application/x-unix-archive"}},
		{name: "lzh", data: []byte("\x00\x00-lh5-\x00\x00"), want: Type{"lzh", "application/x-lzh-compressed"}},
		{name: "ustar", data: nil, want: typeTAR},
		{name: "v7 tar", data: pad(v7TarHeader("hello.txt"), 1024), want: typeTAR},
		{name: "transport stream", data: func() []byte { b := make([]byte, 200); b[0], b[188] = 0x47, 0x47; return b }(), want: Type{"mts", "video/mp2t"}},
		{name: "pdf", data: []byte("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n"), want: typePDF},
		{name: "illustrator", data: []byte("%PDF-1.5\n1 0 obj\n<</AIPrivateData1 2 0 R>>"), want: Type{"ai", "application/postscript"}},
		{name: "heic brand", data: concat(ftypBox("heic", "mif1", "heic")), want: typeHEIC},
		{name: "isom with avif brand", data: concat(ftypBox("isom", "avif", "mif1")), want: typeAVIF},
		{name: "isom defaults to mp4", data: concat(ftypBox("isom", "iso2", "mp41")), want: typeMP4},
		{name: "quicktime without ftyp", data: []byte("\x00\x00\x00\x08wide\x00\x00\x00\x08mdat"), want: typeMOV},
		{name: "compound file", data: pad(cfbMagic, 64), want: typeCFB},
		{name: "xml declaration", data: []byte("<?xml version=\"1.0\"?>"), want: typeXML},
		{name: "sqlite", data: []byte("SQLite format 3\x00"), want: Type{"sqlite", "application/x-sqlite3"}},
	}

	core := NewCore(NewZIP())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data
			if tt.name == "ustar" {
				data = ustarArchive(t)
			}
			got, err := core.Detect(WindowFromBytes(data))
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCore_NoMatch(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "single byte", data: []byte{0x89}},
		{name: "truncated png magic", data: []byte{0x89, 0x50, 0x4E}},
		{name: "plain text", data: []byte("hello, world\nthis is text\n")},
		{name: "ebml with unknown doctype", data: []byte{0x1A, 0x45, 0xDF, 0xA3, 0x87, 0x42, 0x82, 0x84, 'a', 'b', 'c', 'd'}},
		{name: "zeros", data: make([]byte, 600)},
		{name: "lonely sync byte", data: []byte{0x47, 0x00, 0x00}},
	}

	core := NewCore(NewZIP())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := core.Detect(WindowFromBytes(tt.data))
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if !got.IsUnknown() {
				t.Errorf("Detect() = %v, want unknown", got)
			}
		})
	}
}

func TestCore_ZipWithoutPlugin(t *testing.T) {
	data := createZip(t, zipEntry{name: "[Content_Types].xml"}, zipEntry{name: "word/document.xml"})

	got, err := NewCore(nil).Detect(WindowFromBytes(data))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got != typeZIP {
		t.Errorf("Detect() = %v, want %v", got, typeZIP)
	}

	got, err = NewCore(NewZIP()).Detect(WindowFromBytes(data))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if got.Extension != "docx" {
		t.Errorf("Detect() = %v, want docx", got)
	}
}

func TestCore_SourceError(t *testing.T) {
	_, err := NewCore(nil).Detect(NewWindow(failingReaderAt{}, 64, DefaultLimits()))
	if GetErrorType(err) != ErrorTypeSource {
		t.Errorf("Detect() error = %v, want source error", err)
	}
}
