package whatfile

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/whatfile/detector"
)

var (
	gifData = append([]byte("GIF89a\x01\x00\x01\x00"), bytes.Repeat([]byte{0}, 64)...)

	// isom file with an image item brand and no movie box
	heifData = append(
		[]byte("\x00\x00\x00\x14ftypisom\x00\x00\x00\x00mif1"),
		append([]byte("\x00\x00\x00\x18meta"), make([]byte, 16)...)...,
	)
)

func newTestInspector(t *testing.T, opts ...Option) *Inspector {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	i, err := New(nil, opts...)
	require.NoError(t, err)
	return i
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// streamReader hides io.ReaderAt
type streamReader struct {
	io.Reader
}

func TestInspector_InspectFile(t *testing.T) {
	dir := t.TempDir()
	i := newTestInspector(t)

	tests := []struct {
		name     string
		data     []byte
		wantExt  string
		mismatch bool
	}{
		{name: "a.gif", data: gifData, wantExt: "gif"},
		{name: "renamed.png", data: gifData, wantExt: "gif", mismatch: true},
		{name: "doc.pdf", data: []byte("%PDF-1.7\n"), wantExt: "pdf"},
		{name: "icon.svg", data: []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`), wantExt: "svg"},
		{name: "photo.heic", data: heifData, wantExt: "heic"},
		{name: "notes.txt", data: []byte("just some words\n"), wantExt: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name, tt.data)

			r, err := i.InspectFile(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, StatusDone, r.Status)
			assert.Equal(t, tt.name, r.Name)
			assert.Equal(t, path, r.Path)
			assert.Equal(t, int64(len(tt.data)), r.Size)
			assert.Equal(t, tt.wantExt, r.Type.Extension)
			assert.Equal(t, tt.mismatch, r.Mismatch)
			assert.Equal(t, tt.wantExt != "", r.Known())
		})
	}
}

func TestInspector_Errors(t *testing.T) {
	dir := t.TempDir()
	i := newTestInspector(t)

	r, err := i.InspectFile(context.Background(), filepath.Join(dir, "missing.gif"))
	require.Error(t, err)
	assert.True(t, IsNotExist(err))
	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, err, r.Err)

	r, err = i.InspectFile(context.Background(), dir)
	assert.ErrorIs(t, err, ErrIsDir)
	assert.Equal(t, StatusError, r.Status)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = i.InspectFile(ctx, writeFile(t, dir, "a.gif", gifData))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInspector_Faults(t *testing.T) {
	var logs bytes.Buffer
	i := newTestInspector(t, WithLogger(NewLogger(&logs, LogLevelDebug, false)))

	r, err := i.InspectReader(context.Background(), "image.heic", bytes.NewReader(heifData), int64(len(heifData)))
	require.NoError(t, err)
	assert.Equal(t, "heic", r.Type.Extension)
	require.Len(t, r.Faults, 1)
	assert.Contains(t, r.Faults[0], "bmff")
	assert.Contains(t, logs.String(), "recovered detector fault")
}

func TestInspector_Checksum(t *testing.T) {
	data := append(bytes.Clone(gifData), bytes.Repeat([]byte("x"), 64*1024)...)
	dir := t.TempDir()
	path := writeFile(t, dir, "big.gif", data)

	for _, algo := range ChecksumAlgorithms() {
		t.Run(string(algo), func(t *testing.T) {
			want, err := CalculateChecksum(bytes.NewReader(data), algo)
			require.NoError(t, err)

			i := newTestInspector(t, WithChecksum(algo))

			r, err := i.InspectFile(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, want, r.Checksum)
			assert.Equal(t, algo, r.ChecksumAlgorithm)

			r, err = i.InspectReader(context.Background(), "big.gif", streamReader{bytes.NewReader(data)}, -1)
			require.NoError(t, err)
			assert.Equal(t, "gif", r.Type.Extension)
			assert.Equal(t, want, r.Checksum, "stream checksum")
		})
	}
}

func TestInspector_Progress(t *testing.T) {
	var (
		mu       sync.Mutex
		statuses []Status
	)
	i := newTestInspector(t, WithProgress(func(r Report) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, r.Status)
	}))

	_, err := i.InspectReader(context.Background(), "a.gif", bytes.NewReader(gifData), int64(len(gifData)))
	require.NoError(t, err)
	assert.Equal(t, []Status{StatusPending, StatusDetecting, StatusDone}, statuses)

	statuses = nil
	_, err = i.InspectFile(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, []Status{StatusPending, StatusError}, statuses)
}

func TestInspector_MismatchLogged(t *testing.T) {
	var logs bytes.Buffer
	i := newTestInspector(t, WithLogger(NewLogger(&logs, LogLevelNotice, false)))

	_, err := i.InspectReader(context.Background(), "fake.jpg", bytes.NewReader(gifData), int64(len(gifData)))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "fake.jpg: extension .jpg does not match detected type gif")

	logs.Reset()
	_, err = i.InspectReader(context.Background(), "real.gif", bytes.NewReader(gifData), int64(len(gifData)))
	require.NoError(t, err)
	assert.Empty(t, logs.String())
}

func TestInspector_ExtraDetectors(t *testing.T) {
	magic := detector.Named("magic", func(w *detector.Window) (detector.Type, error) {
		if w.HasString(0, "MAGIC") {
			return detector.NewType("mgc", "application/x-magic"), nil
		}
		return detector.Unknown, nil
	})
	i := newTestInspector(t, WithDetectors(magic))

	r, err := i.InspectReader(context.Background(), "x.mgc", strings.NewReader("MAGIC!"), 6)
	require.NoError(t, err)
	assert.Equal(t, "mgc", r.Type.Extension)
	assert.False(t, r.Mismatch)
}

func TestInspector_InspectAll(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "1.gif", gifData),
		writeFile(t, dir, "2.pdf", []byte("%PDF-1.4")),
		filepath.Join(dir, "3-missing.gif"),
		writeFile(t, dir, "4.svg", []byte("<svg/>")),
		writeFile(t, dir, "5.heic", heifData),
		writeFile(t, dir, "6.gif", gifData),
	}
	i := newTestInspector(t, WithWorkers(3))

	reports, err := i.InspectAll(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, reports, len(paths))

	want := []string{"gif", "pdf", "", "svg", "heic", "gif"}
	for n, r := range reports {
		assert.Equal(t, paths[n], r.Path)
		assert.Equal(t, want[n], r.Type.Extension, r.Name)
	}
	assert.Equal(t, StatusError, reports[2].Status)
	assert.True(t, IsNotExist(reports[2].Err))
}

func TestInspector_InspectAllCancelled(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeFile(t, dir, "1.gif", gifData), writeFile(t, dir, "2.gif", gifData)}
	i := newTestInspector(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := i.InspectAll(ctx, paths)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Equal(t, StatusError, r.Status)
		assert.True(t, errors.Is(r.Err, context.Canceled))
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "negative workers", cfg: Config{Workers: -1}},
		{name: "unknown checksum", cfg: Config{Checksum: "crc64"}, wantErr: ErrNotSupported},
		{name: "bad include", cfg: Config{Include: "*.[jpg"}, wantErr: ErrInvalidPattern},
		{name: "bad exclude", cfg: Config{Exclude: "ok,*.[jpg"}, wantErr: ErrInvalidPattern},
		{name: "bad log level", cfg: Config{LogLevel: "chatty"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&tt.cfg)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	_, err := New(nil, WithChecksum("crc64"))
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestDefault(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	require.NoError(t, Init(&Config{Workers: 2, LogLevel: "ERROR"}))

	i, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 2, i.workers)

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, i, again)

	path := writeFile(t, t.TempDir(), "a.gif", gifData)
	r, err := InspectFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "gif", r.Type.Extension)
}

func TestBuilder(t *testing.T) {
	i, err := WithPrefix("BEAVER_").New(WithLogger(discardLogger()), WithWorkers(7))
	require.NoError(t, err)
	assert.Equal(t, 7, i.workers)
	assert.Equal(t, detector.Limits{
		PrefixSize:    4096,
		MaxBuffer:     1048576,
		MaxZipEntries: 10000,
		MaxBoxes:      1024,
		MaxDirSectors: 256,
	}, i.limits)
}
