package dropzone

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/whatfile"
)

func newInspector(t *testing.T) *whatfile.Inspector {
	t.Helper()
	i, err := whatfile.New(nil, whatfile.WithLogger(whatfile.NewLogger(os.Stderr, whatfile.LogLevelError, false)))
	require.NoError(t, err)
	return i
}

func next(t *testing.T, reports <-chan *whatfile.Report) *whatfile.Report {
	t.Helper()
	select {
	case r, ok := <-reports:
		require.True(t, ok, "report channel closed")
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a report")
		return nil
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(dir, newInspector(t),
		WithSettle(20*time.Millisecond),
		WithSelector(whatfile.Not(whatfile.MustGlob("*.tmp"))),
	)
	reports, err := w.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.tmp"), []byte("GIF89a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "upload.png"), []byte("GIF89a\x01\x00\x01\x00"), 0o644))

	r := next(t, reports)
	assert.Equal(t, "upload.png", r.Name)
	assert.Equal(t, "gif", r.Type.Extension)
	assert.True(t, r.Mismatch)

	cancel()
	for range reports {
	}
}

func TestWatcher_Recursive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "existing"), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(dir, newInspector(t), WithSettle(20*time.Millisecond), WithRecursive(true))
	reports, err := w.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing", "a.pdf"), []byte("%PDF-1.4\n"), 0o644))
	r := next(t, reports)
	assert.Equal(t, "pdf", r.Type.Extension)
	assert.Equal(t, filepath.Join(dir, "existing", "a.pdf"), r.Path)
}

func TestWatcher_MissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), newInspector(t))
	_, err := w.Watch(context.Background())
	require.Error(t, err)
}

func TestDebouncer(t *testing.T) {
	fired := make(chan string, 10)
	d := &debouncer{
		delay:  30 * time.Millisecond,
		timers: map[string]*time.Timer{},
		fire:   func(path string) { fired <- path },
	}

	for range 5 {
		d.touch("a")
		time.Sleep(5 * time.Millisecond)
	}
	d.touch("b")
	d.cancel("b")

	select {
	case p := <-fired:
		assert.Equal(t, "a", p)
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired")
	}

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, fired)
}
