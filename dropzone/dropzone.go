// Package dropzone inspects files as they appear in a directory.
package dropzone

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gobeaver/whatfile"
)

// DefaultSettle is how long a file must stay unchanged before it is inspected
const DefaultSettle = 250 * time.Millisecond

// Watcher inspects files created or rewritten below a directory
type Watcher struct {
	dir       string
	inspector *whatfile.Inspector
	selector  whatfile.Selector
	recursive bool
	settle    time.Duration
	log       *whatfile.Logger
}

// Option configures a Watcher
type Option func(*Watcher)

// WithSelector restricts inspection to matching files
func WithSelector(sel whatfile.Selector) Option {
	return func(w *Watcher) {
		w.selector = sel
	}
}

// WithRecursive watches subdirectories too, including ones created later
func WithRecursive(recursive bool) Option {
	return func(w *Watcher) {
		w.recursive = recursive
	}
}

// WithSettle sets the quiet period before a changed file is inspected
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		w.settle = d
	}
}

// WithLogger sets the logger for watch errors
func WithLogger(l *whatfile.Logger) Option {
	return func(w *Watcher) {
		w.log = l
	}
}

// New creates a Watcher for dir
func New(dir string, inspector *whatfile.Inspector, opts ...Option) *Watcher {
	w := &Watcher{
		dir:       filepath.Clean(dir),
		inspector: inspector,
		selector:  whatfile.All(),
		settle:    DefaultSettle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch starts watching and returns a channel of reports, one per settled
// file. The channel is closed when ctx is done. Files that vanish before
// they settle are dropped.
func (w *Watcher) Watch(ctx context.Context) (<-chan *whatfile.Report, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &whatfile.PathError{Op: "watch", Path: w.dir, Err: err}
	}
	if err := w.addDirs(fsw, w.dir); err != nil {
		fsw.Close()
		return nil, err
	}

	out := make(chan *whatfile.Report)
	ready := make(chan string)
	d := &debouncer{
		delay:  w.settle,
		timers: map[string]*time.Timer{},
		fire: func(path string) {
			select {
			case ready <- path:
			case <-ctx.Done():
			}
		},
	}

	go func() {
		defer close(out)
		defer fsw.Close()
		defer d.stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				w.handle(fsw, d, event)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.log.Errorf(w.dir, "watch error: %v", err)
			case path := <-ready:
				r, err := w.inspector.InspectFile(ctx, path)
				if whatfile.IsNotExist(err) {
					continue
				}
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, d *debouncer, event fsnotify.Event) {
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		d.cancel(event.Name)
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Lstat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if w.recursive && event.Has(fsnotify.Create) {
			if err := w.addDirs(fsw, event.Name); err != nil {
				w.log.Errorf(event.Name, "failed to watch: %v", err)
			}
		}
		return
	}
	if !info.Mode().IsRegular() || !w.selector.Match(w.entry(event.Name)) {
		return
	}
	d.touch(event.Name)
}

func (w *Watcher) entry(path string) *whatfile.Entry {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = filepath.ToSlash(rel)
	return &whatfile.Entry{
		Path:  path,
		Rel:   rel,
		Name:  filepath.Base(path),
		Depth: strings.Count(rel, "/") + 1,
	}
}

// addDirs watches dir and, when recursive, every directory below it
func (w *Watcher) addDirs(fsw *fsnotify.Watcher, dir string) error {
	if err := fsw.Add(dir); err != nil {
		return &whatfile.PathError{Op: "watch", Path: dir, Err: err}
	}
	if !w.recursive {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == dir {
			return nil
		}
		if !w.selector.TraverseDescendants(w.entry(path)) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return &whatfile.PathError{Op: "watch", Path: path, Err: err}
		}
		return nil
	})
}

// debouncer fires once per path after it stayed quiet for delay
type debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
	fire   func(path string)
}

func (d *debouncer) touch(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[path]; ok {
		t.Reset(d.delay)
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.timers[path] != t {
			// cancelled, or re-armed after this run was scheduled
			d.mu.Unlock()
			return
		}
		delete(d.timers, path)
		d.mu.Unlock()
		d.fire(path)
	})
	d.timers[path] = t
}

func (d *debouncer) cancel(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[path]; ok {
		t.Stop()
		delete(d.timers, path)
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for path, t := range d.timers {
		t.Stop()
		delete(d.timers, path)
	}
}
