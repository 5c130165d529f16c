package whatfile

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gobeaver/whatfile/detector"
	"github.com/gobeaver/whatfile/detector/fallback"
)

// Inspector runs detections for files and readers and turns them into Reports.
// An Inspector is safe for concurrent use.
type Inspector struct {
	limits   detector.Limits
	extra    []detector.Detector
	checksum ChecksumAlgorithm
	workers  int
	log      *Logger
	progress func(Report)
	cache    Cache
	cacheTTL time.Duration
}

// Option configures an Inspector
type Option func(*Inspector)

// WithLogger sets the logger. The default writes to stderr at the configured level.
func WithLogger(l *Logger) Option {
	return func(i *Inspector) {
		i.log = l
	}
}

// WithDetectors appends extra detectors after the built-in chain
func WithDetectors(detectors ...detector.Detector) Option {
	return func(i *Inspector) {
		i.extra = append(i.extra, detectors...)
	}
}

// WithChecksum adds a content checksum to every report
func WithChecksum(algorithm ChecksumAlgorithm) Option {
	return func(i *Inspector) {
		i.checksum = algorithm
	}
}

// WithWorkers sets how many files InspectAll processes at once
func WithWorkers(n int) Option {
	return func(i *Inspector) {
		i.workers = n
	}
}

// WithLimits overrides the detection limits from the config
func WithLimits(limits detector.Limits) Option {
	return func(i *Inspector) {
		i.limits = limits
	}
}

// WithProgress registers a callback receiving a copy of a report on every
// status change. It may be called from several goroutines at once.
func WithProgress(fn func(Report)) Option {
	return func(i *Inspector) {
		i.progress = fn
	}
}

// WithCache remembers the results of InspectFile keyed by path, size and
// modification time. Entries expire after ttl, 0 keeps them forever.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(i *Inspector) {
		i.cache = c
		i.cacheTTL = ttl
	}
}

// New creates an Inspector from cfg. A nil cfg uses the defaults.
func New(cfg *Config, opts ...Option) (*Inspector, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := NewLoggerFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	i := &Inspector{
		limits:   cfg.Limits(),
		checksum: ChecksumAlgorithm(cfg.Checksum),
		workers:  cfg.Workers,
		log:      logger,
	}
	if cfg.Fallback {
		i.extra = append(i.extra, fallback.New())
	}
	for _, opt := range opts {
		opt(i)
	}

	if i.workers <= 0 {
		i.workers = 1
	}
	if i.log == nil {
		i.log = discardLogger()
	}
	if i.checksum != "" {
		if _, err := NewHasher(i.checksum); err != nil {
			return nil, err
		}
	}
	return i, nil
}

// validateConfig checks configuration validity
func validateConfig(cfg *Config) error {
	if cfg.Workers < 0 {
		return errors.New("workers must not be negative")
	}
	if cfg.Checksum != "" {
		var algo ChecksumAlgorithm
		if err := algo.Set(cfg.Checksum); err != nil {
			return err
		}
	}
	for _, p := range append(cfg.IncludePatterns(), cfg.ExcludePatterns()...) {
		if _, err := compilePattern(p); err != nil {
			return err
		}
	}
	return nil
}

// detectOptions builds the per detection options. Recovered faults are
// logged at debug level and recorded on the report.
func (i *Inspector) detectOptions(r *Report) []detector.Option {
	return []detector.Option{
		detector.WithLimits(i.limits),
		detector.WithDetectors(i.extra...),
		detector.WithFaultHandler(func(f *detector.FaultError) {
			i.log.Debugf(r.Name, "recovered detector fault: %v", LogValue("fault", f))
			r.Faults = append(r.Faults, f.Error())
		}),
	}
}

func (i *Inspector) setStatus(r *Report, s Status) {
	r.Status = s
	if i.progress != nil {
		i.progress(*r)
	}
}

// InspectFile detects the type of the file at path. The returned report is
// never nil; a failed inspection has StatusError and the error set.
func (i *Inspector) InspectFile(ctx context.Context, path string) (*Report, error) {
	r := newReport(filepath.Base(path), path, -1)
	i.setStatus(r, StatusPending)

	f, info, err := openRegular(path)
	if err != nil {
		return i.fail(r, err)
	}
	defer f.Close()
	r.Size = info.Size()

	if i.cache == nil {
		return i.inspect(ctx, r, f, r.Size)
	}

	key := resultKey(path, info, i.checksum)
	if v, ok := i.cache.Get(key); ok {
		res := v.(cachedResult)
		r.Faults = res.Faults
		if res.Checksum != "" {
			r.Checksum = res.Checksum
			r.ChecksumAlgorithm = i.checksum
		}
		r.finish(res.Type, nil, 0)
		i.setStatus(r, StatusDone)
		i.log.Debugf(r.Name, "cached result %v", LogValue("type", res.Type))
		return r, nil
	}

	r, err = i.inspect(ctx, r, f, r.Size)
	if err == nil {
		i.cache.Set(key, cachedResult{Type: r.Type, Faults: r.Faults, Checksum: r.Checksum}, i.cacheTTL)
	}
	return r, err
}

// InspectReader detects the type of r, reported under name. size is the
// length of r, or -1 when unknown; readers implementing io.ReaderAt with a
// known size are probed without buffering.
func (i *Inspector) InspectReader(ctx context.Context, name string, r io.Reader, size int64) (*Report, error) {
	rep := newReport(name, "", size)
	i.setStatus(rep, StatusPending)
	return i.inspect(ctx, rep, r, size)
}

func (i *Inspector) inspect(ctx context.Context, r *Report, src io.Reader, size int64) (*Report, error) {
	i.setStatus(r, StatusDetecting)
	start := time.Now()

	var h hash.Hash
	if i.checksum != "" {
		// NewHasher cannot fail here, the algorithm was checked in New
		h, _ = NewHasher(i.checksum)
	}

	var (
		w    *detector.Window
		ra   io.ReaderAt
		tee  io.Reader
		opts = i.detectOptions(r)
	)
	if at, ok := src.(io.ReaderAt); ok && size >= 0 {
		ra = at
		w = detector.NewWindow(at, size, i.limits)
	} else {
		if h != nil {
			src = io.TeeReader(src, h)
			tee = src
		}
		w = detector.WindowFromReader(src, i.limits)
	}

	t, err := detector.Detect(ctx, w, opts...)
	if err != nil {
		return i.fail(r, err)
	}

	if h != nil {
		switch {
		case ra != nil:
			_, err = io.Copy(h, io.NewSectionReader(ra, 0, size))
		default:
			// the window consumed a prefix through the tee; hash the rest
			_, err = io.Copy(io.Discard, tee)
		}
		if err != nil {
			return i.fail(r, fmt.Errorf("failed to calculate checksum: %w", err))
		}
		r.Checksum = hex.EncodeToString(h.Sum(nil))
		r.ChecksumAlgorithm = i.checksum
	}

	r.finish(t, nil, time.Since(start))
	i.setStatus(r, StatusDone)

	switch {
	case r.Mismatch:
		i.log.Logf(r.Name, "extension .%s does not match detected type %v", r.NominalExt, LogValue("type", t))
	case t.IsUnknown():
		i.log.Infof(r.Name, "type unknown")
	default:
		i.log.Infof(r.Name, "detected %v", LogValue("type", t))
	}
	return r, nil
}

func (i *Inspector) fail(r *Report, err error) (*Report, error) {
	r.finish(detector.Unknown, err, 0)
	i.setStatus(r, StatusError)
	i.log.Errorf(r.Name, "inspection failed: %v", err)
	return r, err
}

// InspectAll inspects every path with up to Workers files in flight. Reports
// are returned in the order of paths. Failures of single files are recorded
// in their reports; the returned error is only set when ctx ends the batch,
// in which case paths never started carry the context error.
func (i *Inspector) InspectAll(ctx context.Context, paths []string) ([]*Report, error) {
	reports := make([]*Report, len(paths))

	var g errgroup.Group
	g.SetLimit(i.workers)
	for n, path := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			reports[n], _ = i.InspectFile(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		for n, r := range reports {
			if r == nil {
				r = newReport(filepath.Base(paths[n]), paths[n], -1)
				r.finish(detector.Unknown, err, 0)
				reports[n] = r
			}
		}
		return reports, err
	}
	return reports, nil
}

// openRegular opens path for reading and rejects anything but regular files
func openRegular(path string) (*os.File, fs.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, mapOSError("open", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, mapOSError("stat", path, err)
	}
	switch {
	case info.IsDir():
		f.Close()
		return nil, nil, &PathError{Op: "inspect", Path: path, Err: ErrIsDir}
	case !info.Mode().IsRegular():
		f.Close()
		return nil, nil, &PathError{Op: "inspect", Path: path, Err: ErrNotRegular}
	}
	return f, info, nil
}

// mapOSError translates os errors into the package sentinels
func mapOSError(op, path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		err = ErrNotExist
	case errors.Is(err, fs.ErrPermission):
		err = ErrPermission
	}
	return &PathError{Op: op, Path: path, Err: err}
}

// Global instance
var (
	defaultInspector *Inspector
	defaultOnce      sync.Once
	defaultErr       error
)

// Builder provides a way to create Inspectors from environment variables
// with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// New creates a new Inspector using the builder's prefix
func (b *Builder) New(opts ...Option) (*Inspector, error) {
	cfg, err := GetConfigWithPrefix(b.prefix)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Init initializes the global Inspector
func Init(configs ...*Config) error {
	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		defaultInspector, defaultErr = New(cfg)
	})

	return defaultErr
}

// Default returns the global Inspector, initializing it from the environment if needed
func Default() (*Inspector, error) {
	if defaultInspector == nil {
		if err := Init(); err != nil {
			return nil, err
		}
	}
	return defaultInspector, nil
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultInspector = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}

// InspectFile inspects path with the global Inspector
func InspectFile(ctx context.Context, path string) (*Report, error) {
	i, err := Default()
	if err != nil {
		return nil, err
	}
	return i.InspectFile(ctx, path)
}
