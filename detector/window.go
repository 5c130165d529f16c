package detector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Size constants
const (
	KB = 1024
	MB = 1024 * KB
)

// Limits bounds the work a single detection may do
type Limits struct {
	// PrefixSize is the number of leading bytes buffered for signature checks
	PrefixSize int

	// MaxBuffer caps how much of a non-seekable stream may be buffered
	MaxBuffer int

	// MaxZipEntries caps central directory / local header enumeration
	MaxZipEntries int

	// MaxBoxes caps the number of ISO-BMFF boxes visited
	MaxBoxes int

	// MaxDirSectors caps the compound file directory chain length
	MaxDirSectors int
}

// DefaultLimits returns the limits used when none are supplied
func DefaultLimits() Limits {
	return Limits{
		PrefixSize:    4 * KB,
		MaxBuffer:     1 * MB,
		MaxZipEntries: 10000,
		MaxBoxes:      1024,
		MaxDirSectors: 256,
	}
}

func (l Limits) normalize() Limits {
	d := DefaultLimits()
	if l.PrefixSize <= 0 {
		l.PrefixSize = d.PrefixSize
	}
	if l.MaxBuffer < l.PrefixSize {
		l.MaxBuffer = max(d.MaxBuffer, l.PrefixSize)
	}
	if l.MaxZipEntries <= 0 {
		l.MaxZipEntries = d.MaxZipEntries
	}
	if l.MaxBoxes <= 0 {
		l.MaxBoxes = d.MaxBoxes
	}
	if l.MaxDirSectors <= 0 {
		l.MaxDirSectors = d.MaxDirSectors
	}
	return l
}

// source is the shared, lazily filled backing store of one or more windows
type source struct {
	ra   io.ReaderAt
	r    io.Reader
	size int64 // -1 while unknown
	buf  []byte
	eof  bool

	prefixLoaded bool
	limits       Limits
}

// Window is a read-only view over the leading bytes of an input plus
// on-demand probes at deeper offsets. Slices returned by its methods must not
// be modified.
//
// A Window is not safe for concurrent use; build one per detection.
type Window struct {
	src  *source
	base int64
}

// NewWindow creates a window over a random-access source of known size.
// Deep probes (ZIP end of central directory, compound file sectors) read
// straight from r without buffering the file.
func NewWindow(r io.ReaderAt, size int64, limits Limits) *Window {
	if size < 0 {
		size = 0
	}
	return &Window{src: &source{
		ra:     r,
		size:   size,
		limits: limits.normalize(),
	}}
}

// WindowFromBytes creates a window over an in-memory buffer
func WindowFromBytes(data []byte) *Window {
	return NewWindow(bytes.NewReader(data), int64(len(data)), DefaultLimits())
}

// WindowFromReader creates a window over a non-seekable stream. At most
// limits.MaxBuffer bytes are ever read from r; probes beyond that report
// ErrInsufficientData.
func WindowFromReader(r io.Reader, limits Limits) *Window {
	return &Window{src: &source{
		r:      r,
		size:   -1,
		limits: limits.normalize(),
	}}
}

// Limits returns the limits this window was built with
func (w *Window) Limits() Limits {
	return w.src.limits
}

// Size returns the number of bytes in the input after the window's base
// offset, or -1 if the stream has not been read to the end yet.
func (w *Window) Size() int64 {
	if w.src.size < 0 {
		return -1
	}
	return max(w.src.size-w.base, 0)
}

// Offset returns the window's base offset in the underlying input
func (w *Window) Offset() int64 {
	return w.base
}

// Slice returns a window that starts off bytes further into the input.
// Both windows share the same backing buffer.
func (w *Window) Slice(off int64) *Window {
	if off < 0 {
		off = 0
	}
	return &Window{src: w.src, base: w.base + off}
}

// ReadAt returns exactly n bytes at offset off, or ErrInsufficientData if the
// input ends before off+n. I/O failures are returned as *SourceError.
func (w *Window) ReadAt(off int64, n int) ([]byte, error) {
	if off < 0 || n < 0 {
		return nil, ErrInsufficientData
	}
	return w.src.readAt(w.base+off, n)
}

// Prefix returns up to PrefixSize leading bytes
func (w *Window) Prefix() ([]byte, error) {
	return w.Head(w.src.limits.PrefixSize)
}

// Head returns up to n leading bytes; fewer when the input is shorter
func (w *Window) Head(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	if size := w.Size(); size >= 0 && int64(n) > size {
		n = int(size)
	}
	b, err := w.ReadAt(0, n)
	if errors.Is(err, ErrInsufficientData) {
		// stream ended before n; Size is now known
		if size := w.Size(); size >= 0 && int64(n) > size {
			return w.ReadAt(0, int(size))
		}
	}
	return b, err
}

// Has reports whether sig occurs at off. Any read error yields false.
func (w *Window) Has(off int64, sig []byte) bool {
	b, err := w.ReadAt(off, len(sig))
	return err == nil && bytes.Equal(b, sig)
}

// HasString is Has with a string signature
func (w *Window) HasString(off int64, sig string) bool {
	return w.Has(off, []byte(sig))
}

// HasMask reports whether the bytes at off, masked with mask, equal sig
func (w *Window) HasMask(off int64, sig, mask []byte) bool {
	b, err := w.ReadAt(off, len(sig))
	if err != nil {
		return false
	}
	for i := range sig {
		m := byte(0xFF)
		if i < len(mask) {
			m = mask[i]
		}
		if b[i]&m != sig[i] {
			return false
		}
	}
	return true
}

// Index returns the offset of the first occurrence of sep lying entirely in
// [start, limit), or -1. The input is searched in prefix-sized chunks.
func (w *Window) Index(start, limit int64, sep []byte) (int64, error) {
	if len(sep) == 0 {
		return start, nil
	}
	chunk := int64(max(w.src.limits.PrefixSize, 2*len(sep)))
	step := chunk - int64(len(sep)) + 1

	for pos := max(start, 0); pos < limit; pos += step {
		n := min(chunk, limit-pos)
		b, err := w.Slice(pos).Head(int(n))
		if err != nil {
			if IsNoMatch(err) {
				return -1, nil
			}
			return -1, err
		}
		if i := bytes.Index(b, sep); i > -1 {
			return pos + int64(i), nil
		}
		if int64(len(b)) < n {
			break
		}
	}
	return -1, nil
}

// Uint16 reads a 2-byte integer at off
func (w *Window) Uint16(off int64, bo binary.ByteOrder) (uint16, error) {
	b, err := w.ReadAt(off, 2)
	if err != nil {
		return 0, err
	}
	return bo.Uint16(b), nil
}

// Uint32 reads a 4-byte integer at off
func (w *Window) Uint32(off int64, bo binary.ByteOrder) (uint32, error) {
	b, err := w.ReadAt(off, 4)
	if err != nil {
		return 0, err
	}
	return bo.Uint32(b), nil
}

// Uint64 reads an 8-byte integer at off
func (w *Window) Uint64(off int64, bo binary.ByteOrder) (uint64, error) {
	b, err := w.ReadAt(off, 8)
	if err != nil {
		return 0, err
	}
	return bo.Uint64(b), nil
}

// Section returns a reader over the whole input (from the window's base).
// It is unavailable for streams longer than MaxBuffer.
func (w *Window) Section() (*io.SectionReader, bool) {
	s := w.src
	if s.ra != nil {
		return io.NewSectionReader(s.ra, w.base, max(s.size-w.base, 0)), true
	}
	if err := s.fillStream(int64(s.limits.MaxBuffer) + 1); err != nil || !s.eof {
		return nil, false
	}
	if w.base > int64(len(s.buf)) {
		return nil, false
	}
	data := s.buf[w.base:]
	return io.NewSectionReader(bytes.NewReader(data), 0, int64(len(data))), true
}

func (s *source) readAt(off int64, n int) ([]byte, error) {
	end := off + int64(n)
	if s.size >= 0 && end > s.size {
		return nil, ErrInsufficientData
	}

	if s.ra == nil {
		if err := s.fillStream(end); err != nil {
			return nil, err
		}
		if end > int64(len(s.buf)) {
			return nil, ErrInsufficientData
		}
		return s.buf[off:end:end], nil
	}

	if end <= int64(s.limits.PrefixSize) {
		if err := s.loadPrefix(); err != nil {
			return nil, err
		}
		if end > int64(len(s.buf)) {
			return nil, ErrInsufficientData
		}
		return s.buf[off:end:end], nil
	}

	p := make([]byte, n)
	m, err := s.ra.ReadAt(p, off)
	if m == n {
		return p, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil, ErrInsufficientData
	}
	return nil, &SourceError{Offset: off, Err: err}
}

// loadPrefix reads the first PrefixSize bytes of a random-access source
func (s *source) loadPrefix() error {
	if s.prefixLoaded {
		return nil
	}
	n := int64(s.limits.PrefixSize)
	if s.size < n {
		n = s.size
	}
	p := make([]byte, n)
	m, err := s.ra.ReadAt(p, 0)
	if err != nil && !errors.Is(err, io.EOF) && int64(m) != n {
		return &SourceError{Offset: 0, Err: err}
	}
	s.buf = p[:m]
	if int64(m) < n {
		// source is shorter than advertised
		s.size = int64(m)
	}
	s.prefixLoaded = true
	return nil
}

// fillStream buffers a non-seekable stream until it holds end bytes, the
// stream is exhausted, or MaxBuffer is reached
func (s *source) fillStream(end int64) error {
	if s.eof || end <= int64(len(s.buf)) {
		return nil
	}
	limit := int64(s.limits.MaxBuffer)
	if int64(len(s.buf)) >= limit {
		return nil
	}

	// Read ahead at least a prefix worth of bytes to avoid tiny reads
	target := max(end, int64(len(s.buf)+s.limits.PrefixSize))
	target = min(target, limit)

	chunk := make([]byte, target-int64(len(s.buf)))
	nr, err := io.ReadFull(s.r, chunk)
	s.buf = append(s.buf, chunk[:nr]...)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		s.eof = true
		s.size = int64(len(s.buf))
	default:
		return &SourceError{Offset: int64(len(s.buf)), Err: fmt.Errorf("error while reading from the stream: %w", err)}
	}
	return nil
}
