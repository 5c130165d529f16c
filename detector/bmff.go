package detector

import (
	"encoding/binary"
	"errors"
	"math"
)

const maxBoxDepth = 8

// errNoMovieBox is returned for ISO base media files without a movie box,
// such as still images stored in an ambiguous container. It is not a
// "no match" error: unguarded, it aborts detection.
var errNoMovieBox = errors.New("bmff: no movie box")

// BMFF classifies ISO base media files (MP4, QuickTime, HEIF, AVIF, 3GP)
// from the ftyp brands. Ambiguous brands are resolved by checking whether
// the movie has video or only audio tracks.
//
// The track check assumes a movie box is present and fails for image-only
// files; wrap BMFF in Guard to let later detectors classify those.
type BMFF struct{}

// NewBMFF creates the ISO base media detector
func NewBMFF() *BMFF {
	return &BMFF{}
}

// Name implements Detector
func (d *BMFF) Name() string {
	return "bmff"
}

// Detect implements Detector
func (d *BMFF) Detect(w *Window) (Type, error) {
	if !w.HasString(4, "ftyp") {
		return Unknown, nil
	}
	box, err := readFileTypeBox(w)
	if err != nil {
		return Unknown, err
	}
	if t, ok := brandType(box.major); ok {
		return t, nil
	}
	if !isAmbiguousBrand(box.major) {
		return Unknown, nil
	}
	return d.movieType(w)
}

// movieType walks moov/trak/mdia/hdlr and reports mp4 when any track is
// video, m4a when the tracks are audio. Image sequences with only picture
// tracks are left to the brand table.
func (d *BMFF) movieType(w *Window) (Type, error) {
	bw := &boxWalker{w: w, budget: w.Limits().MaxBoxes}

	moov, ok, err := bw.find(box{start: 0, end: w.Size()}, 0, "moov")
	if err != nil {
		return Unknown, err
	}
	if !ok {
		return Unknown, errNoMovieBox
	}

	var video, audio, picture bool
	err = bw.children(moov, 1, func(trak box) (bool, error) {
		if trak.typ != "trak" {
			return false, nil
		}
		handler, err := bw.handler(trak)
		if err != nil {
			return false, err
		}
		switch handler {
		case "vide":
			video = true
			return true, nil
		case "soun":
			audio = true
		case "pict":
			picture = true
		}
		return false, nil
	})
	if err != nil {
		return Unknown, err
	}

	switch {
	case video:
		return typeMP4, nil
	case audio:
		return typeM4A, nil
	case picture:
		return Unknown, nil
	}
	return typeMP4, nil
}

// box is one ISO base media box. end is -1 when the box extends to the end
// of an input of unknown length.
type box struct {
	typ   string
	start int64 // payload offset
	end   int64
}

// boxWalker reads box headers within a shared budget
type boxWalker struct {
	w      *Window
	budget int
}

// read decodes the box header at off inside a parent ending at parentEnd
func (bw *boxWalker) read(off, parentEnd int64) (box, error) {
	if bw.budget <= 0 {
		return box{}, malformed("bmff", "box limit reached at offset %d", off)
	}
	bw.budget--

	hdr, err := bw.w.ReadAt(off, 8)
	if err != nil {
		return box{}, err
	}
	size := uint64(binary.BigEndian.Uint32(hdr[0:4]))
	b := box{typ: string(hdr[4:8]), start: off + 8}

	switch size {
	case 0:
		// box extends to the end of its parent
		b.end = parentEnd
		return b, nil
	case 1:
		large, err := bw.w.Uint64(off+8, binary.BigEndian)
		if err != nil {
			return box{}, err
		}
		size = large
		b.start = off + 16
	}

	if size < uint64(b.start-off) || size > math.MaxInt64/2 {
		return box{}, malformed("bmff", "box %q at offset %d has invalid size %d", b.typ, off, size)
	}
	b.end = off + int64(size)
	if parentEnd >= 0 && b.end > parentEnd {
		return box{}, malformed("bmff", "box %q at offset %d overruns its parent", b.typ, off)
	}
	return b, nil
}

// children calls fn for every child box of parent until fn returns true
func (bw *boxWalker) children(parent box, depth int, fn func(b box) (bool, error)) error {
	if depth > maxBoxDepth {
		return malformed("bmff", "boxes nested deeper than %d", maxBoxDepth)
	}

	off := parent.start
	for {
		end := parent.end
		if end < 0 {
			end = bw.w.Size()
		}
		if end >= 0 && off >= end {
			return nil
		}

		b, err := bw.read(off, parent.end)
		if err != nil {
			return err
		}
		stop, err := fn(b)
		if err != nil || stop {
			return err
		}
		if b.end < 0 {
			return nil
		}
		off = b.end
	}
}

// find returns the first child of parent with the given type
func (bw *boxWalker) find(parent box, depth int, typ string) (box, bool, error) {
	var (
		found box
		ok    bool
	)
	err := bw.children(parent, depth, func(b box) (bool, error) {
		if b.typ == typ {
			found, ok = b, true
			return true, nil
		}
		return false, nil
	})
	return found, ok, err
}

// handler returns the handler type of a track, or "" when it has none
func (bw *boxWalker) handler(trak box) (string, error) {
	mdia, ok, err := bw.find(trak, 2, "mdia")
	if err != nil || !ok {
		return "", err
	}
	hdlr, ok, err := bw.find(mdia, 3, "hdlr")
	if err != nil || !ok {
		return "", err
	}
	// version/flags and pre_defined precede the handler type
	raw, err := bw.w.ReadAt(hdlr.start+8, 4)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
