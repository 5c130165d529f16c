package whatfile

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Entry describes a file system entry seen while collecting inputs
type Entry struct {
	// Path as passed to os functions
	Path string

	// Rel is Path relative to the walked root, slash separated
	Rel string

	Name  string
	IsDir bool

	// Depth below the root, the root's children are at depth 1
	Depth int
}

// Selector decides which entries are inspected during a walk.
//
//	// inspect everything but hidden files, at most two levels deep
//	sel := whatfile.And(
//	    whatfile.Depth(2),
//	    whatfile.Not(whatfile.MustGlob(".*")),
//	)
type Selector interface {
	// Match returns true if the file should be inspected
	Match(e *Entry) bool

	// TraverseDescendants returns true if a directory should be descended
	// into. Only called for directories.
	TraverseDescendants(e *Entry) bool
}

// compilePattern compiles a glob pattern. Patterns containing a slash match
// the relative path, others the base name.
func compilePattern(pattern string) (glob.Glob, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, &PathError{Op: "glob", Path: pattern, Err: errors.Join(ErrInvalidPattern, err)}
	}
	return g, nil
}

type allSelector struct{}

func (allSelector) Match(*Entry) bool               { return true }
func (allSelector) TraverseDescendants(*Entry) bool { return true }

// All selects every file and descends into every directory
func All() Selector {
	return allSelector{}
}

type globSelector struct {
	g        glob.Glob
	fullPath bool
}

// Glob selects files matching pattern. Supports *, ?, [abc], {a,b} and **.
//
//	Glob("*.{jpg,jpeg}")   // any JPEG by name
//	Glob("photos/**.heic") // HEIC files anywhere below photos
func Glob(pattern string) (Selector, error) {
	g, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return &globSelector{g: g, fullPath: strings.Contains(pattern, "/")}, nil
}

// MustGlob is like Glob but panics on an invalid pattern
func MustGlob(pattern string) Selector {
	s, err := Glob(pattern)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *globSelector) Match(e *Entry) bool {
	if s.fullPath {
		return s.g.Match(e.Rel)
	}
	return s.g.Match(e.Name)
}

func (s *globSelector) TraverseDescendants(*Entry) bool {
	return true
}

type depthSelector struct {
	maxDepth int
}

// Depth limits selection to maxDepth levels below the root.
// Depth 1 = immediate children only.
func Depth(maxDepth int) Selector {
	return &depthSelector{maxDepth: maxDepth}
}

func (s *depthSelector) Match(e *Entry) bool {
	return e.Depth <= s.maxDepth
}

func (s *depthSelector) TraverseDescendants(e *Entry) bool {
	return e.Depth < s.maxDepth
}

type andSelector struct {
	selectors []Selector
}

// And matches only if all selectors match
func And(selectors ...Selector) Selector {
	return &andSelector{selectors: selectors}
}

func (s *andSelector) Match(e *Entry) bool {
	for _, sel := range s.selectors {
		if !sel.Match(e) {
			return false
		}
	}
	return true
}

func (s *andSelector) TraverseDescendants(e *Entry) bool {
	for _, sel := range s.selectors {
		if !sel.TraverseDescendants(e) {
			return false
		}
	}
	return true
}

type orSelector struct {
	selectors []Selector
}

// Or matches if any selector matches
func Or(selectors ...Selector) Selector {
	return &orSelector{selectors: selectors}
}

func (s *orSelector) Match(e *Entry) bool {
	for _, sel := range s.selectors {
		if sel.Match(e) {
			return true
		}
	}
	return false
}

func (s *orSelector) TraverseDescendants(e *Entry) bool {
	for _, sel := range s.selectors {
		if sel.TraverseDescendants(e) {
			return true
		}
	}
	return false
}

type notSelector struct {
	selector Selector
}

// Not inverts a selector's match result. Traversal is not inverted.
func Not(selector Selector) Selector {
	return &notSelector{selector: selector}
}

func (s *notSelector) Match(e *Entry) bool {
	return !s.selector.Match(e)
}

func (s *notSelector) TraverseDescendants(*Entry) bool {
	return true
}

type funcSelector struct {
	fn func(*Entry) bool
}

// FuncSelector creates a selector from a custom match function
func FuncSelector(fn func(*Entry) bool) Selector {
	return &funcSelector{fn: fn}
}

func (s *funcSelector) Match(e *Entry) bool             { return s.fn(e) }
func (s *funcSelector) TraverseDescendants(*Entry) bool { return true }

// NewSelector builds a selector from include and exclude patterns. An empty
// include list selects everything; excludes always win.
func NewSelector(include, exclude []string) (Selector, error) {
	var sel []Selector
	if len(include) > 0 {
		var alts []Selector
		for _, p := range include {
			g, err := Glob(p)
			if err != nil {
				return nil, err
			}
			alts = append(alts, g)
		}
		sel = append(sel, Or(alts...))
	}
	for _, p := range exclude {
		g, err := Glob(p)
		if err != nil {
			return nil, err
		}
		sel = append(sel, Not(g))
	}
	if len(sel) == 0 {
		return All(), nil
	}
	return And(sel...), nil
}

// SelectorFromConfig builds a selector from the config include and exclude lists
func SelectorFromConfig(cfg *Config) (Selector, error) {
	return NewSelector(cfg.IncludePatterns(), cfg.ExcludePatterns())
}

// Walk expands roots into the list of files to inspect. Files given directly
// are always returned, directories are listed through sel: only their
// immediate children unless recursive is set. Symlinks inside directories are
// not followed.
func Walk(ctx context.Context, sel Selector, roots []string, recursive bool) ([]string, error) {
	if sel == nil {
		sel = All()
	}

	var paths []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, mapOSError("stat", root, err)
		}
		if !info.IsDir() {
			paths = append(paths, root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return mapOSError("walk", path, err)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if path == root {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			e := &Entry{
				Path:  path,
				Rel:   rel,
				Name:  d.Name(),
				IsDir: d.IsDir(),
				Depth: strings.Count(rel, "/") + 1,
			}

			if e.IsDir {
				if !recursive || !sel.TraverseDescendants(e) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && sel.Match(e) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}
