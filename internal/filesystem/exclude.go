package filesystem

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// DefaultExcludes skips editor and transfer temporaries that are renamed into
// place once complete.
var DefaultExcludes = []string{".*", "*~", "*.tmp", "*.part", "*.swp"}

// Excludes matches paths against a set of glob patterns. A pattern matches
// when it matches either the base name or the whole path.
type Excludes struct {
	patterns []string
	globs    []glob.Glob
}

// CompileExcludes compiles glob patterns. '*' does not cross a '/'; use '**'
// for that.
func CompileExcludes(patterns []string) (*Excludes, error) {
	e := &Excludes{patterns: append([]string(nil), patterns...)}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		e.globs = append(e.globs, g)
	}
	return e, nil
}

// Match reports whether path is excluded. A nil Excludes matches nothing.
func (e *Excludes) Match(path string) bool {
	if e == nil {
		return false
	}
	base := filepath.Base(path)
	for _, g := range e.globs {
		if g.Match(base) || g.Match(path) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns.
func (e *Excludes) Patterns() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.patterns...)
}
