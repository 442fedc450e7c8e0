package pattern

import (
	"fmt"
	"path/filepath"
	"regexp"

	"sdc-indexer/internal/orbit"
)

// builder turns the captures of one match into a parsed value.
type builder func(c captures, lookup orbit.Lookup) (Parsed, error)

// Pattern is one named file name pattern.
type Pattern struct {
	name   string
	group  Group
	family Family
	re     *regexp.Regexp
	groups []string
	build  builder
}

// newPattern compiles expr and checks that it declares every capture group the
// builder reads. It panics on a malformed pattern, like regexp.MustCompile.
func newPattern(name string, group Group, family Family, expr string, groups []string, build builder) Pattern {
	re := regexp.MustCompile(expr)
	for _, g := range groups {
		if re.SubexpIndex(g) < 0 {
			panic(fmt.Sprintf("pattern %s: expression has no group %q", name, g))
		}
	}
	return Pattern{name: name, group: group, family: family, re: re, groups: groups, build: build}
}

// Name returns the pattern name.
func (p Pattern) Name() string { return p.name }

// Group returns the pattern's family group.
func (p Pattern) Group() Group { return p.group }

// Family returns the family of values the pattern produces.
func (p Pattern) Family() Family { return p.family }

// Groups returns the capture groups the pattern produces.
func (p Pattern) Groups() []string { return append([]string(nil), p.groups...) }

// Expr returns the source of the regular expression.
func (p Pattern) Expr() string { return p.re.String() }

// Parse applies the pattern to a base name. It returns ErrUnrecognized when
// the expression does not match and a wrapped error when the captures are
// rejected.
func (p Pattern) Parse(basename string, lookup orbit.Lookup) (Parsed, error) {
	m := p.re.FindStringSubmatch(basename)
	if m == nil {
		return nil, ErrUnrecognized
	}
	parsed, err := p.build(newCaptures(p.re.SubexpNames(), m), lookup)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	return parsed, nil
}

// Registry is an ordered collection of patterns bound to an orbit lookup.
type Registry struct {
	patterns []Pattern
	lookup   orbit.Lookup
}

// NewRegistry returns the standard SDC registry. A nil lookup knows no orbits,
// so orbit-based names are unrecognized.
func NewRegistry(lookup orbit.Lookup) *Registry {
	return NewRegistryWith(lookup, standardPatterns())
}

// NewRegistryWith builds a registry over an explicit pattern list, keeping the
// list order within each group.
func NewRegistryWith(lookup orbit.Lookup, patterns []Pattern) *Registry {
	if lookup == nil {
		lookup = orbit.None
	}
	ordered := make([]Pattern, 0, len(patterns))
	for g := GroupAncillaryEngineering; g <= GroupScience; g++ {
		for _, p := range patterns {
			if p.group == g {
				ordered = append(ordered, p)
			}
		}
	}
	return &Registry{patterns: ordered, lookup: lookup}
}

// Patterns returns the patterns in classification order.
func (r *Registry) Patterns() []Pattern {
	return append([]Pattern(nil), r.patterns...)
}

// Classify parses a file name. Directory components are ignored. It returns
// ErrUnrecognized when no pattern accepts the name.
func (r *Registry) Classify(name string) (Parsed, error) {
	base := filepath.Base(name)
	for _, p := range r.patterns {
		parsed, err := p.Parse(base, r.lookup)
		if err == nil {
			return parsed, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnrecognized, base)
}

// Recognizes reports whether Classify would accept name.
func (r *Registry) Recognizes(name string) bool {
	_, err := r.Classify(name)
	return err == nil
}
