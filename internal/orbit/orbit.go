// Package orbit resolves spacecraft orbit numbers to the UTC instant of that
// orbit's perigee. The classifier needs this for file names that carry orbit
// numbers instead of dates.
package orbit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"sdc-indexer/internal/logging"
)

// DefaultCacheSize is the number of perigee times kept by a Cached lookup.
const DefaultCacheSize = 4096

// ErrNotFound is returned by a Source that has no perigee for an orbit.
var ErrNotFound = errors.New("orbit not found")

// Lookup maps an orbit number to its perigee time. A false second return value
// means the orbit is unknown.
type Lookup interface {
	PerigeeTime(orbit int) (time.Time, bool)
}

// Perigee is one row of the orbit table.
type Perigee struct {
	Orbit int
	Time  time.Time
}

// Static is an in-memory Lookup.
type Static map[int]time.Time

// PerigeeTime implements Lookup.
func (s Static) PerigeeTime(orbit int) (time.Time, bool) {
	t, ok := s[orbit]
	return t, ok
}

// NewStatic builds a Static lookup from parsed rows. Later rows win.
func NewStatic(rows []Perigee) Static {
	s := make(Static, len(rows))
	for _, r := range rows {
		s[r.Orbit] = r.Time.UTC()
	}
	return s
}

// None is a Lookup that knows no orbits.
var None Lookup = Static(nil)

// SourceFunc fetches a perigee time from a slower backing store, typically the
// catalog's orbit table. It returns ErrNotFound for unknown orbits.
type SourceFunc func(orbit int) (time.Time, error)

// Cached fronts a SourceFunc with an LRU of resolved orbits. Misses are not
// cached so orbits loaded after start-up become visible.
type Cached struct {
	source SourceFunc
	cache  *lru.Cache[int, time.Time]
}

// NewCached creates a Cached lookup holding up to size entries.
func NewCached(source SourceFunc, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[int, time.Time](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create perigee cache: %w", err)
	}
	return &Cached{source: source, cache: cache}, nil
}

// PerigeeTime implements Lookup.
func (c *Cached) PerigeeTime(orbit int) (time.Time, bool) {
	if t, ok := c.cache.Get(orbit); ok {
		return t, true
	}

	t, err := c.source(orbit)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logging.Warn("Perigee lookup for orbit %d failed: %v", orbit, err)
		}
		return time.Time{}, false
	}

	t = t.UTC()
	c.cache.Add(orbit, t)
	return t, true
}

// Len returns the number of cached orbits.
func (c *Cached) Len() int {
	return c.cache.Len()
}

const fieldSeparators = ", \t"

var perigeeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02/15:04:05",
}

// ParseFile reads an orbit table: one "orbit_number perigee_utc" pair per line,
// whitespace or comma separated. Blank lines and lines starting with '#' are
// ignored.
func ParseFile(r io.Reader) ([]Perigee, error) {
	var rows []Perigee
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cut := strings.IndexAny(line, fieldSeparators)
		if cut < 0 {
			return nil, fmt.Errorf("line %d: expected orbit and perigee time, got %q", lineNo, line)
		}
		orbitField := line[:cut]
		timeField := strings.Trim(line[cut:], fieldSeparators)

		n, err := strconv.Atoi(orbitField)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("line %d: invalid orbit number %q", lineNo, orbitField)
		}

		t, err := parsePerigee(timeField)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		rows = append(rows, Perigee{Orbit: n, Time: t})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orbit table: %w", err)
	}
	return rows, nil
}

func parsePerigee(s string) (time.Time, error) {
	for _, layout := range perigeeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid perigee time %q", s)
}
