package pattern

import (
	"fmt"
	"strconv"
)

// captures holds the named groups of one successful match. Groups that did not
// participate in the match are absent.
type captures map[string]string

func newCaptures(names, values []string) captures {
	c := make(captures, len(names))
	for i, name := range names {
		if name == "" || i >= len(values) || values[i] == "" {
			continue
		}
		c[name] = values[i]
	}
	return c
}

func (c captures) has(name string) bool {
	_, ok := c[name]
	return ok
}

func (c captures) str(name string) string {
	return c[name]
}

func (c captures) int(name string) (int, error) {
	v, ok := c[name]
	if !ok {
		return 0, fmt.Errorf("missing capture %q", name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("capture %q: %w", name, err)
	}
	return n, nil
}

// intOr returns the integer value of name, or def when the group is absent.
func (c captures) intOr(name string, def int) (int, error) {
	if !c.has(name) {
		return def, nil
	}
	return c.int(name)
}

// optionalInt returns nil when the group is absent.
func (c captures) optionalInt(name string) (*int, error) {
	if !c.has(name) {
		return nil, nil
	}
	n, err := c.int(name)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
