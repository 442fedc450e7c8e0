package orbit

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseFile(t *testing.T) {
	input := `# orbit perigee
00001 2014-09-22T03:12:00Z

2,2014-09-22T08:30:15.250
3	2014-09-22 13:48:30
`
	rows, err := ParseFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	expected := []Perigee{
		{Orbit: 1, Time: time.Date(2014, 9, 22, 3, 12, 0, 0, time.UTC)},
		{Orbit: 2, Time: time.Date(2014, 9, 22, 8, 30, 15, 250000000, time.UTC)},
		{Orbit: 3, Time: time.Date(2014, 9, 22, 13, 48, 30, 0, time.UTC)},
	}
	for i, want := range expected {
		if rows[i].Orbit != want.Orbit || !rows[i].Time.Equal(want.Time) {
			t.Errorf("row %d = %+v, want %+v", i, rows[i], want)
		}
	}
}

func TestParseFileErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "missing time", input: "12\n"},
		{name: "bad orbit", input: "x1 2014-09-22T03:12:00Z\n"},
		{name: "negative orbit", input: "-4 2014-09-22T03:12:00Z\n"},
		{name: "bad time", input: "1 yesterday\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFile(strings.NewReader(tt.input)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestStatic(t *testing.T) {
	when := time.Date(2015, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStatic([]Perigee{{Orbit: 100, Time: when}})

	got, ok := s.PerigeeTime(100)
	if !ok || !got.Equal(when) {
		t.Errorf("PerigeeTime(100) = %v, %v", got, ok)
	}
	if _, ok := s.PerigeeTime(101); ok {
		t.Error("unknown orbit should miss")
	}
	if _, ok := None.PerigeeTime(100); ok {
		t.Error("None should never resolve")
	}
}

func TestCached(t *testing.T) {
	when := time.Date(2015, 1, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	source := func(orbit int) (time.Time, error) {
		calls++
		switch orbit {
		case 7:
			return when, nil
		case 8:
			return time.Time{}, errors.New("connection reset")
		default:
			return time.Time{}, ErrNotFound
		}
	}

	c, err := NewCached(source, 2)
	if err != nil {
		t.Fatalf("NewCached failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, ok := c.PerigeeTime(7)
		if !ok || !got.Equal(when) {
			t.Fatalf("PerigeeTime(7) = %v, %v", got, ok)
		}
	}
	if calls != 1 {
		t.Errorf("expected one source call for a cached orbit, got %d", calls)
	}

	if _, ok := c.PerigeeTime(9); ok {
		t.Error("unknown orbit should miss")
	}
	if _, ok := c.PerigeeTime(9); ok {
		t.Error("unknown orbit should still miss")
	}
	if calls != 3 {
		t.Errorf("misses should not be cached, got %d calls", calls)
	}

	if _, ok := c.PerigeeTime(8); ok {
		t.Error("source errors should miss")
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 cached orbit, got %d", c.Len())
	}
}
