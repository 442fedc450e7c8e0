package events

import (
	"testing"
	"time"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{Closed, "closed"},
		{Removed, "removed"},
		{Overflow, "overflow"},
		{Kind(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.expected)
		}
	}
}

func TestConstructors(t *testing.T) {
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	c := NewClosed("/r/a.cdf", now)
	if c.Kind != Closed || c.Path != "/r/a.cdf" || !c.Time.Equal(now) {
		t.Errorf("NewClosed = %+v", c)
	}

	r := NewRemoved("/r/a.cdf", now)
	if r.Kind != Removed || r.Path != "/r/a.cdf" || !r.Time.Equal(now) {
		t.Errorf("NewRemoved = %+v", r)
	}
}
