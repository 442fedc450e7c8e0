package filesystem

import (
	"testing"
	"time"
)

func TestNewEntryTruncatesToUTCSeconds(t *testing.T) {
	loc := time.FixedZone("MST", -7*3600)
	mtime := time.Date(2020, 1, 1, 5, 0, 0, 999_999_999, loc)

	e := NewEntry("/A/x", 10, mtime)
	want := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	if !e.ModTime.Equal(want) || e.ModTime.Location() != time.UTC {
		t.Errorf("ModTime = %v, want %v", e.ModTime, want)
	}
	if e.Dir() != "/A" || e.Name() != "x" {
		t.Errorf("Dir/Name = %s/%s", e.Dir(), e.Name())
	}
}

func TestEntrySame(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewEntry("/A/x", 10, base)

	tests := []struct {
		name string
		b    Entry
		want bool
	}{
		{"identical", NewEntry("/A/x", 10, base), true},
		{"sub-second difference", Entry{Path: "/A/x", Size: 10, ModTime: base.Add(400 * time.Millisecond)}, true},
		{"mtime differs", NewEntry("/A/x", 10, base.Add(5*time.Second)), false},
		{"size differs", NewEntry("/A/x", 11, base), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Same(tt.b); got != tt.want {
				t.Errorf("Same() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortEntriesByRawBytes(t *testing.T) {
	entries := []Entry{
		{Path: "/A/b"},
		{Path: "/A/B"},
		{Path: "/A-x/a"},
		{Path: "/A/a"},
	}
	SortEntries(entries)

	// '-' (0x2d) sorts before '/' (0x2f); upper case before lower case.
	want := []string{"/A-x/a", "/A/B", "/A/a", "/A/b"}
	for i, e := range entries {
		if e.Path != want[i] {
			t.Errorf("entries[%d] = %s, want %s", i, e.Path, want[i])
		}
	}
	if !IsSorted(entries) {
		t.Error("IsSorted = false after SortEntries")
	}
}

func TestExcludes(t *testing.T) {
	ex, err := CompileExcludes([]string{".*", "*.tmp", "/data/scratch/**"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{"/data/sci/.mvn_mag.swp", true},
		{"/data/sci/file.tmp", true},
		{"/data/scratch/deep/file.cdf", true},
		{"/data/sci/mvn_mag_l2_20150101_v01_r01.sts", false},
		{"/data/sci/tmp/file.cdf", false},
	}
	for _, tt := range tests {
		if got := ex.Match(tt.path); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	var none *Excludes
	if none.Match("/x/.hidden") {
		t.Error("nil Excludes matched")
	}

	if _, err := CompileExcludes([]string{"[unclosed"}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
