package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Entry is one regular file as seen on disk or recorded in the catalog.
// ModTime is always UTC with whole-second precision, so entries from
// different sources compare equal when they describe the same file.
type Entry struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// NewEntry normalizes mtime to whole seconds in UTC.
func NewEntry(path string, size int64, mtime time.Time) Entry {
	return Entry{Path: path, Size: size, ModTime: TruncateTime(mtime)}
}

// EntryFromInfo builds an Entry from a stat result.
func EntryFromInfo(path string, info os.FileInfo) Entry {
	return NewEntry(path, info.Size(), info.ModTime())
}

// TruncateTime rounds t down to the second and converts it to UTC.
func TruncateTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Dir returns the directory part of the path.
func (e Entry) Dir() string { return filepath.Dir(e.Path) }

// Name returns the base name of the path.
func (e Entry) Name() string { return filepath.Base(e.Path) }

// Same reports whether two entries describe the same file content by size
// and second-precision modification time.
func (e Entry) Same(o Entry) bool {
	return e.Size == o.Size && TruncateTime(e.ModTime).Equal(TruncateTime(o.ModTime))
}

func (e Entry) String() string {
	return fmt.Sprintf("%s(%d, %s)", e.Path, e.Size, e.ModTime.UTC().Format(time.RFC3339))
}

// ComparePaths orders paths by their raw bytes.
func ComparePaths(a, b string) int {
	return strings.Compare(a, b)
}

// SortEntries sorts entries by path.
func SortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int { return ComparePaths(a.Path, b.Path) })
}

// IsSorted reports whether entries are in path order.
func IsSorted(entries []Entry) bool {
	return slices.IsSortedFunc(entries, func(a, b Entry) int { return ComparePaths(a.Path, b.Path) })
}
