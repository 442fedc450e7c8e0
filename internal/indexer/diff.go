package indexer

import (
	"sdc-indexer/internal/filesystem"
)

// Delta is the difference between the catalog and the disk.
type Delta struct {
	// Added holds disk entries with no catalog row.
	Added []filesystem.Entry `json:"added"`
	// Deleted holds catalog entries with no file on disk.
	Deleted []filesystem.Entry `json:"deleted"`
	// Updated holds disk entries whose size or modification time differ
	// from the catalog.
	Updated []filesystem.Entry `json:"updated"`
}

// Empty reports whether the delta contains no changes.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Deleted) == 0 && len(d.Updated) == 0
}

// Merge appends the changes of o to d.
func (d *Delta) Merge(o Delta) {
	d.Added = append(d.Added, o.Added...)
	d.Deleted = append(d.Deleted, o.Deleted...)
	d.Updated = append(d.Updated, o.Updated...)
}

// Diff merge-joins catalog and disk, both sorted by path, in a single pass.
// Entries present on both sides are updated when their size or
// second-precision modification time differ.
func Diff(catalog, disk []filesystem.Entry) Delta {
	var d Delta
	i, j := 0, 0
	for i < len(catalog) && j < len(disk) {
		a, b := catalog[i], disk[j]
		switch c := filesystem.ComparePaths(a.Path, b.Path); {
		case c == 0:
			if !a.Same(b) {
				d.Updated = append(d.Updated, b)
			}
			i++
			j++
		case c > 0:
			d.Added = append(d.Added, b)
			j++
		default:
			d.Deleted = append(d.Deleted, a)
			i++
		}
	}
	d.Deleted = append(d.Deleted, catalog[i:]...)
	d.Added = append(d.Added, disk[j:]...)
	return d
}
