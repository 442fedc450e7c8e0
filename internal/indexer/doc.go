// Package indexer keeps the catalog consistent with the filesystem.
//
// It has two entry points that share the classify-and-write logic in rows.go:
//   - [Indexer.Index] is the full reconciler. For each root it lists the
//     catalog and scans the disk, merge-joins the two sorted listings with
//     [Diff], and then applies the additions and updates followed by the
//     deletions. It is the cold-start and audit path, and the required
//     recovery step after notifications were lost.
//   - [Worker.Handle] applies a single filesystem event. The delta indexing
//     supervisor runs a pool of workers over the work queue.
//
// Handle never panics or returns a bare error. It returns a [Result] whose
// Kind says whether the event was applied, skipped, failed with a
// recoverable write error, or failed fatally.
//
// Files whose names match no pattern are logged at debug level and skipped
// on both paths.
package indexer
