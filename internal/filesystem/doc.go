/*
Package filesystem provides the disk side of the catalog: the Entry type that
both scanners and the catalog produce, two Scanner implementations, exclude
patterns, and filesystem operations with retry logic for NFS stale file
handle errors.

# Entries

An Entry is (path, size, mtime). Modification times are truncated to whole
seconds and converted to UTC on construction, because sub-second precision is
not comparable across the listing utility, the catalog and os.Stat. Entries
order by the raw bytes of their path; SortEntries and ComparePaths implement
that order and every Scanner returns its result in it.

# Scanners

ParallelWalker walks a root with filepath.WalkDir and hands each file to a
small worker pool that classifies and stats it:

	walker := filesystem.NewParallelWalker(filesystem.DefaultParallelWalkerConfig(), registry.Recognizes)
	entries, err := walker.Scan(ctx, "/maven/data/sci")

ListingScanner runs an external utility that prints "path^size^mtime" lines,
for deployments where the indexer cannot read every directory itself:

	scanner, err := filesystem.NewListingScanner([]string{"sudo", "/usr/local/bin/sdc-list"}, registry.Recognizes, nil)

# Retry Behavior

StatWithRetry, OpenWithRetry and ReadDirWithRetry retry only ESTALE, with
exponential backoff (defaults: 3 retries, 50ms initial, 500ms cap). All
other errors fail immediately.

Metrics are reported through the Observer interface, set once at startup
with SetObserver, so this package does not depend on the metrics package.
*/
package filesystem
