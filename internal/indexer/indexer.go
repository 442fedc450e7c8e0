package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sdc-indexer/internal/database"
	"sdc-indexer/internal/filesystem"
	"sdc-indexer/internal/logging"
	"sdc-indexer/internal/metrics"
	"sdc-indexer/internal/pattern"
)

// Number of classified rows written per gateway call
const batchSize = 500

// ErrIndexInProgress is returned when Index is called while another full
// index is running on the same Indexer.
var ErrIndexInProgress = errors.New("index already in progress")

// Options controls a full index run.
type Options struct {
	// DryRun logs the changes and returns them without writing.
	DryRun bool
	// Recoverable selects write errors that are collected instead of
	// aborting the run. Nil means every write error aborts.
	Recoverable database.RecoverableFunc
}

// Report is the outcome of a full index run.
type Report struct {
	Roots    []string      `json:"roots"`
	Delta    Delta         `json:"-"`
	Added    int           `json:"added"`
	Updated  int           `json:"updated"`
	Deleted  int           `json:"deleted"`
	Skipped  int           `json:"skipped"`
	Inserted int           `json:"inserted"`
	Replaced int           `json:"replaced"`
	Removed  int           `json:"removed"`
	DryRun   bool          `json:"dry_run"`
	Duration time.Duration `json:"duration"`
	// Failures holds rows whose writes failed with a recoverable error.
	Failures []database.Failure `json:"-"`
}

// IndexProgress tracks the current indexing progress
type IndexProgress struct {
	Phase        string    `json:"phase"`
	Root         string    `json:"root,omitempty"`
	FilesScanned int64     `json:"filesScanned"`
	RowsWritten  int64     `json:"rowsWritten"`
	RowsDeleted  int64     `json:"rowsDeleted"`
	Failures     int64     `json:"failures"`
	IsIndexing   bool      `json:"isIndexing"`
	StartedAt    time.Time `json:"startedAt,omitempty"`
}

// Indexer is the full reconciler.
type Indexer struct {
	catalog  Catalog
	registry *pattern.Registry
	scanner  filesystem.Scanner
	throttle Throttle

	indexMu       sync.Mutex
	isIndexing    bool
	lastIndexTime time.Time
	lastReport    *Report

	filesScanned  atomic.Int64
	rowsWritten   atomic.Int64
	rowsDeleted   atomic.Int64
	failures      atomic.Int64
	indexProgress atomic.Value
}

// Throttle delays catalog writes, e.g. under memory pressure.
type Throttle interface {
	Wait(ctx context.Context) error
}

// SetThrottle makes Index wait on t before each write batch.
func (idx *Indexer) SetThrottle(t Throttle) {
	idx.throttle = t
}

// New creates an Indexer. The scanner should accept only names the registry
// recognizes; NewScanner builds one.
func New(catalog Catalog, registry *pattern.Registry, scanner filesystem.Scanner) *Indexer {
	idx := &Indexer{
		catalog:  catalog,
		registry: registry,
		scanner:  scanner,
	}
	idx.indexProgress.Store(IndexProgress{Phase: "idle"})
	return idx
}

// NewScanner returns the parallel walker filtered by the registry, or the
// listing scanner when command is not empty.
func NewScanner(registry *pattern.Registry, command []string, config filesystem.ParallelWalkerConfig) (filesystem.Scanner, error) {
	accept := func(path string) bool { return registry.Recognizes(filepath.Base(path)) }
	if len(command) > 0 {
		return filesystem.NewListingScanner(command, accept, config.Exclude)
	}
	return filesystem.NewParallelWalker(config, accept), nil
}

// Index reconciles the catalog with the files under roots. Differences for
// all roots are computed first; additions and updates are then written,
// followed by deletions. Unclassifiable entries are skipped. Recoverable
// write failures are returned in the report; any other write error aborts
// the run.
func (idx *Indexer) Index(ctx context.Context, roots []string, opts Options) (*Report, error) {
	if !idx.tryStartIndexing() {
		return nil, ErrIndexInProgress
	}
	defer idx.finishIndexing()

	metrics.ReconcileIsRunning.Set(1)
	defer metrics.ReconcileIsRunning.Set(0)
	metrics.ReconcileRunsTotal.Inc()

	startTime := time.Now()
	idx.resetCounters(startTime)
	logging.Info("Starting full index of %d root(s) (dry run: %v)", len(roots), opts.DryRun)

	report := &Report{DryRun: opts.DryRun}
	for _, root := range normalizeRoots(roots) {
		report.Roots = append(report.Roots, root)

		delta, err := idx.diffRoot(ctx, root)
		if err != nil {
			metrics.ReconcileFailures.Inc()
			return nil, err
		}
		report.Delta.Merge(delta)
	}

	report.Added = len(report.Delta.Added)
	report.Updated = len(report.Delta.Updated)
	report.Deleted = len(report.Delta.Deleted)
	metrics.ReconcileDeltas.WithLabelValues("added").Add(float64(report.Added))
	metrics.ReconcileDeltas.WithLabelValues("updated").Add(float64(report.Updated))
	metrics.ReconcileDeltas.WithLabelValues("deleted").Add(float64(report.Deleted))

	logging.Info("Full index found %d added, %d updated, %d deleted", report.Added, report.Updated, report.Deleted)

	if opts.DryRun {
		idx.logDryRun(report.Delta)
	} else if err := idx.apply(ctx, report, opts.Recoverable); err != nil {
		metrics.ReconcileFailures.Inc()
		return report, err
	}

	report.Duration = time.Since(startTime)
	idx.finalizeIndex(report)
	return report, nil
}

// normalizeRoots makes roots absolute, sorts them and drops duplicates and
// roots nested under another root, so no file is scanned twice.
func normalizeRoots(roots []string) []string {
	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		} else {
			root = filepath.Clean(root)
		}
		cleaned = append(cleaned, root)
	}
	slices.Sort(cleaned)

	var out []string
	for _, root := range cleaned {
		covered := slices.IndexFunc(out, func(kept string) bool { return within(root, kept) })
		if covered >= 0 {
			logging.Debug("Skipping root %s: covered by %s", root, out[covered])
			continue
		}
		out = append(out, root)
	}
	return out
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}

// diffRoot lists the catalog and scans the disk for one root.
func (idx *Indexer) diffRoot(ctx context.Context, root string) (Delta, error) {
	idx.setPhase("listing", root)
	catalog, err := idx.catalog.CollectMetadata(ctx, root)
	if err != nil {
		return Delta{}, fmt.Errorf("list catalog under %s: %w", root, err)
	}

	idx.setPhase("scanning", root)
	scanner := scannerName(idx.scanner)
	scanStart := time.Now()
	disk, err := idx.scanner.Scan(ctx, root)
	metrics.ScannerDuration.WithLabelValues(scanner).Observe(time.Since(scanStart).Seconds())
	if err != nil {
		return Delta{}, fmt.Errorf("scan %s: %w", root, err)
	}
	metrics.ScannerFilesScanned.WithLabelValues(scanner, "matched").Add(float64(len(disk)))
	idx.filesScanned.Add(int64(len(disk)))

	delta := Diff(catalog, disk)
	logging.Debug("Root %s: catalog %d, disk %d, added %d, updated %d, deleted %d",
		root, len(catalog), len(disk), len(delta.Added), len(delta.Updated), len(delta.Deleted))
	return delta, nil
}

// apply writes additions and updates, then deletions.
func (idx *Indexer) apply(ctx context.Context, report *Report, rec database.RecoverableFunc) error {
	idx.setPhase("writing", "")
	upserts := make([]filesystem.Entry, 0, report.Added+report.Updated)
	upserts = append(upserts, report.Delta.Added...)
	upserts = append(upserts, report.Delta.Updated...)

	var b batch
	flush := func() error {
		if idx.throttle != nil {
			if err := idx.throttle.Wait(ctx); err != nil {
				return err
			}
		}
		res, err := b.write(ctx, idx.catalog, rec)
		report.Inserted += res.Inserted
		report.Replaced += res.Updated
		report.Failures = append(report.Failures, res.Failures...)
		idx.rowsWritten.Add(int64(res.Inserted + res.Updated))
		idx.failures.Add(int64(len(res.Failures)))
		idx.updateProgress()
		b = batch{}
		return err
	}

	for i, e := range upserts {
		parsed, err := idx.registry.Classify(e.Name())
		if err != nil {
			logging.Debug("Skipping unrecognized file %s", e.Path)
			report.Skipped++
			metrics.ReconcileSkipped.Inc()
			continue
		}
		b.add(parsed, e)
		if b.len() >= batchSize {
			if err := flush(); err != nil {
				return fmt.Errorf("write catalog rows: %w", err)
			}
			logging.Info("Catalog write progress: %d/%d files", i+1, len(upserts))
		}
	}
	if b.len() > 0 {
		if err := flush(); err != nil {
			return fmt.Errorf("write catalog rows: %w", err)
		}
	}

	idx.setPhase("deleting", "")
	for _, e := range report.Delta.Deleted {
		if err := ctx.Err(); err != nil {
			return err
		}
		parsed, err := idx.registry.Classify(e.Name())
		if err != nil {
			logging.Debug("Skipping unrecognized catalog entry %s", e.Path)
			report.Skipped++
			metrics.ReconcileSkipped.Inc()
			continue
		}
		found, err := idx.catalog.DeleteByPath(ctx, parsed.Family(), e.Path)
		if err != nil {
			return fmt.Errorf("delete %s: %w", e.Path, err)
		}
		if found {
			report.Removed++
			idx.rowsDeleted.Add(1)
		}
	}

	for _, f := range report.Failures {
		logging.Warn("Recoverable write failure for %s: %v", f.Path, f.Err)
	}
	return nil
}

func (idx *Indexer) logDryRun(d Delta) {
	for _, e := range d.Added {
		logging.Info("[dry run] add %s", e)
	}
	for _, e := range d.Updated {
		logging.Info("[dry run] update %s", e)
	}
	for _, e := range d.Deleted {
		logging.Info("[dry run] delete %s", e)
	}
}

func scannerName(s filesystem.Scanner) string {
	if _, ok := s.(*filesystem.ListingScanner); ok {
		return "listing"
	}
	return "walk"
}

// tryStartIndexing attempts to start indexing, returns false if already in progress.
func (idx *Indexer) tryStartIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	return true
}

// finishIndexing marks indexing as complete.
func (idx *Indexer) finishIndexing() {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	idx.isIndexing = false

	progress := idx.GetProgress()
	progress.IsIndexing = false
	progress.Phase = "idle"
	progress.Root = ""
	idx.indexProgress.Store(progress)
}

// resetCounters resets the indexing counters.
func (idx *Indexer) resetCounters(startTime time.Time) {
	idx.filesScanned.Store(0)
	idx.rowsWritten.Store(0)
	idx.rowsDeleted.Store(0)
	idx.failures.Store(0)
	idx.indexProgress.Store(IndexProgress{
		Phase:      "starting",
		IsIndexing: true,
		StartedAt:  startTime,
	})
}

func (idx *Indexer) setPhase(phase, root string) {
	progress := idx.GetProgress()
	progress.Phase = phase
	progress.Root = root
	idx.indexProgress.Store(progress)
	idx.updateProgress()
}

// updateProgress copies the counters into the published progress.
func (idx *Indexer) updateProgress() {
	progress := idx.GetProgress()
	progress.FilesScanned = idx.filesScanned.Load()
	progress.RowsWritten = idx.rowsWritten.Load()
	progress.RowsDeleted = idx.rowsDeleted.Load()
	progress.Failures = idx.failures.Load()
	idx.indexProgress.Store(progress)
}

// finalizeIndex records the completed run.
func (idx *Indexer) finalizeIndex(report *Report) {
	idx.updateProgress()

	idx.indexMu.Lock()
	idx.lastIndexTime = time.Now()
	idx.lastReport = report
	idx.indexMu.Unlock()

	metrics.ReconcileLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.ReconcileLastRunDuration.Set(report.Duration.Seconds())

	logging.Info("Index complete: %d inserted, %d updated, %d removed, %d skipped, %d failures in %v",
		report.Inserted, report.Replaced, report.Removed, report.Skipped, len(report.Failures), report.Duration)
}

// IsIndexing returns whether an index operation is currently in progress.
func (idx *Indexer) IsIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.isIndexing
}

// LastIndexTime returns the time of the last completed index operation.
func (idx *Indexer) LastIndexTime() time.Time {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.lastIndexTime
}

// LastReport returns the report of the last completed run, or nil.
func (idx *Indexer) LastReport() *Report {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.lastReport
}

// GetProgress returns the current indexing progress.
func (idx *Indexer) GetProgress() IndexProgress {
	if progress, ok := idx.indexProgress.Load().(IndexProgress); ok {
		return progress
	}
	return IndexProgress{}
}
