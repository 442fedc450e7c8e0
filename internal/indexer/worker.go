package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"syscall"
	"time"

	"sdc-indexer/internal/database"
	"sdc-indexer/internal/events"
	"sdc-indexer/internal/filesystem"
	"sdc-indexer/internal/logging"
	"sdc-indexer/internal/metrics"
	"sdc-indexer/internal/pattern"
)

// ResultKind classifies the outcome of handling one event.
type ResultKind int

const (
	// OK means the catalog now reflects the event.
	OK ResultKind = iota
	// Skipped means the event needed no write: the name is unrecognized,
	// the file is gone, or the path is a directory.
	Skipped
	// Recoverable means the write failed with an error matching the
	// recoverable predicate. The row was rolled back.
	Recoverable
	// Fatal means the write failed with any other error. The worker stops.
	Fatal
)

// String returns the metric label for the kind.
func (k ResultKind) String() string {
	switch k {
	case OK:
		return "ok"
	case Skipped:
		return "skipped"
	case Recoverable:
		return "recoverable"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is the outcome of Worker.Handle.
type Result struct {
	Kind  ResultKind
	Event events.FileEvent
	// Action describes what was done, e.g. "inserted" or "deleted".
	Action string
	// Reason explains a Skipped result.
	Reason string
	// Err is set for Recoverable and Fatal results and unreadable skips.
	Err error
	// Failure holds the rejected row of a Recoverable result.
	Failure *database.Failure
}

func (r Result) String() string {
	switch r.Kind {
	case OK:
		return fmt.Sprintf("%s %s: %s", r.Event.Kind, r.Event.Path, r.Action)
	case Skipped:
		return fmt.Sprintf("%s %s: skipped (%s)", r.Event.Kind, r.Event.Path, r.Reason)
	default:
		return fmt.Sprintf("%s %s: %s: %v", r.Event.Kind, r.Event.Path, r.Kind, r.Err)
	}
}

// Skip reasons
const (
	ReasonUnrecognized = "unrecognized"
	ReasonMissing      = "missing"
	ReasonDirectory    = "directory"
	ReasonOverflow     = "overflow"
	ReasonUnreadable   = "unreadable"
)

// Worker applies filesystem events to the catalog. A Worker holds no mutable
// state, so one value may serve several goroutines.
type Worker struct {
	catalog     Catalog
	registry    *pattern.Registry
	recoverable database.RecoverableFunc
	retry       filesystem.RetryConfig
}

// NewWorker creates a Worker. A nil rec treats every write error as fatal.
func NewWorker(catalog Catalog, registry *pattern.Registry, rec database.RecoverableFunc) *Worker {
	if rec == nil {
		rec = database.NeverRecoverable
	}
	return &Worker{
		catalog:     catalog,
		registry:    registry,
		recoverable: rec,
		retry:       filesystem.DefaultRetryConfig(),
	}
}

// SetRetryConfig sets the stat retry policy used for Closed events.
func (w *Worker) SetRetryConfig(config filesystem.RetryConfig) {
	w.retry = config
}

// Handle applies one event. Catalog writes are not interrupted by ctx
// cancellation once started.
func (w *Worker) Handle(ctx context.Context, ev events.FileEvent) Result {
	start := time.Now()
	var r Result
	switch ev.Kind {
	case events.Closed:
		r = w.handleClosed(ctx, ev)
	case events.Removed:
		r = w.handleRemoved(ctx, ev)
	default:
		r = Result{Kind: Skipped, Event: ev, Reason: ReasonOverflow}
	}
	metrics.WorkerEventDuration.Observe(time.Since(start).Seconds())
	metrics.WorkerResults.WithLabelValues(r.Kind.String()).Inc()
	return r
}

func (w *Worker) handleClosed(ctx context.Context, ev events.FileEvent) Result {
	parsed, err := w.registry.Classify(filepath.Base(ev.Path))
	if err != nil {
		logging.Debug("Skipping unrecognized file %s", ev.Path)
		return Result{Kind: Skipped, Event: ev, Reason: ReasonUnrecognized}
	}

	info, err := filesystem.StatWithRetry(ev.Path, w.retry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			logging.Debug("Skipping %s: file no longer exists", ev.Path)
			return Result{Kind: Skipped, Event: ev, Reason: ReasonMissing}
		}
		logging.Debug("Skipping %s: %v", ev.Path, err)
		return Result{Kind: Skipped, Event: ev, Reason: ReasonUnreadable, Err: err}
	}
	if info.IsDir() {
		return Result{Kind: Skipped, Event: ev, Reason: ReasonDirectory}
	}

	var b batch
	b.add(parsed, filesystem.EntryFromInfo(ev.Path, info))

	res, err := b.write(context.WithoutCancel(ctx), w.catalog, w.recoverable)
	switch {
	case err != nil:
		return Result{Kind: Fatal, Event: ev, Err: err}
	case len(res.Failures) > 0:
		f := res.Failures[0]
		return Result{Kind: Recoverable, Event: ev, Err: f.Err, Failure: &f}
	case res.Inserted > 0:
		return Result{Kind: OK, Event: ev, Action: "inserted"}
	default:
		return Result{Kind: OK, Event: ev, Action: "updated"}
	}
}

// handleRemoved deletes the row recorded at the path, trying the science
// table first. A path with no row is not an error.
func (w *Worker) handleRemoved(ctx context.Context, ev events.FileEvent) Result {
	ctx = context.WithoutCancel(ctx)
	for _, family := range []pattern.Family{pattern.FamilyScience, pattern.FamilyAncillary} {
		found, err := w.catalog.DeleteByPath(ctx, family, ev.Path)
		if err != nil {
			return Result{Kind: Fatal, Event: ev, Err: err}
		}
		if found {
			return Result{Kind: OK, Event: ev, Action: "deleted"}
		}
	}
	return Result{Kind: OK, Event: ev, Action: "absent"}
}
