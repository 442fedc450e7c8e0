package filesystem

// Observer records filesystem operation metrics. The metrics package provides
// the implementation so that this package does not import it.
type Observer interface {
	// ObserveOperation records duration and error status for a filesystem operation.
	// volume is the resolved volume label ("data", "database", "unknown").
	// operation is "stat", "open" or "readdir".
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	// Retry-specific metrics for NFS resilience.
	ObserveRetryAttempt(retryOp, volume string)
	ObserveRetrySuccess(retryOp, volume string)
	ObserveRetryFailure(retryOp, volume string)
	ObserveRetryDuration(retryOp, volume string, durationSeconds float64)
	ObserveStaleError(retryOp, volume string)

	// ObserveEntry records how a scanner disposed of one file: one of
	// EntryMatched, EntryIgnored, EntryExcluded or EntryError.
	ObserveEntry(volume, outcome string)
}

// Scanner entry outcomes
const (
	EntryMatched  = "matched"
	EntryIgnored  = "ignored"
	EntryExcluded = "excluded"
	EntryError    = "error"
)

// defaultObserver is the package-level observer set at startup.
// If nil, metric recording is skipped.
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}

func observeEntry(config *RetryConfig, path, outcome string) {
	if o := observe(); o != nil {
		o.ObserveEntry(config.resolveVolume(path), outcome)
	}
}
