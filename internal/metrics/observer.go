package metrics

import "sdc-indexer/internal/filesystem"

// EntryOutcomes lists the walker outcomes pre-populated by InitializeMetrics.
var EntryOutcomes = []string{
	filesystem.EntryMatched,
	filesystem.EntryIgnored,
	filesystem.EntryExcluded,
	filesystem.EntryError,
}

// filesystemObserver records filesystem activity of the scanners and the
// index workers. Retry metrics are labelled (operation, volume) and
// operation metrics (volume, operation), matching their collectors.
type filesystemObserver struct{}

// NewFilesystemObserver returns the observer passed to filesystem.SetObserver.
func NewFilesystemObserver() filesystem.Observer {
	return filesystemObserver{}
}

func (filesystemObserver) ObserveOperation(volume, operation string, durationSeconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, operation).Observe(durationSeconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, operation).Inc()
	}
}

func (filesystemObserver) ObserveEntry(volume, outcome string) {
	FilesystemEntries.WithLabelValues(volume, outcome).Inc()
}

func (filesystemObserver) ObserveRetryAttempt(op, volume string) {
	FilesystemRetryAttempts.WithLabelValues(op, volume).Inc()
}

func (filesystemObserver) ObserveRetrySuccess(op, volume string) {
	FilesystemRetrySuccess.WithLabelValues(op, volume).Inc()
}

func (filesystemObserver) ObserveRetryFailure(op, volume string) {
	FilesystemRetryFailures.WithLabelValues(op, volume).Inc()
}

func (filesystemObserver) ObserveRetryDuration(op, volume string, durationSeconds float64) {
	FilesystemRetryDuration.WithLabelValues(op, volume).Observe(durationSeconds)
}

// ObserveStaleError counts ESTALE from NFS-mounted roots. A steady rate
// usually means the export was remounted under the indexer.
func (filesystemObserver) ObserveStaleError(op, volume string) {
	FilesystemStaleErrors.WithLabelValues(op, volume).Inc()
}
