package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdc_indexer_db_queries_total",
			Help: "Total number of catalog queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdc_indexer_db_query_duration_seconds",
			Help:    "Catalog query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdc_indexer_db_transaction_duration_seconds",
			Help:    "Per-row transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"outcome"}, // "commit", "rollback"
	)

	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdc_indexer_db_rows_affected",
			Help:    "Rows affected by catalog writes",
			Buckets: []float64{0, 1, 2, 5, 10, 100},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdc_indexer_db_connections_open",
			Help: "Number of open catalog connections",
		},
	)
)

// Catalog metrics
var (
	CatalogUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdc_indexer_catalog_upserts_total",
			Help: "Catalog upserts by family and outcome",
		},
		[]string{"family", "outcome"}, // outcome: "inserted", "updated", "recoverable", "error"
	)

	CatalogDeletes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdc_indexer_catalog_deletes_total",
			Help: "Catalog deletes by family and whether a row was found",
		},
		[]string{"family", "found"},
	)

	CatalogRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sdc_indexer_catalog_rows",
			Help: "Number of catalog rows by table",
		},
		[]string{"table"},
	)

	CatalogNewestFile = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdc_indexer_catalog_newest_file_timestamp_seconds",
			Help: "Modification time of the newest science or L0 file in the catalog",
		},
	)
)

// Reconciler metrics
var (
	ReconcileRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sdc_indexer_reconcile_runs_total",
			Help: "Total number of full reconciliation runs",
		},
	)

	ReconcileDeltas = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdc_indexer_reconcile_deltas_total",
			Help: "Entries found by full reconciliation by delta",
		},
		[]string{"delta"}, // "added", "updated", "deleted"
	)

	ReconcileSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sdc_indexer_reconcile_skipped_total",
			Help: "Entries skipped because they could not be classified or stat'ed",
		},
	)

	ReconcileFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sdc_indexer_reconcile_failures_total",
			Help: "Rows rejected by the recoverable-error predicate during reconciliation",
		},
	)

	ReconcileLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdc_indexer_reconcile_last_run_timestamp",
			Help: "Timestamp of the last reconciliation run",
		},
	)

	ReconcileLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdc_indexer_reconcile_last_run_duration_seconds",
			Help: "Duration of the last reconciliation run in seconds",
		},
	)

	ReconcileIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdc_indexer_reconcile_running",
			Help: "Whether a reconciliation is running (1 = running, 0 = idle)",
		},
	)
)

// Scanner metrics
var (
	ScannerFilesScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdc_indexer_scanner_files_scanned_total",
			Help: "Files seen by the disk scanners",
		},
		[]string{"scanner", "result"}, // result: "matched", "ignored", "error"
	)

	ScannerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdc_indexer_scanner_duration_seconds",
			Help:    "Duration of one scan of a root directory",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"scanner"},
	)
)

// Watcher and queue metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdc_indexer_watcher_events_total",
			Help: "Filesystem events emitted by the watcher",
		},
		[]string{"event_type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sdc_indexer_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	WatcherOverflows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sdc_indexer_watcher_overflows_total",
			Help: "Kernel notification queue overflows",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdc_indexer_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdc_indexer_queue_depth",
			Help: "Events waiting in the work queue",
		},
	)

	QueueCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdc_indexer_queue_capacity",
			Help: "Capacity of the work queue",
		},
	)

	QueueOverflows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sdc_indexer_queue_overflows_total",
			Help: "Events rejected because the work queue was full",
		},
	)
)

// Worker and supervisor metrics
var (
	WorkerResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdc_indexer_worker_results_total",
			Help: "Events handled by index workers by result kind",
		},
		[]string{"kind"},
	)

	WorkerEventDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sdc_indexer_worker_event_duration_seconds",
			Help:    "Time to handle one filesystem event",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdc_indexer_workers_active",
			Help: "Number of running index workers",
		},
	)

	SupervisorState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sdc_indexer_supervisor_state",
			Help: "Current supervisor state (1 for the active state)",
		},
		[]string{"state"},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdc_indexer_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration by volume and operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdc_indexer_filesystem_operation_errors_total",
			Help: "Filesystem operation errors by volume and operation",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdc_indexer_filesystem_retry_attempts_total",
			Help: "Retry attempts for filesystem operations",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdc_indexer_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdc_indexer_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdc_indexer_filesystem_retry_duration_seconds",
			Help:    "Total time spent in retried filesystem operations",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdc_indexer_filesystem_stale_errors_total",
			Help: "ESTALE errors seen on network filesystems",
		},
		[]string{"operation", "volume"},
	)

	FilesystemEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdc_indexer_filesystem_entries_total",
			Help: "Files visited by the parallel walker by volume and outcome",
		},
		[]string{"volume", "outcome"}, // outcome: "matched", "ignored", "excluded", "error"
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdc_indexer_memory_usage_ratio",
			Help: "Heap allocation as a share of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdc_indexer_memory_paused",
			Help: "1 while catalog writes are paused for memory pressure",
		},
	)
)

// HTTP endpoint metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdc_indexer_http_requests_total",
			Help: "Requests to the progress endpoint by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdc_indexer_http_request_duration_seconds",
			Help:    "Progress endpoint request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sdc_indexer_http_requests_in_flight",
			Help: "Requests currently being served",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sdc_indexer_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
