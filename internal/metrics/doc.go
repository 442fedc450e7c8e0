// Package metrics provides Prometheus instrumentation for the SDC indexer.
//
// All metrics are prefixed with "sdc_indexer_" and registered with the
// default registry through promauto.
//
// # Metric Categories
//
// ## Database
//
//   - DBQueryTotal, DBQueryDuration: catalog queries by operation
//   - DBTransactionDuration: per-row transactions by commit or rollback
//   - DBConnectionsOpen: open catalog connections
//
// ## Catalog
//
//   - CatalogUpserts: upserts by family and outcome (inserted, updated, recoverable, error)
//   - CatalogDeletes: deletes by family and whether a row existed
//   - CatalogRows: row counts per table, refreshed by the [Collector]
//   - CatalogNewestFile: newest science mod_date; a flat line means ingestion stalled
//
// ## Full reconciliation
//
//   - ReconcileRunsTotal, ReconcileIsRunning, ReconcileLastRunTimestamp, ReconcileLastRunDuration
//   - ReconcileDeltas: added, updated and deleted entries
//   - ReconcileSkipped, ReconcileFailures
//   - ScannerFilesScanned, ScannerDuration: per scanner ("walk" or "listing")
//
// ## Delta indexing
//
//   - WatcherEventsTotal, WatcherErrors, WatcherOverflows, WatchedDirectories
//   - QueueDepth, QueueCapacity, QueueOverflows
//   - WorkerResults: handled events by result kind
//   - WorkersActive, WorkerEventDuration
//   - SupervisorState: one gauge per state, 1 for the current state
//
// ## Memory
//
//   - MemoryUsageRatio, MemoryPaused: set by the memory monitor
//
// ## HTTP
//
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight: recorded
//     by the middleware package for the progress endpoint
//
// ## Filesystem
//
// Recorded through the filesystem.Observer implementation returned by
// [NewFilesystemObserver], which keeps the filesystem package free of a
// dependency on this one. Besides operation and NFS retry metrics it counts
// every file the parallel walker visits by volume and outcome
// (sdc_indexer_filesystem_entries_total).
//
// # Collector
//
// [Collector] polls a [StatsProvider] (the catalog) on an interval:
//
//	collector := metrics.NewCollector(db, time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Events dropped because workers fell behind:
//
//	rate(sdc_indexer_queue_overflows_total[5m])
//
// Hours since the newest file reached the catalog:
//
//	(time() - sdc_indexer_catalog_newest_file_timestamp_seconds) / 3600
//
// Recoverable write failures per hour:
//
//	increase(sdc_indexer_catalog_upserts_total{outcome="recoverable"}[1h])
package metrics
