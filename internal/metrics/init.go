package metrics

// Label values shared with the packages that record them.
var (
	Families        = []string{"science", "l0", "ancillary"}
	UpsertOutcomes  = []string{"inserted", "updated", "recoverable", "error"}
	ReconcileKinds  = []string{"added", "updated", "deleted"}
	WorkerKinds     = []string{"ok", "skipped", "recoverable", "fatal", "dropped"}
	SupervisorNames = []string{"idle", "starting", "running", "draining", "failing", "stopped"}
	Scanners        = []string{"walk", "listing"}
	WatcherEvents   = []string{"closed", "removed", "overflow", "directory_added"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Catalog ---
	for _, family := range Families {
		for _, outcome := range UpsertOutcomes {
			CatalogUpserts.WithLabelValues(family, outcome)
		}
		CatalogDeletes.WithLabelValues(family, "true")
		CatalogDeletes.WithLabelValues(family, "false")
	}
	for _, table := range CatalogTables {
		CatalogRows.WithLabelValues(table)
	}

	// --- Reconciler and scanners ---
	for _, delta := range ReconcileKinds {
		ReconcileDeltas.WithLabelValues(delta)
	}
	for _, scanner := range Scanners {
		for _, result := range []string{"matched", "ignored", "error"} {
			ScannerFilesScanned.WithLabelValues(scanner, result)
		}
		ScannerDuration.WithLabelValues(scanner)
	}

	// --- Delta path ---
	for _, event := range WatcherEvents {
		WatcherEventsTotal.WithLabelValues(event)
	}
	for _, kind := range WorkerKinds {
		WorkerResults.WithLabelValues(kind)
	}
	for _, state := range SupervisorNames {
		SupervisorState.WithLabelValues(state)
	}

	// --- Filesystem retry metrics (per retry-operation × volume) ---
	volumes := []string{"data", "database", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"stat", "readdir"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
		for _, op := range []string{"stat", "open", "readdir"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
		for _, outcome := range EntryOutcomes {
			FilesystemEntries.WithLabelValues(vol, outcome)
		}
	}

	// --- DB query operations ---
	for _, op := range []string{"initialize_schema", "upsert_science", "upsert_l0", "upsert_ancillary",
		"delete", "list_metadata", "latest_science", "list_science", "get_science", "insert_status",
		"recent_status", "perigee_time", "load_orbits", "counts", "list_ancillary", "newest_mod_time"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, t := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(t)
	}
}

// SetSupervisorState marks state as the only active supervisor state.
func SetSupervisorState(state string) {
	for _, s := range SupervisorNames {
		v := 0.0
		if s == state {
			v = 1
		}
		SupervisorState.WithLabelValues(s).Set(v)
	}
}
