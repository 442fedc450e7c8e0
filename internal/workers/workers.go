package workers

import (
	"os"
	"runtime"
	"strconv"

	"sdc-indexer/internal/logging"
)

// EnvOverride names the environment variable that fixes the worker count.
const EnvOverride = "SDC_WORKERS"

// DefaultLimit caps the automatic index worker count. Each worker holds a
// catalog connection while it writes, and SQLite serializes writers anyway.
const DefaultLimit = 4

// Count returns the number of workers for a pool.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for how much of each task is spent waiting on
// I/O; index workers mostly wait on stat and the catalog.
//
// The limit parameter caps the worker count. Use 0 for no limit.
//
// Can be overridden with the SDC_WORKERS environment variable.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
		logging.Warn("Ignoring invalid %s=%q", EnvOverride, override)
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForIndex returns the index worker count: one per CPU, at most DefaultLimit.
func ForIndex() int {
	return Count(1.0, DefaultLimit)
}

// ForScan returns the disk scanner worker count: two per CPU since scanning
// is stat-bound, capped by limit.
func ForScan(limit int) int {
	return Count(2.0, limit)
}
