// Command sdc-indexer keeps the SDC file catalog in step with the archive.
//
// # Commands
//
//   - full-index: scan the roots, diff against the catalog and apply the
//     additions, updates and deletions
//   - delta-index: watch the roots and apply each filesystem change as it
//     happens, until signaled
//   - classify: print how file names parse
//   - load-orbits: import the orbit perigee table used for orbit-numbered names
//
// # Delta Indexing Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from MEMORY_LIMIT if needed
//  2. Configuration Loading: defaults, SDC_CONFIG file, environment, flags
//  3. Process Lock: one instance per program and flavor (exit 5 if held)
//  4. Catalog: opens SQLite or PostgreSQL and migrates the schema
//  5. Watcher: registers a watch on every directory below the roots
//  6. Supervisor: starts the index workers and forwards events to them
//  7. Endpoint: serves /metrics and /progress when SDC_METRICS_ADDR is set
//  8. Shutdown: SIGINT or SIGTERM, a queue overflow, or a fatal worker error
//     stops the watcher and drains the workers
//
// # Environment Variables
//
//   - SDC_CONFIG: YAML configuration file
//   - SDC_ROOTS: comma-separated root directories
//   - SDC_DB_DRIVER: sqlite3 (default) or pgx
//   - SDC_DSN: catalog file or PostgreSQL URI
//   - SDC_WORKERS: index worker count (default: one per CPU, at most 4)
//   - SDC_QUEUE_SIZE: work queue capacity (default: 10000)
//   - SDC_QUIET_PERIOD: time a file must be unchanged before indexing (default: 2s)
//   - SDC_EXCLUDE: comma-separated globs to skip
//   - SDC_LOCK_DIR, SDC_FLAVOR: process lock location and key
//   - SDC_ORBIT_FILE: orbit table loaded at start
//   - SDC_LISTING_COMMAND: external listing utility for full-index
//   - SDC_METRICS_ADDR: address of the HTTP endpoint
//   - SDC_UNIQUE_ID: job id recorded in status events
//   - LOG_LEVEL: debug, info, warn or error
//   - GOMEMLIMIT, MEMORY_LIMIT, MEMORY_RATIO: memory limit
//
// # Build Requirements
//
// SQLite support needs CGO:
//
//	CGO_ENABLED=1 go build -o sdc-indexer .
package main
