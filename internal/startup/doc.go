// Package startup loads indexer configuration and writes the startup and
// shutdown log sections.
//
// # Configuration
//
// [LoadConfig] starts from [DefaultConfig], overlays the YAML file named by
// SDC_CONFIG, then the environment. The commands overlay their flags last
// and call [Config.Validate].
//
//	roots: [/maven/data/sci, /maven/data/anc]
//	driver: pgx
//	dsn: postgres://sdc@db/catalog
//	workers: 4
//	quiet_period: 2s
//	exclude: [".*", "*.tmp"]
//
// Environment variables:
//
//   - SDC_ROOTS: comma-separated root directories
//   - SDC_DB_DRIVER: sqlite3 (default) or pgx
//   - SDC_DSN: sqlite file path or postgres URL
//   - SDC_WORKERS: worker count override, read by the workers package
//   - SDC_QUEUE_SIZE: work queue capacity (default: 10000)
//   - SDC_QUIET_PERIOD: write quiet period before a file counts as closed (default: 2s)
//   - SDC_EXCLUDE: comma-separated exclude globs
//   - SDC_LOCK_DIR, SDC_FLAVOR: process lock location and flavor id
//   - SDC_ORBIT_FILE: perigee table loaded at start
//   - SDC_LISTING_COMMAND: external listing command for full reconciliation
//   - SDC_METRICS_ADDR: address for /metrics and /progress (disabled when empty)
//   - SDC_UNIQUE_ID: job id for status records
//   - LOG_LEVEL, DEBUG: see the logging package
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//
//	go build -ldflags "-X sdc-indexer/internal/startup.Version=1.2.0"
package startup
