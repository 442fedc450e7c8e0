package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"sdc-indexer/internal/database"
	"sdc-indexer/internal/filesystem"
	"sdc-indexer/internal/handlers"
	"sdc-indexer/internal/lock"
	"sdc-indexer/internal/logging"
	"sdc-indexer/internal/metrics"
	"sdc-indexer/internal/orbit"
	"sdc-indexer/internal/pattern"
	"sdc-indexer/internal/startup"
	"sdc-indexer/internal/status"
	"sdc-indexer/internal/supervisor"
)

// statsInterval is how often catalog row counts are refreshed for /metrics.
const statsInterval = 30 * time.Second

// acquireLock takes the process lock, mapping contention to ExitLocked.
func acquireLock(config *startup.Config, command string) (*lock.Lock, error) {
	l, err := lock.Acquire(config.LockDir, programName(command), config.Flavor)
	if errors.Is(err, lock.ErrLocked) {
		return nil, &ExitError{Code: supervisor.ExitLocked, Err: err}
	}
	if err != nil {
		return nil, err
	}
	logging.Info("Acquired lock %s", l.Path())
	return l, nil
}

func releaseLock(l *lock.Lock) {
	if err := l.Release(); err != nil {
		logging.Warn("Failed to release lock %s: %v", l.Path(), err)
	}
}

// openCatalog opens the catalog named by the configuration.
func openCatalog(ctx context.Context, config *startup.Config) (*database.Database, error) {
	if err := config.EnsureCatalogDir(); err != nil {
		return nil, err
	}
	start := time.Now()
	db, err := database.New(ctx, config.DSN, &database.Options{Driver: config.Driver})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	startup.LogCatalogInit(config.Driver, time.Since(start))
	return db, nil
}

func closeCatalog(db *database.Database) {
	if err := db.Close(); err != nil {
		logging.Warn("Failed to close catalog: %v", err)
	}
}

// loadOrbitFile imports an orbit table into the catalog.
func loadOrbitFile(ctx context.Context, db *database.Database, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open orbit file: %w", err)
	}
	defer f.Close()

	rows, err := orbit.ParseFile(f)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return db.LoadOrbits(ctx, rows)
}

// newRegistry builds the classifier with perigee times read through from
// the catalog's orbit table, after importing the configured orbit file.
func newRegistry(ctx context.Context, db *database.Database, config *startup.Config) (*pattern.Registry, error) {
	source, count := "catalog", 0
	if config.OrbitFile != "" {
		n, err := loadOrbitFile(ctx, db, config.OrbitFile)
		if err != nil {
			return nil, err
		}
		source, count = config.OrbitFile, n
	}

	lookup, err := orbit.NewCached(db.PerigeeSource(), orbit.DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	startup.LogOrbitsInit(source, count)
	return pattern.NewRegistry(lookup), nil
}

// setupFilesystem labels the roots for filesystem metrics and compiles the
// exclude globs.
func setupFilesystem(config *startup.Config) (*filesystem.Excludes, error) {
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewRootsResolver("data", config.Roots))

	return filesystem.CompileExcludes(config.Exclude)
}

// newReporter records status to the log and, unless dryRun, the catalog.
func newReporter(component string, config *startup.Config, db *database.Database, dryRun bool) *status.Reporter {
	var sink status.Sink = status.LogSink{}
	if !dryRun {
		sink = status.Multi{status.LogSink{}, status.NewCatalogSink(db)}
	}
	return status.NewReporter(component, status.JobID(config.UniqueID), sink)
}

// endpoint is the optional HTTP endpoint and its metrics collector.
type endpoint struct {
	server    *handlers.Server
	collector *metrics.Collector
}

// startEndpoint serves /metrics and /progress when an address is configured.
func startEndpoint(config *startup.Config, opts handlers.Options) (*endpoint, error) {
	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	if config.MetricsAddr == "" {
		return &endpoint{}, nil
	}

	h := handlers.New(opts)
	server, err := handlers.Listen(config.MetricsAddr, h)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", config.MetricsAddr, err)
	}
	go server.Serve()
	startup.LogServerStarted(server.Addr(), handlers.NewRouter(h))

	e := &endpoint{server: server}
	if opts.Stats != nil {
		e.collector = metrics.NewCollector(opts.Stats, statsInterval)
		e.collector.Start()
	}
	return e, nil
}

func (e *endpoint) stop() {
	if e.collector != nil {
		e.collector.Stop()
	}
	if e.server != nil {
		startup.LogShutdownStep("Stopping HTTP endpoint")
		e.server.Shutdown()
		startup.LogShutdownStepComplete("HTTP endpoint stopped")
	}
}
