package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sdc-indexer/internal/database"
	"sdc-indexer/internal/handlers"
	"sdc-indexer/internal/indexer"
	"sdc-indexer/internal/logging"
	"sdc-indexer/internal/memory"
	"sdc-indexer/internal/startup"
	"sdc-indexer/internal/supervisor"
	"sdc-indexer/internal/watcher"
	"sdc-indexer/internal/workers"
)

func (a *app) deltaIndexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delta-index",
		Short: "Index files as they are written, moved or deleted",
		Long: `Watch every root recursively and apply each change to the catalog.

A file is indexed once it has been quiet for the quiet period. Deleted and
moved-away files have their rows removed. SIGINT or SIGTERM drains the
workers and exits 0. A queue overflow drains the workers, records a STATUS
event and exits 3 (kernel queue) or 4 (work queue); run full-index before
restarting.`,
		Args: cobra.NoArgs,
		RunE: a.runDeltaIndex,
	}
}

func (a *app) runDeltaIndex(cmd *cobra.Command, _ []string) error {
	startTime := time.Now()

	config, err := a.loadConfig(cmd, true)
	if err != nil {
		return err
	}

	startup.Banner("delta-index")
	config.Log()
	startup.LogIndexerInit("DELTA INDEXING", config.Roots)
	memory.ConfigureFromEnv()

	l, err := acquireLock(config, "delta-index")
	if err != nil {
		return err
	}
	defer releaseLock(l)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openCatalog(ctx, config)
	if err != nil {
		return err
	}
	defer closeCatalog(db)

	registry, err := newRegistry(ctx, db, config)
	if err != nil {
		return err
	}

	exclude, err := setupFilesystem(config)
	if err != nil {
		return err
	}
	w, err := watcher.New(watcher.Config{
		Roots:       config.Roots,
		Exclude:     exclude,
		QuietPeriod: config.QuietPeriod,
	})
	if err != nil {
		return err
	}
	logging.Info("Watching %d directories", w.WatchedDirectories())

	n := config.Workers
	if n <= 0 {
		n = workers.ForIndex()
	}
	sup := supervisor.New(w, indexer.NewWorker(db, registry, database.IsDataShapeError), supervisor.Config{
		Workers:   n,
		QueueSize: config.QueueSize,
		Reporter:  newReporter("delta-index", config, db, false),
	})

	ep, err := startEndpoint(config, handlers.Options{Delta: sup, Stats: db})
	if err != nil {
		_ = w.Close()
		return err
	}
	defer ep.stop()

	outcome := sup.Run(ctx)

	startup.LogShutdownInitiated(outcomeReason(outcome))
	logging.Info("  Received %d, handled %d, skipped %d, recoverable %d, dropped %d",
		outcome.Counts.Received, outcome.Counts.Handled, outcome.Counts.Skipped,
		outcome.Counts.Recoverable, outcome.Counts.Dropped)
	defer func() { startup.LogShutdownComplete(time.Since(startTime)) }()

	if outcome.Code == supervisor.ExitClean {
		return nil
	}
	err = outcome.Err
	if err == nil {
		err = errors.New(outcome.Reason)
	}
	return &ExitError{Code: outcome.Code, Err: err}
}

func outcomeReason(o supervisor.Outcome) string {
	if o.Reason != "" {
		return o.Reason
	}
	if o.Code == supervisor.ExitClean {
		return "signal"
	}
	return "error"
}
