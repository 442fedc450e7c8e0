package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sdc-indexer/internal/database"
	"sdc-indexer/internal/filesystem"
	"sdc-indexer/internal/handlers"
	"sdc-indexer/internal/indexer"
	"sdc-indexer/internal/logging"
	"sdc-indexer/internal/memory"
	"sdc-indexer/internal/startup"
	"sdc-indexer/internal/supervisor"
	"sdc-indexer/internal/workers"
)

// maxScanWorkers caps the stat workers of the parallel walker.
const maxScanWorkers = 16

// maxFailuresListed bounds the failure list in the SUCCESS description.
const maxFailuresListed = 20

func (a *app) fullIndexCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "full-index <roots...>",
		Short: "Reconcile the catalog with the files on disk",
		Long: `Scan every root, compare the recognized files with the catalog, then
insert new files, update changed ones and delete rows for files that are gone.

Rows rejected by the catalog for their content are skipped and counted; any
other catalog error aborts the run. Roots given as arguments replace the
configured roots.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFullIndex(cmd, args, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log the changes without writing them")
	return cmd
}

func (a *app) runFullIndex(cmd *cobra.Command, args []string, dryRun bool) error {
	startTime := time.Now()

	config, err := a.loadConfig(cmd, false)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		config.Roots = args
		if err := config.Validate(true); err != nil {
			return err
		}
	} else if len(config.Roots) == 0 {
		return fmt.Errorf("full-index needs at least one root")
	}

	startup.Banner("full-index")
	config.Log()
	startup.LogIndexerInit("FULL INDEX", config.Roots)

	memory.ConfigureFromEnv()
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	defer monitor.Stop()

	l, err := acquireLock(config, "full-index")
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
	walker := filesystem.DefaultParallelWalkerConfig()
	walker.NumWorkers = workers.ForScan(maxScanWorkers)
	walker.Exclude = exclude
	scanner, err := indexer.NewScanner(registry, config.ListingCommand, walker)
	if err != nil {
		return err
	}

	idx := indexer.New(db, registry, scanner)
	idx.SetThrottle(monitor)

	ep, err := startEndpoint(config, handlers.Options{Reconcile: idx, Stats: db})
	if err != nil {
		return err
	}
	defer ep.stop()

	reporter := newReporter("full-index", config, db, dryRun)
	reporter.Start(ctx, fmt.Sprintf("full index of %d root(s)", len(config.Roots)), strings.Join(config.Roots, ", "))

	report, err := idx.Index(ctx, config.Roots, indexer.Options{
		DryRun:      dryRun,
		Recoverable: database.IsDataShapeError,
	})
	if err != nil {
		reporter.Fail(ctx, "full index failed", err.Error())
		return &ExitError{Code: supervisor.ExitFatal, Err: fmt.Errorf("full index failed: %w", err)}
	}

	reporter.Success(ctx, reportSummary(report), failureDescription(report.Failures))
	logging.Info("Full index finished in %v", time.Since(startTime).Round(time.Millisecond))

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func reportSummary(r *indexer.Report) string {
	prefix := ""
	if r.DryRun {
		prefix = "dry run: "
	}
	return fmt.Sprintf("%sadded %d, updated %d, deleted %d, skipped %d, failures %d",
		prefix, r.Added, r.Updated, r.Deleted, r.Skipped, len(r.Failures))
}

// failureDescription lists the paths of rejected rows.
func failureDescription(failures []database.Failure) string {
	if len(failures) == 0 {
		return ""
	}
	var b strings.Builder
	for i, f := range failures {
		if i == maxFailuresListed {
			fmt.Fprintf(&b, "... and %d more\n", len(failures)-i)
			break
		}
		fmt.Fprintf(&b, "%s: %v\n", f.Path, f.Err)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
