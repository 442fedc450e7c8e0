package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"sdc-indexer/internal/logging"
	"sdc-indexer/internal/startup"
	"sdc-indexer/internal/supervisor"
)

// ExitError carries a process exit status out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// globalFlags mirror the configuration keys. Only flags set on the command
// line override the loaded configuration.
type globalFlags struct {
	roots          []string
	driver         string
	dsn            string
	workers        int
	queueSize      int
	quietPeriod    time.Duration
	exclude        []string
	lockDir        string
	flavor         string
	orbitFile      string
	listingCommand []string
	metricsAddr    string
	uniqueID       string
}

type app struct {
	flags  globalFlags
	stdout io.Writer
	stderr io.Writer
}

// NewRootCommand builds the command tree writing results to stdout.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "sdc-indexer",
		Short: "Index SDC science and ancillary files into the catalog",
		Long: `sdc-indexer keeps the SDC file catalog in step with the file archive.

full-index reconciles the catalog with everything on disk. delta-index
follows filesystem notifications and applies each change as it happens.`,
		Version:       startup.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringSliceVar(&a.flags.roots, "roots", nil, "Root directories to index")
	pf.StringVar(&a.flags.driver, "db-driver", "", "Catalog driver (sqlite3 or pgx)")
	pf.StringVar(&a.flags.dsn, "dsn", "", "Catalog file path (sqlite3) or connection URI (pgx)")
	pf.IntVar(&a.flags.workers, "workers", 0, "Index workers (0 for one per CPU)")
	pf.IntVar(&a.flags.queueSize, "queue-size", 0, "Work queue capacity")
	pf.DurationVar(&a.flags.quietPeriod, "quiet-period", 0, "Time a file must be unchanged before it is indexed")
	pf.StringSliceVar(&a.flags.exclude, "exclude", nil, "Glob patterns of files and directories to skip")
	pf.StringVar(&a.flags.lockDir, "lock-dir", "", "Directory holding process lock files")
	pf.StringVar(&a.flags.flavor, "flavor", "", "Instance flavor; one instance runs per program and flavor")
	pf.StringVar(&a.flags.orbitFile, "orbit-file", "", "Orbit perigee table loaded before indexing")
	pf.StringSliceVar(&a.flags.listingCommand, "listing-command", nil, "Command printing path^size^mtime lines, run with the root appended")
	pf.StringVar(&a.flags.metricsAddr, "metrics-addr", "", "Address of the /metrics and /progress endpoint")
	pf.StringVar(&a.flags.uniqueID, "unique-id", "", "Job id recorded in status events")

	root.AddCommand(
		a.fullIndexCommand(),
		a.deltaIndexCommand(),
		a.classifyCommand(),
		a.loadOrbitsCommand(),
	)
	return root
}

// Execute runs the command tree and returns the process exit status.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return supervisor.ExitClean
	}

	var exit *ExitError
	if errors.As(err, &exit) {
		if exit.Err != nil {
			logging.Error("%v", exit.Err)
		}
		return exit.Code
	}
	logging.Error("%v", err)
	return supervisor.ExitFatal
}

// loadConfig loads the configuration and applies the flags set on cmd.
func (a *app) loadConfig(cmd *cobra.Command, needRoots bool) (*startup.Config, error) {
	config, err := startup.LoadConfig()
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if fs.Changed("roots") {
		config.Roots = a.flags.roots
	}
	if fs.Changed("db-driver") {
		config.Driver = a.flags.driver
	}
	if fs.Changed("dsn") {
		config.DSN = a.flags.dsn
	}
	if fs.Changed("workers") {
		config.Workers = a.flags.workers
	}
	if fs.Changed("queue-size") {
		config.QueueSize = a.flags.queueSize
	}
	if fs.Changed("quiet-period") {
		config.QuietPeriod = a.flags.quietPeriod
	}
	if fs.Changed("exclude") {
		config.Exclude = a.flags.exclude
	}
	if fs.Changed("lock-dir") {
		config.LockDir = a.flags.lockDir
	}
	if fs.Changed("flavor") {
		config.Flavor = a.flags.flavor
	}
	if fs.Changed("orbit-file") {
		config.OrbitFile = a.flags.orbitFile
	}
	if fs.Changed("listing-command") {
		config.ListingCommand = a.flags.listingCommand
	}
	if fs.Changed("metrics-addr") {
		config.MetricsAddr = a.flags.metricsAddr
	}
	if fs.Changed("unique-id") {
		config.UniqueID = a.flags.uniqueID
	}

	if err := config.Validate(needRoots); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return config, nil
}

// programName keys the process lock. Each indexing command locks
// separately so a full index can run beside the delta indexer.
func programName(command string) string {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	return filepath.Base(exe) + "-" + command
}
