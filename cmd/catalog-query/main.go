package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"sdc-indexer/internal/database"
	"sdc-indexer/internal/startup"
)

const (
	// Default timeout for catalog queries
	defaultTimeout = 30 * time.Second
	// statusLimit is the number of status records shown.
	statusLimit = 20
)

var errUsage = errors.New("usage")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	table := term.IsTerminal(int(os.Stdout.Fd()))
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, table))
}

// run executes one command and returns the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, table bool) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}
	command, args := args[0], args[1:]

	query, ok := commands[command]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage(stderr)
		return 1
	}

	config, err := startup.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	db, err := database.New(ctx, config.DSN, &database.Options{Driver: config.Driver})
	if err != nil {
		fmt.Fprintf(stderr, "Error: Failed to open catalog: %v\n", err)
		fmt.Fprintf(stderr, "Make sure SDC_DSN is set correctly (current: %s)\n", database.RedactDSN(config.DSN))
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(stderr, "Warning: failed to close catalog: %v\n", err)
		}
	}()

	out := newPrinter(stdout, table)
	err = query(ctx, db, args, out)
	if flushErr := out.flush(); err == nil {
		err = flushErr
	}
	switch {
	case errors.Is(err, errUsage):
		printUsage(stderr)
		return 1
	case err != nil:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

type queryFunc func(ctx context.Context, db *database.Database, args []string, out *printer) error

var commands = map[string]queryFunc{
	"latest":    latest,
	"list":      list,
	"ancillary": ancillary,
	"show":      show,
	"status":    recentStatus,
	"counts":    counts,
}

// scienceFilter reads [instrument] [level] [descriptor] arguments.
func scienceFilter(args []string, maxArgs int) (database.ScienceFilter, error) {
	if len(args) < 1 || len(args) > maxArgs {
		return database.ScienceFilter{}, errUsage
	}
	var f database.ScienceFilter
	f.Instrument = args[0]
	if len(args) > 1 {
		f.Level = args[1]
	}
	if len(args) > 2 {
		f.Descriptor = args[2]
	}
	return f, nil
}

var scienceHeader = []string{"FILE", "VERSION", "REVISION", "TIMETAG", "SIZE", "DIRECTORY"}

func scienceLine(r database.ScienceRow) []string {
	return []string{
		r.FileName,
		strconv.Itoa(r.Version),
		strconv.Itoa(r.Revision),
		r.Timetag.Format(time.RFC3339),
		strconv.FormatInt(r.FileSize, 10),
		r.DirectoryPath,
	}
}

func latest(ctx context.Context, db *database.Database, args []string, out *printer) error {
	f, err := scienceFilter(args, 3)
	if err != nil {
		return err
	}
	rows, err := db.LatestScience(ctx, f)
	if err != nil {
		return err
	}
	out.header(scienceHeader...)
	for _, r := range rows {
		out.row(scienceLine(r)...)
	}
	return nil
}

func list(ctx context.Context, db *database.Database, args []string, out *printer) error {
	f, err := scienceFilter(args, 2)
	if err != nil {
		return err
	}
	rows, err := db.ListScience(ctx, f)
	if err != nil {
		return err
	}
	out.header(scienceHeader...)
	for _, r := range rows {
		out.row(scienceLine(r)...)
	}
	return nil
}

func ancillary(ctx context.Context, db *database.Database, args []string, out *printer) error {
	if len(args) > 1 {
		return errUsage
	}
	product := ""
	if len(args) == 1 {
		product = args[0]
	}
	rows, err := db.ListAncillary(ctx, product, 0)
	if err != nil {
		return err
	}
	out.header("FILE", "PRODUCT", "START", "END", "VERSION", "DIRECTORY")
	for _, r := range rows {
		end := "-"
		if r.EndDate != nil {
			end = r.EndDate.Format(time.DateOnly)
		}
		out.row(r.FileName, r.Product, r.StartDate.Format(time.DateOnly), end, strconv.Itoa(r.Version), r.DirectoryPath)
	}
	return nil
}

func show(ctx context.Context, db *database.Database, args []string, out *printer) error {
	if len(args) != 1 {
		return errUsage
	}
	r, err := db.GetScience(ctx, args[0])
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%s is not in the catalog", args[0])
	}
	if err != nil {
		return err
	}

	orbit := ""
	if r.Orbit != nil {
		orbit = strconv.Itoa(*r.Orbit)
	}
	fields := [][2]string{
		{"file_name", r.FileName},
		{"directory_path", r.DirectoryPath},
		{"file_size", strconv.FormatInt(r.FileSize, 10)},
		{"mod_date", r.ModDate.Format(time.RFC3339)},
		{"kind", r.Kind},
		{"instrument", r.Instrument},
		{"level", r.Level},
		{"grouping", r.Grouping},
		{"descriptor", r.Descriptor},
		{"plan", r.Plan},
		{"orbit", orbit},
		{"mode", r.Mode},
		{"data_type", r.DataType},
		{"flare_class", r.FlareClass},
		{"timetag", r.Timetag.Format(time.RFC3339)},
		{"version", strconv.Itoa(r.Version)},
		{"revision", strconv.Itoa(r.Revision)},
		{"absolute_version", strconv.Itoa(r.AbsoluteVersion)},
		{"file_extension", r.FileExtension},
		{"compressed", strconv.FormatBool(r.Compressed)},
	}
	for _, f := range fields {
		out.row(f[0], f[1])
	}
	return nil
}

func recentStatus(ctx context.Context, db *database.Database, args []string, out *printer) error {
	if len(args) > 1 {
		return errUsage
	}
	component := ""
	if len(args) == 1 {
		component = args[0]
	}
	rows, err := db.RecentStatus(ctx, component, statusLimit)
	if err != nil {
		return err
	}
	out.header("TIME", "COMPONENT", "EVENT", "JOB", "SUMMARY")
	for _, r := range rows {
		out.row(r.RecordedAt.Format(time.RFC3339), r.Component, r.Event, r.JobID, r.Summary)
	}
	return nil
}

func counts(ctx context.Context, db *database.Database, args []string, out *printer) error {
	if len(args) != 0 {
		return errUsage
	}
	c, err := db.Counts(ctx)
	if err != nil {
		return err
	}
	out.header("TABLE", "ROWS")
	out.row("science", strconv.Itoa(c.Science))
	out.row("l0", strconv.Itoa(c.L0))
	out.row("ancillary", strconv.Itoa(c.Ancillary))
	out.row("status", strconv.Itoa(c.Status))
	out.row("orbits", strconv.Itoa(c.Orbits))
	return nil
}

// printer writes rows as an aligned table or as tab-separated values.
type printer struct {
	w     io.Writer
	tw    *tabwriter.Writer
	table bool
}

func newPrinter(w io.Writer, table bool) *printer {
	p := &printer{w: w, table: table}
	if table {
		p.tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		p.w = p.tw
	}
	return p
}

// header is printed only in table mode so TSV output stays pure data.
func (p *printer) header(cols ...string) {
	if p.table {
		p.row(cols...)
	}
}

func (p *printer) row(cols ...string) {
	clean := make([]string, len(cols))
	for i, c := range cols {
		clean[i] = strings.ReplaceAll(c, "\t", " ")
	}
	fmt.Fprintln(p.w, strings.Join(clean, "\t"))
}

func (p *printer) flush() error {
	if p.tw != nil {
		return p.tw.Flush()
	}
	return nil
}

// sanitizeCommand returns a safe representation of a command string for display.
// It uses an allowlist approach, replacing any character that is not alphanumeric,
// a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "SDC Catalog Query")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: catalog-query <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  latest <instrument> [level] [descriptor]  - Newest version of each product")
	fmt.Fprintln(w, "  list <instrument> [level]                 - All versions")
	fmt.Fprintln(w, "  ancillary [product]                       - Ancillary files")
	fmt.Fprintln(w, "  show <file_name>                          - One science row")
	fmt.Fprintln(w, "  status [component]                        - Recent status records")
	fmt.Fprintln(w, "  counts                                    - Row counts per table")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  SDC_CONFIG, SDC_DB_DRIVER, SDC_DSN - Catalog location")
}
