package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver registered as "pgx"
	_ "github.com/mattn/go-sqlite3"    // SQLite3 driver

	"sdc-indexer/internal/logging"
	"sdc-indexer/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Options configures New. A nil Options selects SQLite with defaults.
type Options struct {
	// Driver is DriverSQLite or DriverPostgres.
	Driver string
	// MaxOpenConns caps the connection pool. Zero selects a per-driver default.
	MaxOpenConns int
}

// dialect captures the differences between the supported drivers.
type dialect struct {
	driver string
	// idColumn and intType are substituted into the schema.
	idColumn string
	intType  string
	// pathCollate forces byte ordering of catalog paths.
	pathCollate string
	// numbered placeholders ($1) instead of ?
	numbered bool
	// serializeWrites holds the write mutex around each write transaction.
	serializeWrites bool
}

var dialects = map[string]dialect{
	DriverSQLite: {
		driver:          DriverSQLite,
		idColumn:        "INTEGER PRIMARY KEY AUTOINCREMENT",
		intType:         "INTEGER",
		serializeWrites: true,
	},
	DriverPostgres: {
		driver:      DriverPostgres,
		idColumn:    "BIGSERIAL PRIMARY KEY",
		intType:     "BIGINT",
		pathCollate: ` COLLATE "C"`,
		numbered:    true,
	},
}

// Database is the catalog gateway. All catalog reads and writes go through it
// and every write runs in its own transaction.
type Database struct {
	db      *sql.DB
	dsn     string
	dialect dialect
	// mu serializes write transactions on SQLite.
	mu sync.Mutex
}

// New opens the catalog and creates or migrates its schema.
// For SQLite, dsn is the path to the database FILE and its parent directory
// must already exist and be writable. For PostgreSQL it is a connection URI.
func New(ctx context.Context, dsn string, opts *Options) (*Database, error) {
	if opts == nil {
		opts = &Options{}
	}
	driver := opts.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	connStr := dsn
	maxOpen := opts.MaxOpenConns
	if driver == DriverSQLite {
		logging.Info("Database path: %s", dsn)
		if err := diagnoseDatabasePermissions(dsn); err != nil {
			logging.Warn("Database permission diagnostics: %v", err)
		}
		// WAL lets the reconciler read while workers write; busy_timeout
		// absorbs contention from other processes.
		connStr = fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", dsn)
		if maxOpen == 0 {
			maxOpen = 8
		}
	} else {
		logging.Info("Database: %s", RedactDSN(dsn))
		if maxOpen == 0 {
			maxOpen = 16
		}
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	db.SetConnMaxLifetime(time.Hour)

	database := &Database{db: db, dsn: dsn, dialect: d}

	if err := database.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Catalog initialized (%s)", driver)
	return database, nil
}

// Driver returns the driver name in use.
func (d *Database) Driver() string { return d.dialect.driver }

func (d *Database) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	for _, stmt := range schemaStatements(d.dialect) {
		if _, err = d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w (statement: %s)", err, firstLine(stmt))
		}
	}
	err = d.runMigrations(ctx)
	return err
}

// runMigrations adds columns introduced after the first schema version.
func (d *Database) runMigrations(ctx context.Context) error {
	for _, m := range migrations {
		exists, err := d.columnExists(ctx, m.table, m.column)
		if err != nil {
			return fmt.Errorf("failed to check for %s.%s column: %w", m.table, m.column, err)
		}
		if exists {
			continue
		}

		logging.Info("Migrating database: adding %s column to %s table", m.column, m.table)
		def := strings.ReplaceAll(m.definition, "{{int}}", d.dialect.intType)
		if _, err := d.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.table, m.column, def)); err != nil {
			return fmt.Errorf("failed to add %s column: %w", m.column, err)
		}
		if m.backfill != "" {
			if _, err := d.db.ExecContext(ctx, m.backfill); err != nil {
				return fmt.Errorf("failed to initialize %s values: %w", m.column, err)
			}
		}
		logging.Info("Migration complete: %s.%s added", m.table, m.column)
	}
	return nil
}

func (d *Database) columnExists(ctx context.Context, table, column string) (bool, error) {
	var n int
	var err error
	if d.dialect.driver == DriverSQLite {
		err = d.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	} else {
		err = d.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM information_schema.columns WHERE table_name = $1 AND column_name = $2`,
			table, column).Scan(&n)
	}
	return n > 0, err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// rebind rewrites ? placeholders for drivers that number them.
func (d *Database) rebind(query string) string {
	if !d.dialect.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lockWrites serializes writers where the driver needs it and returns the
// matching unlock.
func (d *Database) lockWrites() func() {
	if !d.dialect.serializeWrites {
		return func() {}
	}
	d.mu.Lock()
	return d.mu.Unlock
}

// endTx commits or rolls back a transaction and records its duration.
func endTx(tx *sql.Tx, start time.Time, err error) error {
	duration := time.Since(start).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// GetStats returns catalog row counts for the metrics collector. Errors are
// logged and reported as zero counts.
func (d *Database) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	stats := metrics.Stats{OpenConnections: d.db.Stats().OpenConnections}
	counts, err := d.Counts(ctx)
	if err != nil {
		logging.Warn("Failed to count catalog rows: %v", err)
		return stats
	}
	stats.ScienceFiles = counts.Science
	stats.L0Files = counts.L0
	stats.AncillaryFiles = counts.Ancillary
	stats.StatusRecords = counts.Status
	stats.OrbitPerigees = counts.Orbits

	newest, err := d.NewestModTime(ctx)
	if err != nil {
		logging.Warn("Failed to read newest modification time: %v", err)
		return stats
	}
	stats.NewestModTime = newest
	return stats
}

// UpdateDBMetrics updates database connection metrics
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// RedactDSN hides the password of a connection URI for logging.
func RedactDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return "(dsn)"
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, _ := strings.Cut(userinfo, ":")
	return scheme + "://" + user + ":***@" + host
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}

	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", path, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("Database file %s is read-only! Mode: %v - this will cause write failures", path, info.Mode())
		}
	}

	return nil
}
