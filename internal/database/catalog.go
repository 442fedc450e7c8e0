package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"sdc-indexer/internal/logging"
	"sdc-indexer/internal/metrics"
	"sdc-indexer/internal/pattern"
)

const scienceColumns = `file_name, directory_path, file_size, mod_date, kind, instrument, level,
	data_grouping, descriptor, plan, orbit, mode, data_type, flare_class, timetag,
	version, revision, absolute_version, file_extension, compressed`

const upsertScienceSQL = `INSERT INTO science_files (` + scienceColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (file_name) DO UPDATE SET
		directory_path = excluded.directory_path,
		file_size = excluded.file_size,
		mod_date = excluded.mod_date,
		kind = excluded.kind,
		instrument = excluded.instrument,
		level = excluded.level,
		data_grouping = excluded.data_grouping,
		descriptor = excluded.descriptor,
		plan = excluded.plan,
		orbit = excluded.orbit,
		mode = excluded.mode,
		data_type = excluded.data_type,
		flare_class = excluded.flare_class,
		timetag = excluded.timetag,
		version = excluded.version,
		revision = excluded.revision,
		absolute_version = excluded.absolute_version,
		file_extension = excluded.file_extension,
		compressed = excluded.compressed`

const ancillaryColumns = `file_name, directory_path, file_size, mod_date, base_name, product,
	start_date, end_date, version, file_extension`

const upsertAncillarySQL = `INSERT INTO ancillary_files (` + ancillaryColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (file_name, directory_path) DO UPDATE SET
		file_size = excluded.file_size,
		mod_date = excluded.mod_date,
		base_name = excluded.base_name,
		product = excluded.product,
		start_date = excluded.start_date,
		end_date = excluded.end_date,
		version = excluded.version,
		file_extension = excluded.file_extension`

// UpsertScience writes science, metadata-index and quicklook rows. A row whose
// file name already exists replaces the existing row.
func (d *Database) UpsertScience(ctx context.Context, rows []ScienceRow, rec RecoverableFunc) (UpsertResult, error) {
	for i := range rows {
		rows[i].AbsoluteVersion = pattern.AbsoluteVersion(rows[i].Version, rows[i].Revision)
	}
	return upsertEach(ctx, d, pattern.FamilyScience, rows, rec, ScienceRow.Path, d.writeScience)
}

// UpsertL0 writes level-0 rows into the science table. Level-0 products have
// no revision, so the absolute version is the version itself.
func (d *Database) UpsertL0(ctx context.Context, rows []ScienceRow, rec RecoverableFunc) (UpsertResult, error) {
	for i := range rows {
		rows[i].Kind = "l0"
		rows[i].Revision = 0
		rows[i].AbsoluteVersion = rows[i].Version
	}
	return upsertEach(ctx, d, pattern.FamilyL0, rows, rec, ScienceRow.Path, d.writeScience)
}

// UpsertAncillary writes ancillary rows keyed by (file name, directory).
func (d *Database) UpsertAncillary(ctx context.Context, rows []AncillaryRow, rec RecoverableFunc) (UpsertResult, error) {
	return upsertEach(ctx, d, pattern.FamilyAncillary, rows, rec, AncillaryRow.Path, d.writeAncillary)
}

// upsertEach writes every row in its own transaction. Failures matching rec
// are collected and the loop continues; any other failure is returned along
// with the counts so far.
func upsertEach[T any](
	ctx context.Context,
	d *Database,
	family pattern.Family,
	rows []T,
	rec RecoverableFunc,
	path func(T) string,
	write func(context.Context, *sql.Tx, T) (bool, error),
) (UpsertResult, error) {
	if rec == nil {
		rec = NeverRecoverable
	}
	op := "upsert_" + family.String()
	label := family.String()

	var result UpsertResult
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var inserted bool
		err := d.inTx(ctx, op, func(tx *sql.Tx) error {
			var werr error
			inserted, werr = write(ctx, tx, row)
			return werr
		})

		switch {
		case err == nil && inserted:
			result.Inserted++
			metrics.CatalogUpserts.WithLabelValues(label, "inserted").Inc()
		case err == nil:
			result.Updated++
			metrics.CatalogUpserts.WithLabelValues(label, "updated").Inc()
		case rec(err):
			logging.Warn("Skipping %s row %s: %v", label, path(row), err)
			metrics.CatalogUpserts.WithLabelValues(label, "recoverable").Inc()
			result.Failures = append(result.Failures, Failure{Err: err, Path: path(row), Row: row})
		default:
			metrics.CatalogUpserts.WithLabelValues(label, "error").Inc()
			return result, fmt.Errorf("failed to upsert %s: %w", path(row), err)
		}
	}
	return result, nil
}

// inTx runs fn in a transaction, committing on success.
func (d *Database) inTx(ctx context.Context, op string, fn func(*sql.Tx) error) (err error) {
	unlock := d.lockWrites()
	defer unlock()

	start := time.Now()
	defer func() { recordQuery(op, start, err) }()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	return endTx(tx, start, fn(tx))
}

func (d *Database) writeScience(ctx context.Context, tx *sql.Tx, r ScienceRow) (bool, error) {
	var existing int
	if err := tx.QueryRowContext(ctx,
		d.rebind(`SELECT COUNT(*) FROM science_files WHERE file_name = ?`), r.FileName).Scan(&existing); err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, d.rebind(upsertScienceSQL),
		r.FileName, r.DirectoryPath, r.FileSize, r.ModDate.Unix(), r.Kind, r.Instrument, r.Level,
		r.Grouping, r.Descriptor, r.Plan, r.Orbit, r.Mode, r.DataType, r.FlareClass, r.Timetag.Unix(),
		r.Version, r.Revision, r.AbsoluteVersion, r.FileExtension, boolToInt(r.Compressed))
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err == nil {
		metrics.DBRowsAffected.WithLabelValues("upsert_science").Observe(float64(n))
	}
	return existing == 0, nil
}

func (d *Database) writeAncillary(ctx context.Context, tx *sql.Tx, r AncillaryRow) (bool, error) {
	var existing int
	if err := tx.QueryRowContext(ctx,
		d.rebind(`SELECT COUNT(*) FROM ancillary_files WHERE file_name = ? AND directory_path = ?`),
		r.FileName, r.DirectoryPath).Scan(&existing); err != nil {
		return false, err
	}

	var end *int64
	if r.EndDate != nil {
		u := r.EndDate.Unix()
		end = &u
	}
	res, err := tx.ExecContext(ctx, d.rebind(upsertAncillarySQL),
		r.FileName, r.DirectoryPath, r.FileSize, r.ModDate.Unix(), r.BaseName, r.Product,
		r.StartDate.Unix(), end, r.Version, r.FileExtension)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err == nil {
		metrics.DBRowsAffected.WithLabelValues("upsert_ancillary").Observe(float64(n))
	}
	return existing == 0, nil
}

// DeleteByFilename removes the rows of a family with the given file name. It
// reports whether any row existed.
func (d *Database) DeleteByFilename(ctx context.Context, family pattern.Family, name string) (bool, error) {
	table := tableFor(family)
	return d.deleteWhere(ctx, family,
		fmt.Sprintf(`DELETE FROM %s WHERE file_name = ?`, table), name)
}

// DeleteByPath removes the row of a family recorded at exactly path. A row with
// the same file name in another directory is left alone.
func (d *Database) DeleteByPath(ctx context.Context, family pattern.Family, path string) (bool, error) {
	table := tableFor(family)
	return d.deleteWhere(ctx, family,
		fmt.Sprintf(`DELETE FROM %s WHERE file_name = ? AND directory_path = ?`, table),
		filepath.Base(path), filepath.Dir(path))
}

func (d *Database) deleteWhere(ctx context.Context, family pattern.Family, query string, args ...any) (bool, error) {
	var n int64
	err := d.inTx(ctx, "delete", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, d.rebind(query), args...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete %s row: %w", family, err)
	}
	found := "false"
	if n > 0 {
		found = "true"
	}
	metrics.CatalogDeletes.WithLabelValues(family.String(), found).Inc()
	metrics.DBRowsAffected.WithLabelValues("delete").Observe(float64(n))
	return n > 0, nil
}

func tableFor(family pattern.Family) string {
	if family == pattern.FamilyAncillary {
		return "ancillary_files"
	}
	return "science_files"
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
