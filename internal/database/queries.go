package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"sdc-indexer/internal/filesystem"
)

// ListMetadata yields (path, size, mtime) for every science and ancillary row
// under prefix, ordered by path. An empty prefix or "/" lists the whole
// catalog. The rows are streamed; stopping the iteration early closes the
// query.
func (d *Database) ListMetadata(ctx context.Context, prefix string) iter.Seq2[filesystem.Entry, error] {
	return func(yield func(filesystem.Entry, error) bool) {
		start := time.Now()
		var err error
		defer func() { recordQuery("list_metadata", start, err) }()

		where, args := prefixClause(prefix)
		query := fmt.Sprintf(`SELECT path, file_size, mod_date FROM (
				SELECT directory_path || '/' || file_name AS path, file_size, mod_date
				FROM science_files WHERE %[1]s
				UNION ALL
				SELECT directory_path || '/' || file_name AS path, file_size, mod_date
				FROM ancillary_files WHERE %[1]s
			) AS catalog
			ORDER BY path%[2]s`, where, d.dialect.pathCollate)
		args = append(args, args...)

		var rows *sql.Rows
		rows, err = d.db.QueryContext(ctx, d.rebind(query), args...)
		if err != nil {
			err = fmt.Errorf("failed to list catalog metadata: %w", err)
			yield(filesystem.Entry{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var path string
			var size, mod int64
			if err = rows.Scan(&path, &size, &mod); err != nil {
				yield(filesystem.Entry{}, err)
				return
			}
			if !yield(filesystem.NewEntry(path, size, time.Unix(mod, 0)), nil) {
				return
			}
		}
		if err = rows.Err(); err != nil {
			yield(filesystem.Entry{}, err)
		}
	}
}

// CollectMetadata drains ListMetadata into a slice.
func (d *Database) CollectMetadata(ctx context.Context, prefix string) ([]filesystem.Entry, error) {
	var entries []filesystem.Entry
	for e, err := range d.ListMetadata(ctx, prefix) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// prefixClause matches directory_path equal to prefix or below it. Using a
// range instead of LIKE keeps '_' and '%' in paths literal.
func prefixClause(prefix string) (string, []any) {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return "1 = 1", nil
	}
	return "(directory_path = ? OR (directory_path >= ? AND directory_path < ?))",
		[]any{prefix, prefix + "/", prefix + "0"}
}

const scienceSelect = `SELECT id, ` + scienceColumns + ` FROM science_files`

func scanScience(scanner interface{ Scan(...any) error }) (ScienceRow, error) {
	var r ScienceRow
	var mod, timetag int64
	var orbit sql.NullInt64
	var compressed int
	err := scanner.Scan(&r.ID, &r.FileName, &r.DirectoryPath, &r.FileSize, &mod, &r.Kind,
		&r.Instrument, &r.Level, &r.Grouping, &r.Descriptor, &r.Plan, &orbit, &r.Mode,
		&r.DataType, &r.FlareClass, &timetag, &r.Version, &r.Revision, &r.AbsoluteVersion,
		&r.FileExtension, &compressed)
	if err != nil {
		return r, err
	}
	r.ModDate = time.Unix(mod, 0).UTC()
	r.Timetag = time.Unix(timetag, 0).UTC()
	if orbit.Valid {
		o := int(orbit.Int64)
		r.Orbit = &o
	}
	r.Compressed = compressed != 0
	return r, nil
}

func (d *Database) queryScience(ctx context.Context, op, query string, args ...any) (rows []ScienceRow, err error) {
	start := time.Now()
	defer func() { recordQuery(op, start, err) }()

	sqlRows, err := d.db.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer sqlRows.Close()

	for sqlRows.Next() {
		r, scanErr := scanScience(sqlRows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		rows = append(rows, r)
	}
	err = sqlRows.Err()
	return rows, err
}

// GetScience returns the science row with the given file name.
func (d *Database) GetScience(ctx context.Context, fileName string) (ScienceRow, error) {
	rows, err := d.queryScience(ctx, "get_science", scienceSelect+` WHERE file_name = ?`, fileName)
	if err != nil {
		return ScienceRow{}, fmt.Errorf("failed to get %s: %w", fileName, err)
	}
	if len(rows) == 0 {
		return ScienceRow{}, ErrNotFound
	}
	return rows[0], nil
}

func scienceWhere(f ScienceFilter) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, v any) {
		clauses = append(clauses, clause)
		args = append(args, v)
	}
	if f.Instrument != "" {
		add("instrument = ?", f.Instrument)
	}
	if f.Level != "" {
		add("level = ?", f.Level)
	}
	if f.Descriptor != "" {
		add("descriptor = ?", f.Descriptor)
	}
	if f.Plan != "" {
		add("plan = ?", f.Plan)
	}
	if !f.From.IsZero() {
		add("timetag >= ?", f.From.Unix())
	}
	if !f.To.IsZero() {
		add("timetag < ?", f.To.Unix())
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListScience returns science rows matching f ordered by time tag and name.
func (d *Database) ListScience(ctx context.Context, f ScienceFilter) ([]ScienceRow, error) {
	where, args := scienceWhere(f)
	query := scienceSelect + where + ` ORDER BY timetag, file_name`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	return d.queryScience(ctx, "list_science", query, args...)
}

// LatestScience returns, for each (instrument, level, descriptor, timetag)
// product matching f, the row with the greatest absolute version.
func (d *Database) LatestScience(ctx context.Context, f ScienceFilter) ([]ScienceRow, error) {
	where, args := scienceWhere(f)
	query := `SELECT s.id, ` + prefixed("s.", scienceColumns) + ` FROM science_files s
		JOIN (
			SELECT instrument, level, descriptor, timetag, MAX(absolute_version) AS absolute_version
			FROM science_files` + where + `
			GROUP BY instrument, level, descriptor, timetag
		) latest
		ON s.instrument = latest.instrument
		AND s.level = latest.level
		AND s.descriptor = latest.descriptor
		AND s.timetag = latest.timetag
		AND s.absolute_version = latest.absolute_version
		ORDER BY s.timetag, s.file_name`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	return d.queryScience(ctx, "latest_science", query, args...)
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// ListAncillary returns ancillary rows for a product ordered by start date.
// An empty product lists every row.
func (d *Database) ListAncillary(ctx context.Context, product string, limit int) (rows []AncillaryRow, err error) {
	start := time.Now()
	defer func() { recordQuery("list_ancillary", start, err) }()

	query := `SELECT id, ` + ancillaryColumns + ` FROM ancillary_files`
	var args []any
	if product != "" {
		query += ` WHERE product = ?`
		args = append(args, product)
	}
	query += ` ORDER BY start_date, file_name`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	sqlRows, err := d.db.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer sqlRows.Close()

	for sqlRows.Next() {
		var r AncillaryRow
		var mod, startDate int64
		var end sql.NullInt64
		if err = sqlRows.Scan(&r.ID, &r.FileName, &r.DirectoryPath, &r.FileSize, &mod, &r.BaseName,
			&r.Product, &startDate, &end, &r.Version, &r.FileExtension); err != nil {
			return nil, err
		}
		r.ModDate = time.Unix(mod, 0).UTC()
		r.StartDate = time.Unix(startDate, 0).UTC()
		if end.Valid {
			t := time.Unix(end.Int64, 0).UTC()
			r.EndDate = &t
		}
		rows = append(rows, r)
	}
	err = sqlRows.Err()
	return rows, err
}

// Counts returns the number of rows in each catalog table.
func (d *Database) Counts(ctx context.Context) (c Counts, err error) {
	start := time.Now()
	defer func() { recordQuery("counts", start, err) }()

	queries := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM science_files WHERE kind <> 'l0'`, &c.Science},
		{`SELECT COUNT(*) FROM science_files WHERE kind = 'l0'`, &c.L0},
		{`SELECT COUNT(*) FROM ancillary_files`, &c.Ancillary},
		{`SELECT COUNT(*) FROM status`, &c.Status},
		{`SELECT COUNT(*) FROM orbit_perigees`, &c.Orbits},
	}
	for _, q := range queries {
		if err = d.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return c, err
		}
	}
	return c, nil
}

// NewestModTime returns the latest mod_date in science_files, or the zero
// time for an empty table.
func (d *Database) NewestModTime(ctx context.Context) (t time.Time, err error) {
	start := time.Now()
	defer func() { recordQuery("newest_mod_time", start, err) }()

	var newest sql.NullInt64
	if err = d.db.QueryRowContext(ctx, `SELECT MAX(mod_date) FROM science_files`).Scan(&newest); err != nil {
		return time.Time{}, err
	}
	if !newest.Valid {
		return time.Time{}, nil
	}
	return time.Unix(newest.Int64, 0).UTC(), nil
}
