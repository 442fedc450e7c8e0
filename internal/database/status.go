package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InsertStatus appends a status record.
func (d *Database) InsertStatus(ctx context.Context, row StatusRow) error {
	if row.RecordedAt.IsZero() {
		row.RecordedAt = time.Now()
	}
	err := d.inTx(ctx, "insert_status", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, d.rebind(
			`INSERT INTO status (component, event, job_id, summary, description, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?)`),
			row.Component, row.Event, row.JobID, row.Summary, row.Description, row.RecordedAt.Unix())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert status: %w", err)
	}
	return nil
}

// RecentStatus returns up to limit status records, newest first. An empty
// component returns records of every component.
func (d *Database) RecentStatus(ctx context.Context, component string, limit int) (rows []StatusRow, err error) {
	start := time.Now()
	defer func() { recordQuery("recent_status", start, err) }()

	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, component, event, job_id, summary, description, recorded_at FROM status`
	var args []any
	if component != "" {
		query += ` WHERE component = ?`
		args = append(args, component)
	}
	query += fmt.Sprintf(` ORDER BY recorded_at DESC, id DESC LIMIT %d`, limit)

	sqlRows, err := d.db.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer sqlRows.Close()

	for sqlRows.Next() {
		var r StatusRow
		var recorded int64
		if err = sqlRows.Scan(&r.ID, &r.Component, &r.Event, &r.JobID, &r.Summary, &r.Description, &recorded); err != nil {
			return nil, err
		}
		r.RecordedAt = time.Unix(recorded, 0).UTC()
		rows = append(rows, r)
	}
	err = sqlRows.Err()
	return rows, err
}
