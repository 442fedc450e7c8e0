package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sdc-indexer/internal/orbit"
)

// PerigeeTime returns the perigee time of an orbit, or orbit.ErrNotFound.
func (d *Database) PerigeeTime(ctx context.Context, number int) (t time.Time, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, orbit.ErrNotFound) {
			recordQuery("perigee_time", start, nil)
			return
		}
		recordQuery("perigee_time", start, err)
	}()

	var perigee int64
	err = d.db.QueryRowContext(ctx,
		d.rebind(`SELECT perigee FROM orbit_perigees WHERE orbit_number = ?`), number).Scan(&perigee)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, orbit.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to look up orbit %d: %w", number, err)
	}
	return time.Unix(perigee, 0).UTC(), nil
}

// PerigeeSource adapts PerigeeTime for orbit.NewCached.
func (d *Database) PerigeeSource() orbit.SourceFunc {
	return func(number int) (time.Time, error) {
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()
		return d.PerigeeTime(ctx, number)
	}
}

// LoadOrbits inserts or replaces perigee times in a single transaction and
// returns the number of rows written.
func (d *Database) LoadOrbits(ctx context.Context, perigees []orbit.Perigee) (int, error) {
	n := 0
	err := d.inTx(ctx, "load_orbits", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, d.rebind(
			`INSERT INTO orbit_perigees (orbit_number, perigee) VALUES (?, ?)
			ON CONFLICT (orbit_number) DO UPDATE SET perigee = excluded.perigee`))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range perigees {
			if _, err := stmt.ExecContext(ctx, p.Orbit, p.Time.Unix()); err != nil {
				return fmt.Errorf("orbit %d: %w", p.Orbit, err)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load orbits: %w", err)
	}
	return n, nil
}
