package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// RecoverableFunc reports whether a write error should be logged and skipped
// rather than aborting the call.
type RecoverableFunc func(error) bool

// IsDataShapeError reports whether err is a constraint violation caused by the
// row's own values: CHECK and NOT NULL failures, or PostgreSQL data exceptions.
// Connection, lock and I/O errors are not data-shape errors.
func IsDataShapeError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code != sqlite3.ErrConstraint {
			return false
		}
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintNotNull:
			return true
		}
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "22"):
			return true
		case pgErr.Code == "23502", pgErr.Code == "23514":
			return true
		}
	}
	return false
}

// NeverRecoverable treats every write error as fatal.
func NeverRecoverable(error) bool { return false }
