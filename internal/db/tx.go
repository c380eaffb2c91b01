package db

import (
	"context"
	"database/sql"
	"time"
)

// WithTx executes fn within a transaction.
// It handles Begin, Rollback on error, and Commit on success.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// NullID returns nil for a zero row id so that SQLite assigns one.
func NullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// NullTimeFromPtr converts a *time.Time to a nullable unix timestamp.
func NullTimeFromPtr(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

// NullTimeToPtr converts a nullable unix timestamp to a UTC *time.Time.
// Returns nil if the value is not valid.
func NullTimeToPtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0).UTC()
	return &t
}
