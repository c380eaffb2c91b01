package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

type settings struct {
	imported bool
	lastPass time.Time
}

func (s *Store) settings(ctx context.Context) (settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return settings{}, fmt.Errorf("loading settings: %w", err)
	}
	defer rows.Close()

	var out settings
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings{}, err
		}
		switch key {
		case settingImported:
			out.imported, _ = strconv.ParseBool(value)
		case settingLastPass:
			out.lastPass = parseTime(value)
		}
	}
	return out, rows.Err()
}

func putSettings(ctx context.Context, tx *sql.Tx, values map[string]string) error {
	for key, value := range values {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value)
		if err != nil {
			return fmt.Errorf("saving setting %s: %w", key, err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
