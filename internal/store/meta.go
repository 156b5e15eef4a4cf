package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Meta keys.
const (
	MetaLastSync      = "last_sync"
	MetaSessionSector = "session_sector"
)

// SetMeta stores value under key.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set meta %s: %w", key, err)
	}
	return nil
}

// Meta returns the value stored under key.
func (s *Store) Meta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get meta %s: %w", key, err)
	}
	return value, true, nil
}

// DeleteMeta removes key.
func (s *Store) DeleteMeta(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM meta WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete meta %s: %w", key, err)
	}
	return nil
}

// SetLastSync records the time of a successful sync.
func (s *Store) SetLastSync(ctx context.Context, t time.Time) error {
	return s.SetMeta(ctx, MetaLastSync, t.UTC().Format(time.RFC3339))
}

// LastSync returns the time of the last successful sync. The zero time and
// false mean the store was never synced.
func (s *Store) LastSync(ctx context.Context) (time.Time, bool, error) {
	v, ok, err := s.Meta(ctx, MetaLastSync)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse last sync %q: %w", v, err)
	}
	return t, true, nil
}
