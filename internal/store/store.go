// Package store provides the durable local store for decoded feed records.
//
// The store is a SQLite database (ncruces/go-sqlite3, WAL mode) with one
// table per collection. Every collection table has the same shape:
//
//	key      TEXT PRIMARY KEY  -- the record's natural identifier
//	position INTEGER           -- feed order, used to read records back in order
//	body     TEXT              -- the record as JSON
//
// Collections support exactly two operations. ReplaceAll clears a collection
// and writes the new records in a single transaction, so readers never see a
// half-replaced collection. ReadAll returns every record, and an empty slice
// for a collection that was never written.
//
// Collections are independent: a failed ReplaceAll on one leaves the others
// as they were. A small meta table holds key/value state such as the time of
// the last successful sync.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SchemaVersion is the current on-disk schema version. Bump it whenever a
// collection's key or shape changes and add the matching step to migrate.
const SchemaVersion = 5

// Store wraps the SQLite connection holding the collections.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the store at path and migrates it to
// SchemaVersion. The caller must Close the store when done.
//
// Example:
//
//	st, err := store.Open(filepath.Join(home, ".palmtask", "palmtask.db"))
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func Open(path string) (*Store, error) {
	return OpenContext(context.Background(), path)
}

// dsnParams applies the pragmas on every pooled connection. Write
// transactions take the write lock at BEGIN so a reader never has to be
// upgraded mid-transaction.
const dsnParams = "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)&_txlock=immediate"

// OpenContext is Open with context support.
func OpenContext(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	// Single writer, a few readers.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	if err := s.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to migrate store: %w", err)
	}
	return s, nil
}

// RawDB returns the underlying sql.DB connection.
func (s *Store) RawDB() *sql.DB { return s.conn }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Size returns the size in bytes of the database file and its WAL.
func (s *Store) Size() int64 {
	var total int64
	for _, p := range []string{s.path, s.path + "-wal"} {
		if fi, err := os.Stat(p); err == nil {
			total += fi.Size()
		}
	}
	return total
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	s.conn = nil
	return nil
}

// Version returns the schema version recorded in the database.
func (s *Store) Version(ctx context.Context) (int, error) {
	var version int
	err := s.conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) migrate(ctx context.Context) error {
	version := 0
	// Missing table on a fresh file; version stays 0.
	_ = s.conn.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		stmt := `
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS meta (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);
		` + collectionDDL(tasksTable) + collectionDDL(nonBuyersTable) + `
			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration 1: %w", err)
		}
	}

	if version < 2 {
		stmt := collectionDDL(skuMapTable) + `
			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration 2: %w", err)
		}
	}

	if version < 3 {
		stmt := collectionDDL(productImagesTable) + `
			INSERT OR IGNORE INTO schema_version (version) VALUES (3);
		`
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration 3: %w", err)
		}
	}

	if version < 4 {
		stmt := collectionDDL(consultantsTable) + `
			INSERT OR IGNORE INTO schema_version (version) VALUES (4);
		`
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration 4: %w", err)
		}
	}

	// v5: read-back order index. Also recreates any collection table that
	// went missing since it was first created.
	if version < 5 {
		stmt := ""
		for _, table := range allTables {
			stmt += collectionDDL(table) + fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS idx_%s_position ON %s(position);\n", table, table)
		}
		stmt += "INSERT OR IGNORE INTO schema_version (version) VALUES (5);"
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration 5: %w", err)
		}
	}

	return nil
}

func collectionDDL(table string) string {
	return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				key      TEXT PRIMARY KEY,
				position INTEGER NOT NULL,
				body     TEXT NOT NULL
			);
	`, table)
}

func (s *Store) hasTable(ctx context.Context, table string) (bool, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", table, err)
	}
	return n > 0, nil
}
