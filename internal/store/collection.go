package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/palmtask/palmtask/internal/schema"
)

const (
	tasksTable         = "tasks"
	nonBuyersTable     = "non_buyers"
	skuMapTable        = "sku_map"
	productImagesTable = "product_images"
	consultantsTable   = "consultants"
)

var allTables = []string{tasksTable, nonBuyersTable, skuMapTable, productImagesTable, consultantsTable}

// Record is a value that can live in a collection.
type Record interface {
	Key() string
	Validate() error
}

// Collection names one collection and the record type it holds.
type Collection[T Record] struct {
	name string
}

// Name returns the collection's table name.
func (c Collection[T]) Name() string { return c.name }

func (c Collection[T]) String() string { return c.name }

// The five collections, one per feed.
var (
	Tasks         = Collection[schema.Task]{name: tasksTable}
	NonBuyers     = Collection[schema.NonBuyer]{name: nonBuyersTable}
	SkuMap        = Collection[schema.TaskSkuMap]{name: skuMapTable}
	ProductImages = Collection[schema.ProductImage]{name: productImagesTable}
	Consultants   = Collection[schema.Consultant]{name: consultantsTable}
)

// CollectionNames lists every collection table in a stable order.
func CollectionNames() []string {
	return append([]string(nil), allTables...)
}

// ReplaceAll clears collection c and writes records in one transaction.
// Records are validated before anything is written. When two records share
// a key the later one wins.
func ReplaceAll[T Record](ctx context.Context, s *Store, c Collection[T], records []T) error {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("invalid %s record %d (key %q): %w", c.name, i, r.Key(), err)
		}
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, collectionDDL(c.name)); err != nil {
		return fmt.Errorf("failed to ensure table %s: %w", c.name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+c.name); err != nil {
		return fmt.Errorf("failed to clear %s: %w", c.name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO `+c.name+` (key, position, body) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			position = excluded.position,
			body = excluded.body
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", c.name, err)
	}
	defer stmt.Close()

	for i, r := range records {
		body, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal %s record %q: %w", c.name, r.Key(), err)
		}
		if _, err := stmt.ExecContext(ctx, r.Key(), i, string(body)); err != nil {
			return fmt.Errorf("failed to insert %s record %q: %w", c.name, r.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", c.name, err)
	}
	return nil
}

// ReadAll returns every record of collection c in feed order. A collection
// that was never written yields an empty, non-nil slice.
func ReadAll[T Record](ctx context.Context, s *Store, c Collection[T]) ([]T, error) {
	out := []T{}
	ok, err := s.hasTable(ctx, c.name)
	if err != nil || !ok {
		return out, err
	}

	rows, err := s.conn.QueryContext(ctx, "SELECT key, body FROM "+c.name+" ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", c.name, err)
		}
		var r T
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("failed to decode %s record %q: %w", c.name, key, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.name, err)
	}
	return out, nil
}

// Count returns the number of records in the named collection table, or 0
// when the table does not exist.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	ok, err := s.hasTable(ctx, table)
	if err != nil || !ok {
		return 0, err
	}
	var n int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// Counts returns the record count of every collection.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(allTables))
	for _, table := range allTables {
		n, err := s.Count(ctx, table)
		if err != nil {
			return nil, err
		}
		out[table] = n
	}
	return out, nil
}
