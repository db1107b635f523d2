package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const insertItemSQL = `INSERT INTO tracked_items (id, kind, title, status, attempts, added_at)
VALUES (?, ?, ?, ?, 0, ?)
ON CONFLICT(id) DO NOTHING`

// Add enqueues id in PENDING. Re-adding an existing id is a no-op and leaves
// its status, attempts, and added_at untouched; the returned bool reports
// whether a row was inserted.
func (s *Store) Add(ctx context.Context, id string, kind Kind, title string) (bool, error) {
	id, err := normalizeNewItem(id, kind)
	if err != nil {
		return false, err
	}
	res, err := s.execWithRetry(ctx, insertItemSQL,
		id, string(kind), nullableString(strings.TrimSpace(title)), string(StatusPending), formatTime(s.now()))
	if err != nil {
		return false, fmt.Errorf("insert item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// AddMany enqueues every id in one transaction. Either all new ids become
// visible or none do. It returns the number of newly inserted rows.
func (s *Store) AddMany(ctx context.Context, ids []string, kind Kind, title string) (int, error) {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		normalized, err := normalizeNewItem(id, kind)
		if err != nil {
			return 0, err
		}
		cleaned = append(cleaned, normalized)
	}
	if len(cleaned) == 0 {
		return 0, nil
	}

	title = strings.TrimSpace(title)
	var inserted int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		inserted = 0
		stmt, err := tx.PrepareContext(ctx, insertItemSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()

		timestamp := formatTime(s.now())
		for _, id := range cleaned {
			res, err := stmt.ExecContext(ctx, id, string(kind), nullableString(title), string(StatusPending), timestamp)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += int(affected)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("insert items: %w", err)
	}
	return inserted, nil
}

func normalizeNewItem(id string, kind Kind) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrEmptyID
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return "", err
	}
	return id, nil
}

// Get fetches an item by identifier. It returns nil when the id is unknown.
func (s *Store) Get(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM tracked_items WHERE id = ?`, strings.TrimSpace(id))
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// ListPending returns PENDING and RETRY items in insertion order, optionally
// restricted to one kind, up to limit (limit <= 0 means no limit). It always
// reads committed rows.
func (s *Store) ListPending(ctx context.Context, kind Kind, limit int) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM tracked_items WHERE status IN (?, ?)`
	args := []any{string(StatusPending), string(StatusRetry)}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY seq LIMIT ?`
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)

	items, err := s.queryItems(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending items: %w", err)
	}
	return items, nil
}

// List returns items filtered by kind (empty for all) and status set (or
// every status when none is provided), in insertion order.
func (s *Store) List(ctx context.Context, kind Kind, statuses ...Status) ([]*Item, error) {
	var (
		clauses []string
		args    []any
	)
	if kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(kind))
	}
	if len(statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(statuses))+")")
		args = append(args, statusArgs(statuses)...)
	}
	query := `SELECT ` + itemColumns + ` FROM tracked_items`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY seq`

	items, err := s.queryItems(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Remove deletes an item by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM tracked_items WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed items.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM tracked_items WHERE status = ?`, string(StatusCompleted))
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every tracked item.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM tracked_items`)
	if err != nil {
		return 0, fmt.Errorf("clear items: %w", err)
	}
	return res.RowsAffected()
}
