package queue

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// The CASE expressions keep per-item timestamps non-decreasing even if the
// wall clock steps backwards between calls.
const markCompletedSQL = `UPDATE tracked_items
SET status = ?,
    completed_at = CASE WHEN completed_at IS NOT NULL AND completed_at > ? THEN completed_at ELSE ? END,
    result_ref = ?
WHERE id = ?`

// MarkCompleted sets an item COMPLETED with its result reference. Calling it
// again is safe and moves completed_at to the later call. An unknown id
// returns ErrItemNotFound.
func (s *Store) MarkCompleted(ctx context.Context, id, resultRef string) error {
	id = strings.TrimSpace(id)
	resultRef = strings.TrimSpace(resultRef)
	if resultRef == "" {
		return fmt.Errorf("mark %s completed: %w", id, ErrMissingResultRef)
	}
	timestamp := formatTime(s.now())
	res, err := s.execWithRetry(ctx, markCompletedSQL, string(StatusCompleted), timestamp, timestamp, resultRef, id)
	if err != nil {
		return fmt.Errorf("mark %s completed: %w", id, err)
	}
	return requireAffected(res, id)
}

// MarkCompletedMany completes a flushed batch in one transaction. If any id is
// unknown nothing is committed.
func (s *Store) MarkCompletedMany(ctx context.Context, completions []Completion) error {
	if len(completions) == 0 {
		return nil
	}
	for _, c := range completions {
		if strings.TrimSpace(c.ResultRef) == "" {
			return fmt.Errorf("mark %s completed: %w", c.ID, ErrMissingResultRef)
		}
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, markCompletedSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()

		timestamp := formatTime(s.now())
		for _, c := range completions {
			id := strings.TrimSpace(c.ID)
			res, err := stmt.ExecContext(ctx, string(StatusCompleted), timestamp, timestamp, strings.TrimSpace(c.ResultRef), id)
			if err != nil {
				return err
			}
			if err := requireAffected(res, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark batch completed: %w", err)
	}
	return nil
}

// MarkFailed records one failed attempt: attempts increments, last_attempt_at
// and last_error are stamped, and the item moves to status, which must be
// StatusRetry or StatusError. The updated item is returned.
func (s *Store) MarkFailed(ctx context.Context, id, message string, status Status) (*Item, error) {
	if status != StatusRetry && status != StatusError {
		return nil, fmt.Errorf("mark %s failed as %q: %w", id, status, ErrInvalidFailureStatus)
	}
	id = strings.TrimSpace(id)
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	timestamp := formatTime(s.now())
	res, err := s.execWithRetry(ctx, `UPDATE tracked_items
SET status = ?,
    attempts = attempts + 1,
    last_error = ?,
    last_attempt_at = CASE WHEN last_attempt_at IS NOT NULL AND last_attempt_at > ? THEN last_attempt_at ELSE ? END
WHERE id = ?`, string(status), message, timestamp, timestamp, id)
	if err != nil {
		return nil, fmt.Errorf("mark %s failed: %w", id, err)
	}
	if err := requireAffected(res, id); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Requeue is the operator re-enqueue: the listed items go back to PENDING
// while attempts and last_error are kept for audit. Items already pending are
// left alone. It returns the number of items moved.
func (s *Store) Requeue(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{string(StatusPending), string(StatusPending)}
	for _, id := range ids {
		args = append(args, strings.TrimSpace(id))
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE tracked_items SET status = ? WHERE status != ? AND id IN (`+makePlaceholders(len(ids))+`)`,
		args...)
	if err != nil {
		return 0, fmt.Errorf("requeue items: %w", err)
	}
	return res.RowsAffected()
}

// RequeueFailed moves every ERROR and RETRY item back to PENDING.
func (s *Store) RequeueFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE tracked_items SET status = ? WHERE status IN (?, ?)`,
		string(StatusPending), string(StatusError), string(StatusRetry))
	if err != nil {
		return 0, fmt.Errorf("requeue failed items: %w", err)
	}
	return res.RowsAffected()
}

func requireAffected(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return nil
}
