package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "seq, id, kind, title, status, attempts, last_error, added_at, last_attempt_at, completed_at, result_ref"

// timestampLayout is fixed width so stored timestamps order lexicographically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		seq            int64
		id             string
		kind           string
		title          sql.NullString
		status         string
		attempts       int
		lastError      sql.NullString
		addedRaw       string
		lastAttemptRaw sql.NullString
		completedRaw   sql.NullString
		resultRef      sql.NullString
	)
	if err := scanner.Scan(
		&seq,
		&id,
		&kind,
		&title,
		&status,
		&attempts,
		&lastError,
		&addedRaw,
		&lastAttemptRaw,
		&completedRaw,
		&resultRef,
	); err != nil {
		return nil, err
	}

	item := &Item{
		Seq:       seq,
		ID:        id,
		Kind:      Kind(kind),
		Title:     title.String,
		Status:    Status(status),
		Attempts:  attempts,
		LastError: lastError.String,
		ResultRef: resultRef.String,
	}
	if added, err := parseTimeString(addedRaw); err == nil {
		item.AddedAt = added
	}
	item.LastAttemptAt = parseNullableTime(lastAttemptRaw)
	item.CompletedAt = parseNullableTime(completedRaw)
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timestampLayout)
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	parsed, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &parsed
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timestampLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = string(status)
	}
	return args
}
