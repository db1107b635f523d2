package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a tracked item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRetry     Status = "retry"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

var allStatuses = []Status{StatusPending, StatusRetry, StatusCompleted, StatusError}

// AllStatuses returns every status in display order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a user-supplied string into a Status.
func ParseStatus(value string) (Status, bool) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// Eligible reports whether an item in this status is picked up by a run.
func (s Status) Eligible() bool {
	return s == StatusPending || s == StatusRetry
}

// Kind selects the capability handler that processes an item.
type Kind string

const (
	KindContent Kind = "content"
	KindUser    Kind = "user"
)

var allKinds = []Kind{KindContent, KindUser}

// Kinds returns every supported kind.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseKind validates a kind name. An empty string is rejected; callers that
// accept "all kinds" should check for it first.
func ParseKind(value string) (Kind, error) {
	candidate := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, kind := range allKinds {
		if kind == candidate {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
}

// Item represents a tracked identifier persisted in SQLite.
type Item struct {
	Seq           int64
	ID            string
	Kind          Kind
	Title         string
	Status        Status
	Attempts      int
	LastError     string
	AddedAt       time.Time
	LastAttemptAt *time.Time
	CompletedAt   *time.Time
	ResultRef     string
}

// Counts is the per-status tally derived from the item rows.
type Counts struct {
	Pending   int `json:"pending"`
	Retry     int `json:"retry"`
	Completed int `json:"completed"`
	Error     int `json:"error"`
}

// Total is the number of tracked items.
func (c Counts) Total() int {
	return c.Pending + c.Retry + c.Completed + c.Error
}

// Remaining is the number of items a run would still pick up.
func (c Counts) Remaining() int {
	return c.Pending + c.Retry
}

// ByStatus returns the count for a single status.
func (c Counts) ByStatus(status Status) int {
	switch status {
	case StatusPending:
		return c.Pending
	case StatusRetry:
		return c.Retry
	case StatusCompleted:
		return c.Completed
	case StatusError:
		return c.Error
	default:
		return 0
	}
}

// Completion pairs an identifier with where its output was persisted.
type Completion struct {
	ID        string
	ResultRef string
}

// DatabaseHealth captures diagnostic information about the tracker database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TableExists      bool
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}
