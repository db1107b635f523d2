package workflow

import (
	"time"

	"trawl/internal/queue"
)

// Outcome is how a run ended.
type Outcome string

const (
	// OutcomeHaltedNoWork means the queue was drained. It is a normal finish.
	OutcomeHaltedNoWork Outcome = "halted_no_work"
	// OutcomeCompleted means the run stopped at max_items with work left.
	OutcomeCompleted Outcome = "completed"
	// OutcomeHaltedOnError means the circuit breaker fired or a fatal
	// persistence error occurred. Operator attention is required.
	OutcomeHaltedOnError Outcome = "halted_on_error"
	// OutcomeInterrupted means the run was cancelled between iterations.
	OutcomeInterrupted Outcome = "interrupted"
)

// Success reports whether the outcome is a normal termination.
func (o Outcome) Success() bool {
	return o == OutcomeHaltedNoWork || o == OutcomeCompleted
}

// RunOptions tunes a single run. Zero values fall back to config.
type RunOptions struct {
	// Kind restricts the run to one kind. Empty uses scrape.kind_filter.
	Kind queue.Kind
	// MaxItems caps how many items are processed. Zero uses scrape.max_items.
	MaxItems int
	// RunID correlates logs and records. It must be a UUID; empty generates one.
	RunID string
}

// ItemFailure is an item that ended in ERROR during the run.
type ItemFailure struct {
	ID       string
	Kind     queue.Kind
	Status   queue.Status
	Attempts int
	Error    string
}

// RunResult summarizes a finished run.
type RunResult struct {
	RunID   string
	Kind    queue.Kind
	Outcome Outcome
	// Cause explains a halt; empty for normal terminations.
	Cause string

	Processed      int
	Succeeded      int
	Attempts       int
	Flushes        int
	BytesPersisted int64
	Failures       []ItemFailure
	Counts         queue.Counts

	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
}
