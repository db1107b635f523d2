package workflow

import (
	"context"
	"fmt"

	"trawl/internal/logging"
	"trawl/internal/queue"
)

// handleFailure classifies a failed attempt and records it. It returns the
// updated item and itemFailed when the loop may continue (retry or terminal
// ERROR), or itemHalted when the run must stop.
func (m *Manager) handleFailure(ctx context.Context, run *runState, item *queue.Item, priorAttempts int, fetchErr error) (*queue.Item, itemOutcome) {
	logger := logging.WithContext(ctx, m.logger)
	decision := m.policy.Decide(priorAttempts, fetchErr)

	if decision.Fatal {
		attrs := append(logging.ErrorAttrs(fetchErr), logging.Alert("run_halted"))
		logging.ErrorWithContext(logger, "fatal failure; halting run", "item_fatal", attrs...)
		run.halt(fetchErr)
		return nil, itemHalted
	}

	updated, err := m.store.MarkFailed(ctx, item.ID, decision.Message, decision.Status)
	if err != nil {
		if ctx.Err() != nil {
			return nil, itemInterrupted
		}
		run.halt(fmt.Errorf("record failure for %s: %w", item.ID, err))
		return nil, itemHalted
	}

	streak := run.breaker.Streak()
	if decision.Streak {
		streak = run.breaker.RecordFailure()
	}

	attrs := []logging.Attr{
		logging.Error(fetchErr),
		logging.String(logging.FieldErrorKind, string(decision.Kind)),
		logging.String(logging.FieldErrorCode, decision.Code),
		logging.String("resolved_status", string(updated.Status)),
		logging.Int("attempts", updated.Attempts),
		logging.Int("max_attempts", m.policy.MaxAttempts),
		logging.Int("error_streak", streak),
	}
	if decision.Retry {
		attrs = append(attrs,
			logging.Duration("backoff", decision.Delay),
			logging.String(logging.FieldImpact, "item will be retried after the backoff pause"),
		)
		logging.WarnWithContext(logger, "attempt failed; retrying", "item_retry", attrs...)
		return updated, itemFailed
	}

	attrs = append(attrs,
		logging.Alert("item_failed"),
		logging.String(logging.FieldImpact, "item marked error; requeue it to try again"),
	)
	logging.WarnWithContext(logger, "item failed", "item_failed", attrs...)
	run.result.Failures = append(run.result.Failures, ItemFailure{
		ID:       updated.ID,
		Kind:     updated.Kind,
		Status:   updated.Status,
		Attempts: updated.Attempts,
		Error:    updated.LastError,
	})
	return updated, itemFailed
}
