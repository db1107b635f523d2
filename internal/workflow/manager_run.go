package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"trawl/internal/backoff"
	"trawl/internal/batch"
	"trawl/internal/logging"
	"trawl/internal/pacer"
	"trawl/internal/queue"
	"trawl/internal/services"
)

// runState carries everything that changes during one run.
type runState struct {
	kind      queue.Kind
	maxItems  int
	pageSize  int
	result    *RunResult
	haltErr   error
	logger    *slog.Logger
	pacer     *pacer.Pacer
	breaker   *backoff.Breaker
	committer *batch.Committer
}

func (r *runState) halt(err error) {
	if r.result.Outcome == OutcomeHaltedOnError {
		return
	}
	r.result.Outcome = OutcomeHaltedOnError
	r.haltErr = err
	if err != nil {
		r.result.Cause = err.Error()
	}
}

func (r *runState) stop(outcome Outcome, cause string) {
	r.result.Outcome = outcome
	r.result.Cause = cause
}

// Run processes pending items until the queue is drained, the item cap is
// reached, the context is cancelled, or the run halts on error. Run only
// returns an error when the run could not start; halts are reported through
// RunResult.Outcome.
func (m *Manager) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	kind, err := m.resolveKind(opts.Kind)
	if err != nil {
		return nil, err
	}
	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		runID = uuid.NewString()
	} else if parsed, err := uuid.Parse(runID); err != nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "parse run id",
			fmt.Sprintf("run id %q is not a UUID", runID), err)
	} else {
		runID = parsed.String()
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = m.cfg.Scrape.MaxItems
	}

	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, m.logger)

	counts, err := m.store.Stats(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("read queue stats: %w", err)
	}

	run := &runState{
		kind:     kind,
		maxItems: maxItems,
		pageSize: m.cfg.Scrape.PageSize,
		result: &RunResult{
			RunID:     runID,
			Kind:      kind,
			StartedAt: m.clock.Now(),
		},
		logger:  logger,
		pacer:   pacer.New(m.cfg.WaitDuration(), m.cfg.Scrape.ETAWindow, pacer.WithClock(m.clock)),
		breaker: backoff.NewBreaker(m.cfg.Scrape.MaxConsecutiveErrors),
	}
	run.committer = batch.New(m.records, m.store, m.cfg.Scrape.BatchSize, m.logger)

	logger.Info("scrape run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("kind_filter", kindLabel(kind)),
		logging.Int("pending", counts.Remaining()),
		logging.Int("max_items", maxItems),
		logging.Int("batch_size", m.cfg.Scrape.BatchSize),
		logging.String("sink", m.records.Name()),
	)
	m.notifyRunStarted(ctx, counts.Remaining())

	m.loop(ctx, run)
	m.finish(ctx, run)
	return run.result, nil
}

func (m *Manager) resolveKind(kind queue.Kind) (queue.Kind, error) {
	raw := string(kind)
	if raw == "" {
		raw = m.cfg.Scrape.KindFilter
	}
	if raw == "" {
		return "", nil
	}
	parsed, err := queue.ParseKind(raw)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "workflow", "resolve kind filter", raw, err)
	}
	if _, ok := m.registry.Lookup(parsed); !ok {
		return "", services.Wrap(services.ErrConfiguration, "workflow", "resolve kind filter",
			fmt.Sprintf("no handler registered for kind %q", parsed), nil)
	}
	return parsed, nil
}

func (m *Manager) loop(ctx context.Context, run *runState) {
	for {
		if ctx.Err() != nil {
			run.stop(OutcomeInterrupted, "")
			return
		}

		limit := run.pageSize
		if run.maxItems > 0 {
			remaining := run.maxItems - run.result.Processed
			if remaining <= 0 {
				m.stopAtCap(ctx, run)
				return
			}
			if limit <= 0 || remaining < limit {
				limit = remaining
			}
		}

		page, err := m.store.ListPending(ctx, run.kind, limit)
		if err != nil {
			if ctx.Err() != nil {
				run.stop(OutcomeInterrupted, "")
				return
			}
			run.halt(fmt.Errorf("list pending items: %w", err))
			return
		}
		if len(page) == 0 {
			run.stop(OutcomeHaltedNoWork, "")
			return
		}

		for _, item := range page {
			if ctx.Err() != nil {
				run.stop(OutcomeInterrupted, "")
				return
			}
			if stop := m.iterate(ctx, run, item); stop {
				return
			}
		}

		// Page boundary: flush so buffered items are not listed again.
		if err := m.flush(ctx, run); err != nil {
			run.halt(err)
			return
		}
	}
}

// stopAtCap distinguishes a drained queue from one with work left once the
// item cap is reached.
func (m *Manager) stopAtCap(ctx context.Context, run *runState) {
	next, err := m.store.ListPending(ctx, run.kind, 1)
	if err != nil {
		if ctx.Err() != nil {
			run.stop(OutcomeInterrupted, "")
			return
		}
		run.halt(fmt.Errorf("list pending items after max_items (%d): %w", run.maxItems, err))
		return
	}
	if len(next) == 0 {
		run.stop(OutcomeHaltedNoWork, "")
		return
	}
	run.stop(OutcomeCompleted, fmt.Sprintf("reached max_items (%d)", run.maxItems))
}

// iterate runs one paced iteration for item. It reports whether the run must
// stop.
func (m *Manager) iterate(ctx context.Context, run *runState, item *queue.Item) bool {
	start := run.pacer.Start()
	handler, ok := m.registry.Lookup(item.Kind)
	if !ok {
		run.halt(services.Wrap(services.ErrConfiguration, "workflow", "resolve handler",
			fmt.Sprintf("no handler registered for kind %q (item %s)", item.Kind, item.ID), nil))
		return true
	}

	itemCtx := services.WithItemKind(services.WithItemID(ctx, item.ID), string(item.Kind))
	switch m.processItem(itemCtx, run, handler, item) {
	case itemInterrupted:
		run.stop(OutcomeInterrupted, "")
		return true
	case itemHalted:
		return true
	}

	if run.breaker.Tripped() {
		run.halt(fmt.Errorf("circuit breaker tripped after %d consecutive failures (max_consecutive_errors=%d)",
			run.breaker.Streak(), run.breaker.Threshold()))
		return true
	}

	if _, err := run.pacer.Finish(ctx, start); err != nil {
		run.stop(OutcomeInterrupted, "")
		return true
	}
	m.reportProgress(ctx, run)
	return false
}

func (m *Manager) flush(ctx context.Context, run *runState) error {
	flush, err := run.committer.Flush(ctx)
	if err != nil {
		return err
	}
	m.recordFlush(run, flush)
	return nil
}

func (m *Manager) recordFlush(run *runState, flush *batch.Flush) {
	if flush == nil {
		return
	}
	run.result.Flushes++
	run.result.BytesPersisted += flush.Bytes
	m.logFlush(run, flush)
}

// finish flushes whatever is still buffered, even after cancellation, then
// records the final counts and publishes the summary.
func (m *Manager) finish(ctx context.Context, run *runState) {
	finalCtx := context.WithoutCancel(ctx)
	if run.committer.Len() > 0 {
		if err := m.flush(finalCtx, run); err != nil {
			if run.result.Outcome == OutcomeHaltedOnError {
				logging.ErrorWithContext(run.logger, "final flush failed after halt", "final_flush_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "buffered items remain pending and will be fetched again"),
				)
			} else {
				run.halt(err)
			}
		}
	}

	counts, err := m.store.Stats(finalCtx, run.kind)
	if err != nil {
		logging.WarnWithContext(run.logger, "final queue stats unavailable", "run_stats_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check tracker database access"),
			logging.String(logging.FieldImpact, "run summary omits queue counts"),
		)
	} else {
		run.result.Counts = counts
	}

	run.result.FinishedAt = m.clock.Now()
	run.result.Duration = run.result.FinishedAt.Sub(run.result.StartedAt)
	if run.result.Outcome == "" {
		run.result.Outcome = OutcomeHaltedNoWork
	}

	m.logRunFinished(run)
	m.notifyRunFinished(finalCtx, run)
	if run.result.Outcome == OutcomeHaltedOnError {
		cause := run.haltErr
		if cause == nil {
			cause = errors.New(run.result.Cause)
		}
		m.notifyError(finalCtx, cause, "scrape run")
	}
}

func kindLabel(kind queue.Kind) string {
	if kind == "" {
		return "all"
	}
	return string(kind)
}
