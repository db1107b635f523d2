package workflow

import (
	"context"
	"log/slog"

	"github.com/dustin/go-humanize"

	"trawl/internal/batch"
	"trawl/internal/logging"
)

func (m *Manager) reportProgress(ctx context.Context, run *runState) {
	counts, err := m.store.Stats(ctx, run.kind)
	if err != nil {
		if ctx.Err() == nil {
			run.logger.Debug("progress stats unavailable", logging.Error(err))
		}
		return
	}
	snapshot := run.pacer.Snapshot(counts, run.breaker.Streak())
	if snapshot.Recomputed {
		run.logger.Debug("progress",
			logging.String(logging.FieldEventType, "run_progress"),
			logging.Int("iteration", snapshot.Iteration),
			logging.Int("completed", counts.Completed),
			logging.Int("pending", counts.Pending),
			logging.Int("retry", counts.Retry),
			logging.Int("error", counts.Error),
			logging.Duration("iteration_time", snapshot.IterationTime),
			logging.Duration("average_time", snapshot.AverageTime),
			logging.Duration("eta", snapshot.ETA),
			logging.Int("error_streak", snapshot.ErrorStreak),
		)
	}
	if m.progress != nil {
		m.progress(snapshot)
	}
}

func (m *Manager) logFlush(run *runState, flush *batch.Flush) {
	run.logger.Info("batch flushed",
		logging.String(logging.FieldEventType, "batch_flushed"),
		logging.Int("records", len(flush.Completions)),
		logging.String("payload", humanize.Bytes(uint64(flush.Bytes))),
		logging.Int("flush_number", run.result.Flushes),
	)
}

func (m *Manager) logPersistFailure(logger *slog.Logger, err error) {
	attrs := append(logging.ErrorAttrs(err), logging.Alert("run_halted"))
	logging.ErrorWithContext(logger, "persisting fetched item failed; halting run", "persist_failed", attrs...)
}

func (m *Manager) logRunFinished(run *runState) {
	result := run.result
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_finished"),
		logging.String("outcome", string(result.Outcome)),
		logging.Int("processed", result.Processed),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", len(result.Failures)),
		logging.Int("attempts", result.Attempts),
		logging.Int("flushes", result.Flushes),
		logging.String("persisted", humanize.Bytes(uint64(result.BytesPersisted))),
		logging.Int("pending", result.Counts.Remaining()),
		logging.Duration("duration", result.Duration),
	}
	if result.Cause != "" {
		attrs = append(attrs, logging.String("cause", result.Cause))
	}
	if result.Outcome == OutcomeHaltedOnError {
		logging.ErrorWithContext(run.logger, "scrape run halted", "run_halted", append(attrs,
			logging.String(logging.FieldErrorHint, "inspect the cause, fix the upstream or local issue, then run again"),
		)...)
		return
	}
	run.logger.Info("scrape run finished", logging.Args(attrs...)...)
}
