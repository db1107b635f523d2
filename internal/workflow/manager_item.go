package workflow

import (
	"context"
	"fmt"

	"trawl/internal/logging"
	"trawl/internal/queue"
	"trawl/internal/services"
	"trawl/internal/stage"
)

type itemOutcome int

const (
	itemSucceeded itemOutcome = iota
	itemFailed
	itemInterrupted
	itemHalted
)

// processItem fetches item until it succeeds, reaches a terminal failure, or
// the run must stop. Transient failures are retried in place after the
// policy's pause.
func (m *Manager) processItem(ctx context.Context, run *runState, handler stage.Handler, item *queue.Item) itemOutcome {
	logger := logging.WithContext(ctx, m.logger)
	attempts := item.Attempts
	for {
		run.result.Attempts++
		result, err := handler.Fetch(ctx, item)
		if err == nil && result == nil {
			err = services.Wrap(services.ErrStructural, "fetch", "fetch item", "handler returned no result", nil)
		}
		if err == nil {
			if err := m.persist(ctx, run, item, result); err != nil {
				if ctx.Err() != nil {
					return itemInterrupted
				}
				m.logPersistFailure(logger, err)
				run.halt(err)
				return itemHalted
			}
			run.breaker.RecordSuccess()
			run.result.Processed++
			run.result.Succeeded++
			logger.Debug("item fetched",
				logging.String(logging.FieldEventType, "item_fetched"),
				logging.Int("binaries", len(result.Binaries)),
				logging.Int64("bytes", result.Size()),
				logging.Int("buffered", run.committer.Len()),
			)
			return itemSucceeded
		}
		if ctx.Err() != nil {
			return itemInterrupted
		}

		next, outcome := m.handleFailure(ctx, run, item, attempts, err)
		if outcome != itemFailed || next == nil {
			return outcome
		}
		if next.Status == queue.StatusError {
			run.result.Processed++
			return itemFailed
		}
		attempts = next.Attempts
		if err := run.pacer.Pause(ctx, m.policy.Delay(attempts)); err != nil {
			return itemInterrupted
		}
	}
}

// persist writes binaries immediately and buffers the record. The item is
// marked completed only when its batch is flushed.
func (m *Manager) persist(ctx context.Context, run *runState, item *queue.Item, result *stage.Result) error {
	record := result.Record
	record.ID = item.ID
	record.Kind = item.Kind
	record.RunID = run.result.RunID
	if record.FetchedAt.IsZero() {
		record.FetchedAt = m.clock.Now().UTC()
	}

	if len(result.Binaries) > 0 && m.binaries == nil {
		return services.Wrap(services.ErrConfiguration, "persist", "write binary",
			fmt.Sprintf("%d binaries fetched but no binary writer configured", len(result.Binaries)), nil)
	}
	files := make([]string, 0, len(result.Binaries))
	for _, binary := range result.Binaries {
		_, written, err := m.binaries.WriteBinary(ctx, record, binary)
		if err != nil {
			return err
		}
		files = append(files, binary.Name)
		run.result.BytesPersisted += written
	}
	if len(files) > 0 {
		record.Files = files
	}

	flush, err := run.committer.Add(ctx, record)
	if err != nil {
		return err
	}
	m.recordFlush(run, flush)
	return nil
}
