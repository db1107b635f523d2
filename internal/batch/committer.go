package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"trawl/internal/logging"
	"trawl/internal/queue"
	"trawl/internal/sink"
	"trawl/internal/stage"
)

// Tracker is the slice of the tracker store a flush needs.
type Tracker interface {
	MarkCompletedMany(ctx context.Context, completions []queue.Completion) error
}

// Flush describes one committed batch.
type Flush struct {
	Completions []queue.Completion
	Bytes       int64
}

// Committer accumulates records up to a batch size. It is not safe for
// concurrent use; the orchestrator owns it.
type Committer struct {
	writer  sink.RecordWriter
	tracker Tracker
	size    int
	logger  *slog.Logger

	buffer  []stage.Record
	flushes int
}

// New returns a Committer that flushes automatically once size records are
// buffered. A size of zero or less only flushes on explicit Flush calls.
func New(writer sink.RecordWriter, tracker Tracker, size int, logger *slog.Logger) *Committer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if size < 0 {
		size = 0
	}
	return &Committer{
		writer:  writer,
		tracker: tracker,
		size:    size,
		logger:  logging.NewComponentLogger(logger, "batch"),
	}
}

// Add buffers record and flushes when the buffer reaches the batch size. The
// returned Flush is nil when nothing was committed.
func (c *Committer) Add(ctx context.Context, record stage.Record) (*Flush, error) {
	c.buffer = append(c.buffer, record)
	if c.size > 0 && len(c.buffer) >= c.size {
		return c.Flush(ctx)
	}
	return nil, nil
}

// Len is the number of buffered records.
func (c *Committer) Len() int {
	return len(c.buffer)
}

// Flushes is the number of successful flushes so far.
func (c *Committer) Flushes() int {
	return c.flushes
}

// Flush writes the buffer and then marks its items completed. An empty buffer
// is a no-op. On failure the buffer is discarded and the error returned; the
// tracker still shows those items as pending.
func (c *Committer) Flush(ctx context.Context) (*Flush, error) {
	if len(c.buffer) == 0 {
		return nil, nil
	}
	records := c.buffer
	c.buffer = nil

	refs, err := c.writer.WriteRecords(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("write batch of %d records: %w", len(records), err)
	}
	if len(refs) != len(records) {
		return nil, errors.New("record writer returned mismatched result references")
	}

	flush := &Flush{Completions: make([]queue.Completion, len(records))}
	for i, record := range records {
		flush.Completions[i] = queue.Completion{ID: record.ID, ResultRef: refs[i]}
		flush.Bytes += int64(len(record.Payload))
	}
	if err := c.tracker.MarkCompletedMany(ctx, flush.Completions); err != nil {
		return nil, fmt.Errorf("mark batch completed: %w", err)
	}
	c.flushes++

	c.logger.Debug("batch committed",
		logging.String(logging.FieldEventType, "batch_flushed"),
		logging.String("sink", c.writer.Name()),
		logging.Int("records", len(records)),
		logging.Int64("payload_bytes", flush.Bytes),
		logging.Int("flush_number", c.flushes),
	)
	return flush, nil
}
