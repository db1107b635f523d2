package sink

import (
	"context"

	"trawl/internal/stage"
)

// RecordWriter persists a flushed batch of records. It returns one result
// reference per record, aligned with the input.
type RecordWriter interface {
	Name() string
	WriteRecords(ctx context.Context, records []stage.Record) ([]string, error)
}

// BinaryWriter persists one binary belonging to record and returns where it
// was written and how many bytes landed.
type BinaryWriter interface {
	WriteBinary(ctx context.Context, record stage.Record, binary stage.Binary) (string, int64, error)
}
