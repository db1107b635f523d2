package sink

import (
	"context"
	"fmt"
	"strings"

	"trawl/internal/stage"
)

// FanOut writes each batch to every writer in order. The first writer's
// references are returned; any failure fails the whole write.
type FanOut struct {
	writers []RecordWriter
}

// NewFanOut chains writers, skipping nils.
func NewFanOut(writers ...RecordWriter) *FanOut {
	out := &FanOut{}
	for _, w := range writers {
		if w != nil {
			out.writers = append(out.writers, w)
		}
	}
	return out
}

// Name lists the chained writers.
func (f *FanOut) Name() string {
	names := make([]string, 0, len(f.writers))
	for _, w := range f.writers {
		names = append(names, w.Name())
	}
	return strings.Join(names, "+")
}

// WriteRecords writes records to each writer in turn.
func (f *FanOut) WriteRecords(ctx context.Context, records []stage.Record) ([]string, error) {
	if len(f.writers) == 0 {
		return nil, fmt.Errorf("no record writers configured")
	}
	var primary []string
	for i, w := range f.writers {
		refs, err := w.WriteRecords(ctx, records)
		if err != nil {
			return nil, fmt.Errorf("%s sink: %w", w.Name(), err)
		}
		if i == 0 {
			primary = refs
		}
	}
	return primary, nil
}
