package stage

import (
	"encoding/json"
	"time"

	"trawl/internal/queue"
)

// Record is the metadata fetched for one identifier.
type Record struct {
	ID        string          `json:"id"`
	Kind      queue.Kind      `json:"kind"`
	RunID     string          `json:"run_id,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
	Payload   json.RawMessage `json:"payload"`
	// Files lists the binaries persisted alongside the record, relative to
	// the record's directory.
	Files []string `json:"files,omitempty"`
}

// Binary is one downloaded asset belonging to a record.
type Binary struct {
	Name string
	URL  string
	Data []byte
}

// Result is what a successful Fetch hands to the orchestrator.
type Result struct {
	Record   Record
	Binaries []Binary
}

// Size is the number of bytes the result will occupy once persisted.
func (r *Result) Size() int64 {
	if r == nil {
		return 0
	}
	total := int64(len(r.Record.Payload))
	for _, bin := range r.Binaries {
		total += int64(len(bin.Data))
	}
	return total
}
