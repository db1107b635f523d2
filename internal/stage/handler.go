package stage

import (
	"context"

	"trawl/internal/queue"
)

// Handler is the capability a kind exposes to the orchestrator. Fetch returns
// the metadata record and any downloaded binaries; failures carry a
// services error kind so the retry policy can classify them.
type Handler interface {
	Kind() queue.Kind
	Fetch(context.Context, *queue.Item) (*Result, error)
	HealthCheck(context.Context) Health
}
