package stage

import (
	"fmt"

	"trawl/internal/queue"
)

// Registry resolves the handler for each kind once, at construction.
type Registry map[queue.Kind]Handler

// NewRegistry indexes handlers by kind. Registering two handlers for the
// same kind is an error.
func NewRegistry(handlers ...Handler) (Registry, error) {
	registry := make(Registry, len(handlers))
	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		kind := handler.Kind()
		if _, exists := registry[kind]; exists {
			return nil, fmt.Errorf("duplicate handler for kind %q", kind)
		}
		registry[kind] = handler
	}
	return registry, nil
}

// Lookup returns the handler for kind.
func (r Registry) Lookup(kind queue.Kind) (Handler, bool) {
	handler, ok := r[kind]
	return handler, ok
}
