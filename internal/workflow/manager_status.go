package workflow

import (
	"context"
	"sort"

	"trawl/internal/queue"
	"trawl/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Counts        queue.Counts
	HandlerHealth []stage.Health
}

// Status returns queue counts and the health of every registered handler.
func (m *Manager) Status(ctx context.Context) (StatusSummary, error) {
	counts, err := m.store.Stats(ctx, "")
	if err != nil {
		return StatusSummary{}, err
	}
	kinds := make([]string, 0, len(m.registry))
	for kind := range m.registry {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	summary := StatusSummary{Counts: counts}
	for _, kind := range kinds {
		handler, _ := m.registry.Lookup(queue.Kind(kind))
		summary.HandlerHealth = append(summary.HandlerHealth, handler.HealthCheck(ctx))
	}
	return summary, nil
}
