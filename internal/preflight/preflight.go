package preflight

import (
	"context"

	"trawl/internal/config"
	"trawl/internal/stage"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config, handlers []stage.Handler) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results,
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckTracker(ctx, cfg),
	)

	if cfg.Postgres.Enabled {
		results = append(results, CheckPostgres(ctx, cfg))
	}

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		results = append(results, CheckHandler(ctx, handler))
	}

	results = append(results, CheckNotificationsFromConfig(cfg))
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
