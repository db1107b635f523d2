// Package runner composes a scrape run from configuration.
//
// Open takes the per-data-directory run lock, opens the tracker store, builds
// the HTTP handlers and the record sinks (file, plus Postgres when enabled),
// and hands them to a workflow.Manager. Close releases everything in reverse
// order. Only one Runner may hold a data directory at a time.
package runner
