// Package logging assembles structured slog loggers and formatting helpers used
// across trawl.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing (including per-component level overrides), and exposes
// context-aware helpers so orchestration code can tag log lines with item
// identifiers, kinds, stages, and run IDs. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging
