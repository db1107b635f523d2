// Package notifications publishes run milestones via ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// the run loop can notify unconditionally. Individual events can be muted with
// the run_started, run_finished, and errors toggles in config.toml.
package notifications
