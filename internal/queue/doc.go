// Package queue implements the tracker store: the durable mapping from item
// identifier to processing state that survives process restarts.
//
// Items live in a single SQLite table (`tracked_items`) with one row per
// identifier. Every mutating call commits before returning, and counts are
// always recomputed from the rows, so a crash leaves the store consistent with
// the last call that returned. Only this package mutates items; the
// orchestrator requests reads (ListPending, Stats) and issues Add, AddMany,
// MarkCompleted, and MarkFailed.
package queue
