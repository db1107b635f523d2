// Package workflow drives a scrape run over the tracker queue.
//
// Manager.Run pages through pending and retry items, dispatches each to the
// stage.Handler registered for its kind, and hands successful results to the
// batch committer. Items are only marked completed after their batch has been
// durably written. Failures are classified by the backoff policy: transient
// errors retry in place after a global pause, structural and not-found errors
// go straight to ERROR, and persistence errors halt the run. A shared circuit
// breaker halts the run after too many consecutive transient failures.
//
// Every iteration is paced by a pacer.Pacer, which also produces the progress
// snapshots handed to the optional progress callback. Run state lives in a
// per-call runState value, so a Manager can be reused across runs.
package workflow
