// Package pacer bounds the orchestration loop's iteration rate and derives
// progress telemetry from it.
//
// Each iteration is stretched to at least the configured wait time. Finished
// iteration durations feed a bounded rolling window whose mean drives the
// ETA, which is only recomputed on a schedule that spaces out as the run
// matures. The pacer never touches tracker state; callers hand it counts
// when they want a Snapshot.
package pacer
