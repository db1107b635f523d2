package backoff

import "sync/atomic"

// Breaker counts consecutive transient failures across every item in a run.
// It is safe for concurrent use.
type Breaker struct {
	threshold int64
	streak    atomic.Int64
}

// NewBreaker returns a breaker that trips once threshold consecutive failures
// have been recorded. A threshold below one is treated as one.
func NewBreaker(threshold int) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{threshold: int64(threshold)}
}

// RecordFailure extends the streak and returns its new length.
func (b *Breaker) RecordFailure() int {
	return int(b.streak.Add(1))
}

// RecordSuccess resets the streak.
func (b *Breaker) RecordSuccess() {
	b.streak.Store(0)
}

// Streak is the current number of consecutive failures.
func (b *Breaker) Streak() int {
	return int(b.streak.Load())
}

// Tripped reports whether the streak has reached the threshold.
func (b *Breaker) Tripped() bool {
	return b.streak.Load() >= b.threshold
}

// Threshold is the configured trip point.
func (b *Breaker) Threshold() int {
	return int(b.threshold)
}
