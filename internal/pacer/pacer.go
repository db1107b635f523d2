package pacer

import (
	"context"
	"time"

	"trawl/internal/queue"
)

const (
	// MaxWindow caps the number of iteration samples kept for the average.
	MaxWindow = 100
	// warmupIterations are recomputed every time; early samples are noisy.
	warmupIterations = 10
	maxRecomputeGap  = 50
)

// Pacer enforces a minimum iteration duration and tracks throughput. It is
// not safe for concurrent use; the orchestrator owns it.
type Pacer struct {
	clock Clock
	wait  time.Duration

	window []time.Duration
	next   int
	filled int

	iterations    int
	last          time.Duration
	average       time.Duration
	eta           time.Duration
	etaValid      bool
	nextRecompute int
}

// Option customizes a Pacer.
type Option func(*Pacer)

// WithClock swaps the time source.
func WithClock(clock Clock) Option {
	return func(p *Pacer) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// New returns a Pacer that stretches iterations to wait and averages over the
// last windowSize iterations (clamped to 1..MaxWindow).
func New(wait time.Duration, windowSize int, opts ...Option) *Pacer {
	if windowSize < 1 {
		windowSize = 1
	}
	if windowSize > MaxWindow {
		windowSize = MaxWindow
	}
	if wait < 0 {
		wait = 0
	}
	p := &Pacer{
		clock:         SystemClock(),
		wait:          wait,
		window:        make([]time.Duration, windowSize),
		nextRecompute: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start marks the beginning of an iteration.
func (p *Pacer) Start() time.Time {
	return p.clock.Now()
}

// Finish closes the iteration begun at start. When the work took less than
// the wait time the remainder is slept; an overrun adds no delay. The full
// iteration duration is recorded and returned. A cancelled context cuts the
// sleep short and is reported after the sample is recorded.
func (p *Pacer) Finish(ctx context.Context, start time.Time) (time.Duration, error) {
	elapsed := p.clock.Now().Sub(start)
	var sleepErr error
	if remainder := p.wait - elapsed; remainder > 0 {
		sleepErr = p.clock.Sleep(ctx, remainder)
	}
	total := p.clock.Now().Sub(start)
	if total < 0 {
		total = 0
	}
	p.observe(total)
	return total, sleepErr
}

// Pause sleeps for d on the pacer's clock. The orchestrator uses it for the
// global backoff penalty so tests see every delay.
func (p *Pacer) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return p.clock.Sleep(ctx, d)
}

func (p *Pacer) observe(d time.Duration) {
	p.window[p.next] = d
	p.next = (p.next + 1) % len(p.window)
	if p.filled < len(p.window) {
		p.filled++
	}
	p.iterations++
	p.last = d
}

// Iterations is the number of finished iterations.
func (p *Pacer) Iterations() int {
	return p.iterations
}

// Average is the mean of the samples currently in the window.
func (p *Pacer) Average() time.Duration {
	if p.filled == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < p.filled; i++ {
		sum += p.window[i]
	}
	return sum / time.Duration(p.filled)
}

// RecomputeInterval is the number of iterations between ETA recomputations
// after n iterations: every iteration during warm-up, then a gap that grows
// by one per ten iterations up to a ceiling.
func RecomputeInterval(n int) int {
	if n <= warmupIterations {
		return 1
	}
	gap := 1 + n/10
	if gap > maxRecomputeGap {
		return maxRecomputeGap
	}
	return gap
}

// Snapshot is the operator-facing progress view after an iteration.
type Snapshot struct {
	Iteration     int
	Counts        queue.Counts
	IterationTime time.Duration
	AverageTime   time.Duration
	ETA           time.Duration
	ETAValid      bool
	Recomputed    bool
	ErrorStreak   int
}

// Snapshot reports progress for the given tracker counts. The moving average
// and ETA are refreshed only when the recompute schedule is due; otherwise
// the previous estimate is carried.
func (p *Pacer) Snapshot(counts queue.Counts, errorStreak int) Snapshot {
	recomputed := false
	if p.iterations > 0 && p.iterations >= p.nextRecompute {
		p.average = p.Average()
		p.eta = time.Duration(counts.Remaining()) * p.average
		p.etaValid = true
		p.nextRecompute = p.iterations + RecomputeInterval(p.iterations)
		recomputed = true
	}
	return Snapshot{
		Iteration:     p.iterations,
		Counts:        counts,
		IterationTime: p.last,
		AverageTime:   p.average,
		ETA:           p.eta,
		ETAValid:      p.etaValid,
		Recomputed:    recomputed,
		ErrorStreak:   errorStreak,
	}
}
