package pacer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"trawl/internal/pacer"
	"trawl/internal/queue"
	"trawl/internal/testsupport"
)

func TestFinishSleepsRemainder(t *testing.T) {
	clock := testsupport.NewClock()
	p := pacer.New(time.Second, 10, pacer.WithClock(clock))

	start := p.Start()
	clock.Advance(300 * time.Millisecond)
	total, err := p.Finish(context.Background(), start)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if total != time.Second {
		t.Fatalf("expected iteration stretched to 1s, got %v", total)
	}
	if sleeps := clock.Sleeps(); len(sleeps) != 1 || sleeps[0] != 700*time.Millisecond {
		t.Fatalf("unexpected sleeps: %v", sleeps)
	}
}

func TestFinishOverrunAddsNoDelay(t *testing.T) {
	clock := testsupport.NewClock()
	p := pacer.New(time.Second, 10, pacer.WithClock(clock))

	start := p.Start()
	clock.Advance(3 * time.Second)
	total, err := p.Finish(context.Background(), start)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if total != 3*time.Second {
		t.Fatalf("expected 3s, got %v", total)
	}
	if len(clock.Sleeps()) != 0 {
		t.Fatalf("expected no sleep, got %v", clock.Sleeps())
	}
}

func TestFinishReportsCancellation(t *testing.T) {
	p := pacer.New(time.Hour, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Finish(ctx, p.Start())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if p.Iterations() != 1 {
		t.Fatalf("expected the sample to be recorded, got %d", p.Iterations())
	}
}

func TestRollingWindowIsBounded(t *testing.T) {
	clock := testsupport.NewClock()
	p := pacer.New(0, 3, pacer.WithClock(clock))

	for _, d := range []time.Duration{10 * time.Second, 1 * time.Second, 2 * time.Second, 3 * time.Second} {
		start := p.Start()
		clock.Advance(d)
		if _, err := p.Finish(context.Background(), start); err != nil {
			t.Fatal(err)
		}
	}
	if got := p.Average(); got != 2*time.Second {
		t.Fatalf("expected the oldest sample to fall out of the window, average=%v", got)
	}
}

func TestRecomputeInterval(t *testing.T) {
	cases := map[int]int{1: 1, 10: 1, 11: 2, 25: 3, 100: 11, 490: 50, 10000: 50}
	for n, want := range cases {
		if got := pacer.RecomputeInterval(n); got != want {
			t.Fatalf("RecomputeInterval(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestSnapshotETASchedule(t *testing.T) {
	clock := testsupport.NewClock()
	p := pacer.New(0, 100, pacer.WithClock(clock))

	if snap := p.Snapshot(queue.Counts{Pending: 5}, 0); snap.ETAValid || snap.Recomputed {
		t.Fatalf("expected no estimate before the first iteration: %+v", snap)
	}

	var recomputedAt []int
	for i := 1; i <= 20; i++ {
		start := p.Start()
		clock.Advance(2 * time.Second)
		if _, err := p.Finish(context.Background(), start); err != nil {
			t.Fatal(err)
		}
		snap := p.Snapshot(queue.Counts{Pending: 10, Retry: 2}, 1)
		if snap.Recomputed {
			recomputedAt = append(recomputedAt, i)
		}
		if !snap.ETAValid || snap.ETA != 24*time.Second {
			t.Fatalf("iteration %d: unexpected eta %v", i, snap.ETA)
		}
		if snap.ErrorStreak != 1 || snap.IterationTime != 2*time.Second {
			t.Fatalf("iteration %d: unexpected snapshot %+v", i, snap)
		}
	}
	want := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19}
	if len(recomputedAt) != len(want) {
		t.Fatalf("recomputed at %v, want %v", recomputedAt, want)
	}
	for i := range want {
		if recomputedAt[i] != want[i] {
			t.Fatalf("recomputed at %v, want %v", recomputedAt, want)
		}
	}
}

func TestPauseUsesClock(t *testing.T) {
	clock := testsupport.NewClock()
	p := pacer.New(0, 1, pacer.WithClock(clock))
	if err := p.Pause(context.Background(), 6*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := p.Pause(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if sleeps := clock.Sleeps(); len(sleeps) != 1 || sleeps[0] != 6*time.Second {
		t.Fatalf("unexpected sleeps: %v", sleeps)
	}
}
