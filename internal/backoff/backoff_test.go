package backoff_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"trawl/internal/backoff"
	"trawl/internal/queue"
	"trawl/internal/services"
)

func TestDecideTransientRetriesUntilBudgetSpent(t *testing.T) {
	policy := backoff.Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second}
	err := services.Wrap(services.ErrTransient, "fetch", "get page", "upstream 503", nil)

	first := policy.Decide(0, err)
	if first.Status != queue.StatusRetry || !first.Retry || first.Delay != 2*time.Second {
		t.Fatalf("unexpected first decision: %+v", first)
	}
	if !first.Streak || first.Fatal {
		t.Fatalf("expected transient failure to count toward the breaker: %+v", first)
	}

	second := policy.Decide(1, err)
	if second.Status != queue.StatusRetry || second.Delay != 4*time.Second {
		t.Fatalf("unexpected second decision: %+v", second)
	}

	third := policy.Decide(2, err)
	if third.Status != queue.StatusError || third.Retry {
		t.Fatalf("expected budget exhaustion to mark error: %+v", third)
	}
	if !strings.HasPrefix(third.Message, services.CodeNoData+": ") {
		t.Fatalf("expected code prefix in message, got %q", third.Message)
	}
}

func TestDecideStructuralIsImmediatelyTerminal(t *testing.T) {
	policy := backoff.Policy{MaxAttempts: 5, BaseDelay: time.Second}
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"structural", services.Wrap(services.ErrStructural, "fetch", "extract", "item struct missing", nil), services.CodeStructural},
		{"not found", services.Wrap(services.ErrNotFound, "fetch", "get page", "404", nil), services.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := policy.Decide(0, tc.err)
			if decision.Status != queue.StatusError || decision.Retry {
				t.Fatalf("expected immediate error, got %+v", decision)
			}
			if decision.Streak {
				t.Fatal("structural failures must not count toward the breaker")
			}
			if decision.Code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, decision.Code)
			}
		})
	}
}

func TestDecidePersistenceFailureIsFatal(t *testing.T) {
	policy := backoff.Policy{MaxAttempts: 3}
	decision := policy.Decide(0, services.Wrap(services.ErrIO, "persist", "write binary", "disk full", nil))
	if !decision.Fatal || decision.Status != "" {
		t.Fatalf("expected fatal decision, got %+v", decision)
	}
}

func TestDecideUnknownErrorsAreRetried(t *testing.T) {
	policy := backoff.Policy{MaxAttempts: 2}
	decision := policy.Decide(0, fmt.Errorf("boom: %w", errors.New("opaque")))
	if decision.Kind != services.ErrorKindUnknown || decision.Status != queue.StatusRetry {
		t.Fatalf("unexpected decision: %+v", decision)
	}
	if decision.Code != services.CodeOther {
		t.Fatalf("expected code O, got %s", decision.Code)
	}
}

func TestDecideSingleAttemptBudget(t *testing.T) {
	policy := backoff.Policy{MaxAttempts: 1, BaseDelay: time.Second}
	decision := policy.Decide(0, services.Wrap(services.ErrTransient, "fetch", "get page", "timeout", nil))
	if decision.Status != queue.StatusError || decision.Delay != 0 {
		t.Fatalf("expected error with no delay, got %+v", decision)
	}
}

func TestBreakerTripsAtThresholdAndResets(t *testing.T) {
	breaker := backoff.NewBreaker(2)
	breaker.RecordFailure()
	if breaker.Tripped() {
		t.Fatal("breaker tripped too early")
	}
	breaker.RecordFailure()
	if !breaker.Tripped() {
		t.Fatal("expected breaker to trip at threshold")
	}
	breaker.RecordSuccess()
	if breaker.Tripped() || breaker.Streak() != 0 {
		t.Fatalf("expected reset, streak=%d", breaker.Streak())
	}
}

func TestBreakerConcurrentFailures(t *testing.T) {
	breaker := backoff.NewBreaker(1000)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				breaker.RecordFailure()
			}
		}()
	}
	wg.Wait()
	if breaker.Streak() != 500 {
		t.Fatalf("expected 500 failures, got %d", breaker.Streak())
	}
}
