package backoff

import (
	"time"

	"trawl/internal/config"
	"trawl/internal/queue"
	"trawl/internal/services"
)

// Policy is the linear retry policy applied to failed attempts.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// NewPolicy builds a Policy from the scrape configuration.
func NewPolicy(cfg *config.Config) Policy {
	return Policy{
		MaxAttempts: cfg.Scrape.MaxAttempts,
		BaseDelay:   cfg.BaseDelayDuration(),
	}
}

// Decision is the outcome of classifying one failed attempt.
type Decision struct {
	Kind    services.ErrorKind
	Code    string
	Message string
	// Status is the tracker status to record. Empty when Fatal is set.
	Status queue.Status
	// Retry reports that the item should be attempted again after Delay.
	Retry bool
	Delay time.Duration
	// Fatal failures halt the run without touching the item.
	Fatal bool
	// Streak reports whether the failure counts toward the circuit breaker.
	Streak bool
}

// Decide classifies err for an item that has already failed priorAttempts
// times. Transient (and unclassified) failures retry while the new attempt
// count stays under MaxAttempts; structural and not-found failures go to
// ERROR at once; local persistence and configuration failures are fatal.
func (p Policy) Decide(priorAttempts int, err error) Decision {
	kind := services.KindOf(err)
	decision := Decision{
		Kind:    kind,
		Code:    services.CodeOf(err),
		Message: services.FailureMessage(err),
	}

	switch kind {
	case services.ErrorKindIO, services.ErrorKindConfiguration:
		decision.Fatal = true
		return decision
	case services.ErrorKindStructural, services.ErrorKindNotFound, services.ErrorKindValidation:
		decision.Status = queue.StatusError
		return decision
	}

	attempts := priorAttempts + 1
	decision.Streak = true
	if attempts < p.maxAttempts() {
		decision.Status = queue.StatusRetry
		decision.Retry = true
		decision.Delay = p.Delay(attempts)
		return decision
	}
	decision.Status = queue.StatusError
	return decision
}

// Delay is the global pause applied after an item's nth failed attempt.
func (p Policy) Delay(attempts int) time.Duration {
	if attempts < 1 || p.BaseDelay <= 0 {
		return 0
	}
	return p.BaseDelay * time.Duration(attempts)
}

func (p Policy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}
