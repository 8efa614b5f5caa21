package llm

import (
	"context"
	"time"
)

// BackoffPolicy describes a bounded retry schedule. Delay growth is a
// function of the attempt number so callers can choose linear or other
// shapes without another retry implementation.
type BackoffPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Growth      func(attempt int, base time.Duration) time.Duration
}

// LinearBackoff waits base, 2*base, 3*base, ... between attempts.
func LinearBackoff(maxAttempts int, base time.Duration) BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   base,
		Growth: func(attempt int, base time.Duration) time.Duration {
			return time.Duration(attempt) * base
		},
	}
}

// Delay returns the wait before retrying after the given attempt
// (1-based).
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if p.Growth == nil {
		return p.BaseDelay
	}
	return p.Growth(attempt, p.BaseDelay)
}

// RetryText calls fn until it returns anything other than a rate-limit
// result, waiting per the policy between attempts. Only rate limiting is
// retried here; other failures are handed to the fallback cascade so a
// persistently failing provider does not stall the request.
func RetryText(ctx context.Context, policy BackoffPolicy, fn func(ctx context.Context) TextResult) TextResult {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var result TextResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result = fn(ctx)
		if result.Kind != KindRateLimited {
			return result
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			result.Reason = ctx.Err().Error()
			result.Kind = KindFailure
			return result
		case <-time.After(policy.Delay(attempt)):
		}
	}
	return result
}
