package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryTextRetriesOnlyRateLimits(t *testing.T) {
	calls := 0
	result := RetryText(context.Background(), LinearBackoff(4, time.Millisecond), func(ctx context.Context) TextResult {
		calls++
		if calls < 3 {
			return TextResult{Kind: KindRateLimited, Reason: "429"}
		}
		return TextResult{Kind: KindSuccess, Text: "done"}
	})

	assert.Equal(t, 3, calls)
	assert.True(t, result.Succeeded())
}

func TestRetryTextDoesNotRetryFailures(t *testing.T) {
	calls := 0
	result := RetryText(context.Background(), LinearBackoff(4, time.Millisecond), func(ctx context.Context) TextResult {
		calls++
		return TextResult{Kind: KindFailure, Reason: "boom"}
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, KindFailure, result.Kind)
}

func TestRetryTextGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	result := RetryText(context.Background(), LinearBackoff(3, time.Millisecond), func(ctx context.Context) TextResult {
		calls++
		return TextResult{Kind: KindRateLimited}
	})

	assert.Equal(t, 3, calls)
	assert.Equal(t, KindRateLimited, result.Kind)
}

func TestRetryTextWaitsWithIncreasingDelay(t *testing.T) {
	base := 10 * time.Millisecond
	policy := LinearBackoff(3, base)

	assert.Equal(t, base, policy.Delay(1))
	assert.Equal(t, 2*base, policy.Delay(2))
	assert.Equal(t, 3*base, policy.Delay(3))

	start := time.Now()
	calls := 0
	RetryText(context.Background(), policy, func(ctx context.Context) TextResult {
		calls++
		return TextResult{Kind: KindRateLimited}
	})
	elapsed := time.Since(start)

	require.Equal(t, 3, calls)
	// Two waits: base + 2*base.
	assert.GreaterOrEqual(t, elapsed, 3*base)
}

func TestRetryTextStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	result := RetryText(ctx, LinearBackoff(5, time.Minute), func(ctx context.Context) TextResult {
		calls++
		cancel()
		return TextResult{Kind: KindRateLimited}
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, KindFailure, result.Kind)
}
