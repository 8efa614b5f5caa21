package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunChainReturnsFirstUsableValue(t *testing.T) {
	attempts := []Attempt{
		{Name: "a", Run: func(ctx context.Context) (string, error) { return "", errors.New("down") }},
		{Name: "b", Run: func(ctx context.Context) (string, error) { return "   ", nil }},
		{Name: "c", Run: func(ctx context.Context) (string, error) { return "value", nil }},
		{Name: "d", Run: func(ctx context.Context) (string, error) {
			t.Fatal("tier after first success must not run")
			return "", nil
		}},
	}

	value, tier, err := RunChain(context.Background(), attempts)
	require.NoError(t, err)
	assert.Equal(t, "value", value)
	assert.Equal(t, "c", tier)
}

func TestRunChainAggregatesTotalFailure(t *testing.T) {
	attempts := []Attempt{
		{Name: "a", Run: func(ctx context.Context) (string, error) { return "", ErrContentRejected }},
		{Name: "b", Run: func(ctx context.Context) (string, error) { return "", ErrPollExhausted }},
	}

	_, _, err := RunChain(context.Background(), attempts)
	assert.ErrorIs(t, err, ErrAllAttemptsFailed)
}

func TestRunChainStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := []Attempt{
		{Name: "a", Run: func(ctx context.Context) (string, error) {
			t.Fatal("attempt must not run after cancellation")
			return "", nil
		}},
	}

	_, _, err := RunChain(ctx, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}
