package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedPoller struct {
	states []Job
	calls  int
}

func (p *scriptedPoller) PollJob(ctx context.Context, jobID string) (*Job, error) {
	idx := p.calls
	p.calls++
	if idx >= len(p.states) {
		idx = len(p.states) - 1
	}
	job := p.states[idx]
	job.ID = jobID
	return &job, nil
}

func fastPoll(maxAttempts int) PollConfig {
	return PollConfig{Interval: time.Millisecond, MaxAttempts: maxAttempts}
}

func TestWaitForJobReturnsOutputOnSuccess(t *testing.T) {
	poller := &scriptedPoller{states: []Job{
		{State: JobPending},
		{State: JobPending},
		{State: JobSucceeded, Output: "https://img.example/1.png"},
	}}

	output, err := WaitForJob(context.Background(), poller, "job-1", fastPoll(10))
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/1.png", output)
	assert.Equal(t, 3, poller.calls)
}

func TestWaitForJobContentPolicyIsSoftFailure(t *testing.T) {
	poller := &scriptedPoller{states: []Job{
		{State: JobFailed, Reason: "rejected by content_policy filter"},
	}}

	_, err := WaitForJob(context.Background(), poller, "job-2", fastPoll(10))
	assert.ErrorIs(t, err, ErrContentRejected)
}

func TestWaitForJobExhaustsAttempts(t *testing.T) {
	poller := &scriptedPoller{states: []Job{{State: JobPending}}}

	_, err := WaitForJob(context.Background(), poller, "job-3", fastPoll(4))
	assert.ErrorIs(t, err, ErrPollExhausted)
	assert.Equal(t, 4, poller.calls)
}

func TestWaitForJobSurfacesFailureReason(t *testing.T) {
	poller := &scriptedPoller{states: []Job{
		{State: JobFailed, Reason: "model crashed"},
	}}

	_, err := WaitForJob(context.Background(), poller, "job-4", fastPoll(10))
	require.Error(t, err)
	assert.EqualError(t, err, "model crashed")
}

func TestWaitForJobRequiresJobID(t *testing.T) {
	poller := &scriptedPoller{states: []Job{{State: JobSucceeded, Output: "x"}}}

	_, err := WaitForJob(context.Background(), poller, "  ", fastPoll(10))
	assert.Error(t, err)
}
