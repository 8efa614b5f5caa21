package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// JobState is the normalized status of an async generation job.
type JobState string

const (
	JobPending   JobState = "pending"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// Job is one poll observation.
type Job struct {
	ID     string
	State  JobState
	Output string
	Reason string
}

// JobPoller checks the current status of a submitted job.
type JobPoller interface {
	PollJob(ctx context.Context, jobID string) (*Job, error)
}

// PollConfig bounds the polling loop: a fixed interval times a fixed
// attempt count gives the effective deadline for an async provider.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPollConfig suits most job-based image providers.
var DefaultPollConfig = PollConfig{
	Interval:    2 * time.Second,
	MaxAttempts: 60,
}

// ErrContentRejected marks a content-policy rejection. It is a soft
// failure: the cascade continues with the next tier instead of
// surfacing an error.
var ErrContentRejected = errors.New("generation rejected by content policy")

// ErrPollExhausted marks a job that never completed within the attempt
// budget; also a soft failure for the cascade.
var ErrPollExhausted = errors.New("polling exceeded maximum attempts")

// WaitForJob polls until the job completes or the attempt budget runs
// out.
func WaitForJob(ctx context.Context, poller JobPoller, jobID string, config PollConfig) (string, error) {
	if strings.TrimSpace(jobID) == "" {
		return "", errors.New("job id is required")
	}

	interval := config.Interval
	if interval <= 0 {
		interval = DefaultPollConfig.Interval
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollConfig.MaxAttempts
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempts := 1; ; attempts++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		job, err := poller.PollJob(ctx, jobID)
		if err != nil {
			return "", err
		}

		switch job.State {
		case JobSucceeded:
			return job.Output, nil
		case JobFailed:
			if isContentPolicyReason(job.Reason) {
				logrus.WithFields(logrus.Fields{
					"job_id": jobID,
					"reason": logSnippet(job.Reason),
				}).Info("job_content_policy_rejection")
				return "", ErrContentRejected
			}
			if job.Reason != "" {
				return "", errors.New(job.Reason)
			}
			return "", errors.New("job failed without reason")
		default:
			if attempts >= maxAttempts {
				return "", ErrPollExhausted
			}
		}
	}
}

func isContentPolicyReason(reason string) bool {
	lowered := strings.ToLower(reason)
	return strings.Contains(lowered, "content_policy") ||
		strings.Contains(lowered, "content policy") ||
		strings.Contains(lowered, "safety") ||
		strings.Contains(lowered, "nsfw")
}
