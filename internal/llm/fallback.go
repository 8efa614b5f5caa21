package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// Attempt is one tier of an ordered fallback chain.
type Attempt struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

// ErrAllAttemptsFailed is returned when no tier produced a usable value.
var ErrAllAttemptsFailed = errors.New("all fallback attempts failed")

// RunChain tries each attempt in order and returns the first non-empty
// value together with the name of the tier that produced it. Individual
// tier errors are logged for diagnostics and never propagated; only the
// aggregate failure crosses this boundary.
func RunChain(ctx context.Context, attempts []Attempt) (string, string, error) {
	for _, attempt := range attempts {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}

		value, err := attempt.Run(ctx)
		if err != nil {
			logrus.WithError(err).WithField("tier", attempt.Name).Info("fallback_tier_failed")
			continue
		}
		if strings.TrimSpace(value) == "" {
			logrus.WithField("tier", attempt.Name).Info("fallback_tier_empty")
			continue
		}
		return value, attempt.Name, nil
	}
	return "", "", ErrAllAttemptsFailed
}
