package llm

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"postpilot/internal/entity"
)

const logSnippetLimit = 120

func providerLogger(ctx context.Context, providerID, model string) *logrus.Entry {
	fields := logrus.Fields{
		"provider": providerID,
	}
	if trimmedModel := strings.TrimSpace(model); trimmedModel != "" {
		fields["model"] = trimmedModel
	}

	entry := logrus.WithFields(fields)
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}

func logSnippet(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	runes := []rune(value)
	if len(runes) <= logSnippetLimit {
		return value
	}

	return string(runes[:logSnippetLimit]) + "..."
}

// UsageSink receives audit entries for provider invocations. Satisfied
// by model.Repository.
type UsageSink interface {
	CreateUsageLog(ctx context.Context, log *entity.DbUsageLog) error
}

// RecordUsage appends a usage log entry. Logging is strictly
// best-effort: a failed insert is logged and swallowed so it can never
// mask the generation result.
func RecordUsage(ctx context.Context, sink UsageSink, entry entity.DbUsageLog) {
	if sink == nil {
		return
	}
	entry.Prompt = logSnippet(entry.Prompt)
	if err := sink.CreateUsageLog(ctx, &entry); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id":  entry.UserID,
			"provider": entry.Provider,
		}).Warn("usage_log_write_failed")
	}
}
