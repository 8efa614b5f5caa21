package llm

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"postpilot/internal/entity"
)

// FallbackSentence is returned when every text provider in a traversal
// fails, so callers always have displayable text.
const FallbackSentence = "Check out what's new with us today! ✨"

// alternates fixes, per preferred provider, the two providers tried
// next. Order matters and is deliberately static.
var alternates = map[string][]string{
	ProviderOpenAI:     {ProviderGemini, ProviderOpenRouter},
	ProviderGemini:     {ProviderOpenAI, ProviderOpenRouter},
	ProviderOpenRouter: {ProviderOpenAI, ProviderGemini},
}

// Router fans a text request across the registered providers, starting
// at the caller's preferred one. Individual provider failures never
// cross this boundary: the caller gets the first usable output, or the
// fixed fallback sentence.
type Router struct {
	providers map[string]TextProvider
	usage     UsageSink
}

// NewRouter registers the non-nil providers.
func NewRouter(usage UsageSink, providers ...TextProvider) *Router {
	registry := make(map[string]TextProvider, len(providers))
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		registry[provider.ID()] = provider
	}
	return &Router{providers: registry, usage: usage}
}

// Invoke calls one registered provider and records the invocation in
// the usage log. The second return is false when the provider is not
// registered.
func (r *Router) Invoke(ctx context.Context, userID uint, providerID string, request TextRequest) (TextResult, bool) {
	provider, ok := r.providers[providerID]
	if !ok {
		return TextResult{}, false
	}

	result := provider.GenerateText(ctx, request)
	RecordUsage(ctx, r.usage, entity.DbUsageLog{
		UserID:       userID,
		Kind:         "caption",
		Provider:     providerID,
		Model:        result.Model,
		Tier:         request.Tier,
		Prompt:       request.Prompt,
		Tokens:       result.Tokens,
		Success:      result.Succeeded(),
		ErrorMessage: result.Reason,
	})
	return result, true
}

// AlternatesFor returns the fixed secondary order for a preferred
// provider. Unknown providers get the openai chain.
func (r *Router) AlternatesFor(preferred string) []string {
	chain, ok := alternates[strings.TrimSpace(preferred)]
	if !ok {
		chain = alternates[ProviderOpenAI]
	}
	out := make([]string, len(chain))
	copy(out, chain)
	return out
}

// Generate tries the preferred provider, then its fixed alternates,
// returning the first non-empty text. Every provider invocation is
// recorded in the usage log.
func (r *Router) Generate(ctx context.Context, userID uint, request TextRequest, preferred string) GenerationResult {
	order := r.traversalOrder(preferred)

	for _, providerID := range order {
		result, ok := r.Invoke(ctx, userID, providerID, request)
		if !ok {
			continue
		}

		if result.Succeeded() {
			return GenerationResult{Text: result.Text, Provider: providerID, Tokens: result.Tokens}
		}

		logrus.WithFields(logrus.Fields{
			"provider": providerID,
			"reason":   logSnippet(result.Reason),
		}).Info("text_provider_failed")
	}

	logrus.WithField("preferred", preferred).Warn("all_text_providers_failed")
	return GenerationResult{Text: FallbackSentence, Provider: ProviderEmergencyFallback}
}

func (r *Router) traversalOrder(preferred string) []string {
	preferred = strings.TrimSpace(preferred)
	chain, ok := alternates[preferred]
	if !ok {
		preferred = ProviderOpenAI
		chain = alternates[preferred]
	}
	order := make([]string, 0, 1+len(chain))
	order = append(order, preferred)
	order = append(order, chain...)
	return order
}
