// Package llm integrates the external text and image generation
// providers. Every provider call returns a tagged result at this
// boundary so the workflows pattern-match on outcomes instead of
// digging through loosely-typed provider payloads.
package llm

import (
	"context"
	"strings"
)

// Provider identifiers.
const (
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"

	ProviderStabilityProxy  = "stability-proxy"
	ProviderStabilityDirect = "stability-direct"
	ProviderReplicate       = "replicate"
	ProviderFal             = "fal"
	ProviderOpenAIImages    = "openai-images"

	ProviderEmergencyFallback = "emergency-fallback"
)

// Billing tiers influence which model variant a provider selects.
const (
	TierFree = "free"
	TierPaid = "paid"
)

// ResultKind discriminates text generation outcomes.
type ResultKind int

const (
	KindSuccess ResultKind = iota
	KindRateLimited
	KindFailure
)

// TextRequest describes one text generation call.
type TextRequest struct {
	Prompt    string
	System    string
	Tier      string
	MaxTokens int
}

// TextResult is the tagged outcome of one provider call.
type TextResult struct {
	Kind     ResultKind
	Text     string
	Provider string
	Model    string
	Tokens   int
	Reason   string // failure or rate-limit detail, for logs only
}

// Succeeded reports whether the call produced non-empty text.
func (r TextResult) Succeeded() bool {
	return r.Kind == KindSuccess && strings.TrimSpace(r.Text) != ""
}

// TextProvider generates text for a prompt.
type TextProvider interface {
	ID() string
	GenerateText(ctx context.Context, request TextRequest) TextResult
}

// ImageProvider produces an image URL for a prompt. An empty URL with a
// nil error is a soft failure: the cascade moves on to the next tier.
type ImageProvider interface {
	ID() string
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// GenerationResult is what the fallback router hands back to callers:
// the first usable output and the provider that produced it.
type GenerationResult struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	Tokens   int    `json:"tokens,omitempty"`
}
