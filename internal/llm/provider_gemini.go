package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const geminiGenerateEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// Request payload pieces ----------------------------------------------------
type (
	geminiPart struct {
		Text string `json:"text,omitempty"`
	}
	geminiContent struct {
		Role  string       `json:"role,omitempty"`
		Parts []geminiPart `json:"parts"`
	}
	geminiRequest struct {
		Contents          []geminiContent          `json:"contents"`
		SystemInstruction *geminiContent           `json:"systemInstruction,omitempty"`
		GenerationConfig  *geminiGenerationConfig  `json:"generationConfig,omitempty"`
	}
	geminiGenerationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
	}
)

// Response payload pieces ---------------------------------------------------
type (
	geminiCandidate struct {
		FinishReason string        `json:"finishReason,omitempty"`
		Content      geminiContent `json:"content"`
	}
	geminiUsage struct {
		TotalTokenCount int `json:"totalTokenCount"`
	}
	geminiError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	geminiResponse struct {
		Candidates    []geminiCandidate `json:"candidates"`
		UsageMetadata *geminiUsage      `json:"usageMetadata,omitempty"`
		Error         *geminiError      `json:"error,omitempty"`
	}
)

// Gemini is a text provider speaking the Google generateContent API.
type Gemini struct {
	apiKey     string
	httpClient *http.Client
}

// NewGemini builds the provider from an API key.
func NewGemini(apiKey string) (*Gemini, error) {
	trimmed := strings.TrimSpace(apiKey)
	if trimmed == "" {
		return nil, errors.New("gemini api key is not configured")
	}
	return &Gemini{
		apiKey:     trimmed,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (g *Gemini) ID() string {
	return ProviderGemini
}

func (g *Gemini) modelForTier(tier string) string {
	if tier == TierFree {
		return "gemini-1.5-flash"
	}
	return "gemini-1.5-pro"
}

func (g *Gemini) GenerateText(ctx context.Context, request TextRequest) TextResult {
	if g == nil || g.httpClient == nil {
		return TextResult{Kind: KindFailure, Provider: ProviderGemini, Reason: "provider not initialised"}
	}

	model := g.modelForTier(request.Tier)
	log := providerLogger(ctx, ProviderGemini, model)
	log.WithField("prompt_preview", logSnippet(request.Prompt)).Info("gemini_generate_text_start")

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: request.Prompt}}},
		},
	}
	if system := strings.TrimSpace(request.System); system != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	if request.MaxTokens > 0 {
		reqBody.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: request.MaxTokens}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return TextResult{Kind: KindFailure, Provider: ProviderGemini, Model: model, Reason: fmt.Sprintf("marshal request: %v", err)}
	}

	targetURL := fmt.Sprintf(geminiGenerateEndpoint, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return TextResult{Kind: KindFailure, Provider: ProviderGemini, Model: model, Reason: fmt.Sprintf("create request: %v", err)}
	}
	// Header keeps the API key out of logged URLs.
	req.Header.Set("x-goog-api-key", g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("gemini_request_failed")
		return TextResult{Kind: KindFailure, Provider: ProviderGemini, Model: model, Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TextResult{Kind: KindFailure, Provider: ProviderGemini, Model: model, Reason: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return TextResult{Kind: KindRateLimited, Provider: ProviderGemini, Model: model, Reason: strings.TrimSpace(string(body))}
	}
	if resp.StatusCode >= 400 {
		return TextResult{Kind: KindFailure, Provider: ProviderGemini, Model: model, Reason: fmt.Sprintf("gemini http %d: %s", resp.StatusCode, logSnippet(string(body)))}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return TextResult{Kind: KindFailure, Provider: ProviderGemini, Model: model, Reason: fmt.Sprintf("decode response: %v", err)}
	}
	if parsed.Error != nil {
		return TextResult{Kind: KindFailure, Provider: ProviderGemini, Model: model, Reason: parsed.Error.Message}
	}

	text := ""
	for _, candidate := range parsed.Candidates {
		for _, part := range candidate.Content.Parts {
			if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
				text = trimmed
				break
			}
		}
		if text != "" {
			break
		}
	}
	if text == "" {
		return TextResult{Kind: KindFailure, Provider: ProviderGemini, Model: model, Reason: "response contained no text"}
	}

	tokens := 0
	if parsed.UsageMetadata != nil {
		tokens = parsed.UsageMetadata.TotalTokenCount
	}

	return TextResult{
		Kind:     KindSuccess,
		Text:     text,
		Provider: ProviderGemini,
		Model:    model,
		Tokens:   tokens,
	}
}
