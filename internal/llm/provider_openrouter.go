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

const openRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"

type (
	openRouterMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	openRouterRequest struct {
		Model     string              `json:"model"`
		Messages  []openRouterMessage `json:"messages"`
		MaxTokens int                 `json:"max_tokens,omitempty"`
	}
	openRouterChoice struct {
		Message openRouterMessage `json:"message"`
	}
	openRouterUsage struct {
		TotalTokens int `json:"total_tokens"`
	}
	openRouterResponse struct {
		Choices []openRouterChoice `json:"choices"`
		Usage   *openRouterUsage   `json:"usage,omitempty"`
		Error   *openRouterError   `json:"error,omitempty"`
	}
	openRouterError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
)

// OpenRouter is a text provider speaking the OpenAI-compatible chat
// completions protocol.
type OpenRouter struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewOpenRouter builds the provider from an API key.
func NewOpenRouter(apiKey string) (*OpenRouter, error) {
	trimmed := strings.TrimSpace(apiKey)
	if trimmed == "" {
		return nil, errors.New("openrouter api key is not configured")
	}
	return &OpenRouter{
		apiKey:     trimmed,
		endpoint:   openRouterEndpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (o *OpenRouter) ID() string {
	return ProviderOpenRouter
}

func (o *OpenRouter) modelForTier(tier string) string {
	if tier == TierFree {
		return "meta-llama/llama-3.1-8b-instruct"
	}
	return "anthropic/claude-3.5-sonnet"
}

func (o *OpenRouter) GenerateText(ctx context.Context, request TextRequest) TextResult {
	if o == nil || o.httpClient == nil {
		return TextResult{Kind: KindFailure, Provider: ProviderOpenRouter, Reason: "provider not initialised"}
	}

	model := o.modelForTier(request.Tier)
	log := providerLogger(ctx, ProviderOpenRouter, model)
	log.WithField("prompt_preview", logSnippet(request.Prompt)).Info("openrouter_generate_text_start")

	messages := []openRouterMessage{}
	if system := strings.TrimSpace(request.System); system != "" {
		messages = append(messages, openRouterMessage{Role: "system", Content: system})
	}
	messages = append(messages, openRouterMessage{Role: "user", Content: request.Prompt})

	bodyBytes, err := json.Marshal(openRouterRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: request.MaxTokens,
	})
	if err != nil {
		return TextResult{Kind: KindFailure, Provider: ProviderOpenRouter, Model: model, Reason: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return TextResult{Kind: KindFailure, Provider: ProviderOpenRouter, Model: model, Reason: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("openrouter_request_failed")
		return TextResult{Kind: KindFailure, Provider: ProviderOpenRouter, Model: model, Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TextResult{Kind: KindFailure, Provider: ProviderOpenRouter, Model: model, Reason: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return TextResult{Kind: KindRateLimited, Provider: ProviderOpenRouter, Model: model, Reason: strings.TrimSpace(string(body))}
	}
	if resp.StatusCode >= 400 {
		return TextResult{Kind: KindFailure, Provider: ProviderOpenRouter, Model: model, Reason: fmt.Sprintf("openrouter http %d: %s", resp.StatusCode, logSnippet(string(body)))}
	}

	var parsed openRouterResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return TextResult{Kind: KindFailure, Provider: ProviderOpenRouter, Model: model, Reason: fmt.Sprintf("decode response: %v", err)}
	}
	if parsed.Error != nil {
		return TextResult{Kind: KindFailure, Provider: ProviderOpenRouter, Model: model, Reason: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return TextResult{Kind: KindFailure, Provider: ProviderOpenRouter, Model: model, Reason: "response contained no choices"}
	}

	tokens := 0
	if parsed.Usage != nil {
		tokens = parsed.Usage.TotalTokens
	}

	return TextResult{
		Kind:     KindSuccess,
		Text:     strings.TrimSpace(parsed.Choices[0].Message.Content),
		Provider: ProviderOpenRouter,
		Model:    model,
		Tokens:   tokens,
	}
}
