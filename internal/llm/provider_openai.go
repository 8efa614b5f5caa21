package llm

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI is the primary text provider. It also backs the prompt
// enhancement step and the synchronous image tier used as the last
// generative attempt in the image cascade.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI builds the provider from an API key.
func NewOpenAI(apiKey string) (*OpenAI, error) {
	trimmed := strings.TrimSpace(apiKey)
	if trimmed == "" {
		return nil, errors.New("openai api key is not configured")
	}
	return &OpenAI{client: openai.NewClient(trimmed)}, nil
}

func (o *OpenAI) ID() string {
	return ProviderOpenAI
}

// modelForTier picks the cheaper variant for free-tier requests.
func (o *OpenAI) modelForTier(tier string) string {
	if tier == TierFree {
		return openai.GPT4oMini
	}
	return openai.GPT4o
}

// GenerateText runs one chat completion. Rate limiting surfaces as a
// distinct result kind so the caption workflow can back off and retry;
// everything else collapses into success or failure.
func (o *OpenAI) GenerateText(ctx context.Context, request TextRequest) TextResult {
	if o == nil || o.client == nil {
		return TextResult{Kind: KindFailure, Provider: ProviderOpenAI, Reason: "provider not initialised"}
	}

	model := o.modelForTier(request.Tier)
	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 220
	}

	log := providerLogger(ctx, ProviderOpenAI, model)
	log.WithField("prompt_preview", logSnippet(request.Prompt)).Info("openai_generate_text_start")

	messages := []openai.ChatCompletionMessage{}
	if system := strings.TrimSpace(request.System); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: request.Prompt,
	})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: 0.8,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
			log.WithError(err).Warn("openai_rate_limited")
			return TextResult{Kind: KindRateLimited, Provider: ProviderOpenAI, Model: model, Reason: err.Error()}
		}
		log.WithError(err).Warn("openai_generate_text_failed")
		return TextResult{Kind: KindFailure, Provider: ProviderOpenAI, Model: model, Reason: err.Error()}
	}

	if len(resp.Choices) == 0 {
		return TextResult{Kind: KindFailure, Provider: ProviderOpenAI, Model: model, Reason: "response contained no choices"}
	}

	return TextResult{
		Kind:     KindSuccess,
		Text:     strings.TrimSpace(resp.Choices[0].Message.Content),
		Provider: ProviderOpenAI,
		Model:    model,
		Tokens:   resp.Usage.TotalTokens,
	}
}

// Enhance elaborates a raw caption into a richer image-generation
// prompt.
func (o *OpenAI) Enhance(ctx context.Context, caption string) (string, error) {
	if o == nil || o.client == nil {
		return "", errors.New("openai provider not initialised")
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You expand short social media captions into vivid, detailed image generation prompts. Reply with the prompt only.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: caption,
			},
		},
		MaxTokens:   180,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("enhancement response contained no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Images returns the synchronous DALL-E tier as an ImageProvider.
func (o *OpenAI) Images() ImageProvider {
	return &openaiImages{client: o.client}
}

type openaiImages struct {
	client *openai.Client
}

func (p *openaiImages) ID() string {
	return ProviderOpenAIImages
}

func (p *openaiImages) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if p == nil || p.client == nil {
		return "", errors.New("openai images provider not initialised")
	}

	log := providerLogger(ctx, ProviderOpenAIImages, openai.CreateImageModelDallE3)
	log.WithField("prompt_preview", logSnippet(prompt)).Info("openai_generate_image_start")

	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          openai.CreateImageModelDallE3,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || strings.TrimSpace(resp.Data[0].URL) == "" {
		return "", errors.New("openai images response did not include an image url")
	}
	return resp.Data[0].URL, nil
}
