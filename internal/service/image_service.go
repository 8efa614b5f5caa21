package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"postpilot/internal/cache"
	"postpilot/internal/entity"
	"postpilot/internal/llm"
	"postpilot/internal/plan"
	"postpilot/internal/quota"
)

// safetySuffix is appended to every image prompt, enhanced or not, to
// reduce content-policy rejections downstream.
const safetySuffix = ", family friendly, safe for work"

// Cache hit pseudo-providers reported in image results.
const (
	sourceLocalCache  = "local-cache"
	sourceRemoteCache = "remote-cache"
)

// Enhancer elaborates a raw caption into a richer image prompt.
// Satisfied by llm.OpenAI.
type Enhancer interface {
	Enhance(ctx context.Context, caption string) (string, error)
}

// ImageResult is the workflow outcome handed to the API layer.
type ImageResult struct {
	URL      string `json:"url"`
	Provider string `json:"provider"`
}

// ImageService runs the image generation workflow: two cache levels,
// quota charge, prompt enhancement and the five-tier provider cascade.
type ImageService struct {
	quotas   *quota.Store
	usage    llm.UsageSink
	enhancer Enhancer

	// providers in cascade order; each tier runs only if the previous
	// produced nothing.
	providers []llm.ImageProvider

	local  *cache.Local
	remote *cache.Remote

	// bypassCache is the deployment-level switch; requests can also ask
	// for a bypass individually.
	bypassCache bool
}

// NewImageService wires the workflow. Providers are attempted in the
// order given.
func NewImageService(quotas *quota.Store, usage llm.UsageSink, enhancer Enhancer, providers []llm.ImageProvider, local *cache.Local, remote *cache.Remote, bypassCache bool) *ImageService {
	return &ImageService{
		quotas:      quotas,
		usage:       usage,
		enhancer:    enhancer,
		providers:   providers,
		local:       local,
		remote:      remote,
		bypassCache: bypassCache,
	}
}

// imageIdempotencyKey is uniqueness-derived: regenerating an identical
// prompt is an intentional action and charges again, so the key must
// never collide.
func imageIdempotencyKey() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.NewString())
}

// Generate produces an image URL for the prompt, charging one image
// unit unless a cache hit short-circuits the workflow.
func (s *ImageService) Generate(ctx context.Context, user *entity.DbUser, req entity.ImageGenerateRequest) (ImageResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return ImageResult{}, workflowErr(CodeCtxError, "prompt is required")
	}

	promptKey := cache.PromptKey(prompt)
	bypass := s.bypassCache || req.BypassCache

	if !bypass {
		if url, ok := s.local.Get(promptKey); ok {
			return ImageResult{URL: url, Provider: sourceLocalCache}, nil
		}
	}

	if user == nil || user.ID == 0 {
		return ImageResult{}, workflowErr(CodeNoUser, "authentication required")
	}

	// Remote cache: a previously enhanced prompt, then the image keyed
	// by it. A hit backfills the local cache.
	enhanced := ""
	if !bypass {
		if cached, ok := s.remote.Lookup(ctx, cache.KindPrompt, promptKey); ok {
			enhanced = cached
			if url, ok := s.remote.Lookup(ctx, cache.KindImage, cache.PromptKey(enhanced)); ok {
				s.local.Set(promptKey, url)
				return ImageResult{URL: url, Provider: sourceRemoteCache}, nil
			}
		}
	}

	if enhanced == "" {
		enhanced = s.enhancePrompt(ctx, user.ID, prompt)
		s.remote.Write(ctx, cache.KindPrompt, promptKey, enhanced)
	}

	consumed := s.quotas.Consume(ctx, user.ID, user.PlanKey, plan.ResourceImages, 1, quota.ConsumeOptions{
		IdempotencyKey: imageIdempotencyKey(),
	})
	switch consumed.Status {
	case quota.StatusOK, quota.StatusUnlimited:
	case quota.StatusInsufficient:
		return ImageResult{}, workflowErr(CodeQuotaExhausted, "image quota exhausted, upgrade your plan to continue")
	default:
		return ImageResult{}, workflowErr(CodeQuotaError, "quota check failed: %s", consumed.Message)
	}

	tier := tierForPlan(user.PlanKey)
	imageKey := cache.PromptKey(enhanced)

	attempts := make([]llm.Attempt, 0, len(s.providers))
	for _, provider := range s.providers {
		provider := provider
		attempts = append(attempts, llm.Attempt{
			Name: provider.ID(),
			Run: func(ctx context.Context) (string, error) {
				url, err := provider.GenerateImage(ctx, enhanced)
				errMsg := ""
				if err != nil {
					errMsg = err.Error()
				}
				llm.RecordUsage(ctx, s.usage, entity.DbUsageLog{
					UserID:       user.ID,
					Kind:         "image",
					Provider:     provider.ID(),
					Tier:         tier,
					Prompt:       enhanced,
					Success:      err == nil && url != "",
					ErrorMessage: errMsg,
				})
				return url, err
			},
		})
	}

	if url, tierName, err := llm.RunChain(ctx, attempts); err == nil {
		s.writeThrough(ctx, promptKey, imageKey, url)
		return ImageResult{URL: url, Provider: tierName}, nil
	}

	// Emergency tier: deterministic keyword match, no network call.
	if url, ok := llm.MatchStockPhoto(prompt); ok {
		logrus.WithField("user_id", user.ID).Info("image_emergency_fallback_used")
		llm.RecordUsage(ctx, s.usage, entity.DbUsageLog{
			UserID:   user.ID,
			Kind:     "image",
			Provider: llm.ProviderEmergencyFallback,
			Tier:     tier,
			Prompt:   prompt,
			Success:  true,
		})
		s.writeThrough(ctx, promptKey, imageKey, url)
		return ImageResult{URL: url, Provider: llm.ProviderEmergencyFallback}, nil
	}

	return ImageResult{}, workflowErr(CodeImageGenerationFailed, "every image provider failed and no stock photo matched")
}

// enhancePrompt runs the enhancement step. The safety suffix is
// appended regardless of enhancement success.
func (s *ImageService) enhancePrompt(ctx context.Context, userID uint, prompt string) string {
	enhanced := prompt
	if s.enhancer != nil {
		text, err := s.enhancer.Enhance(ctx, prompt)
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		llm.RecordUsage(ctx, s.usage, entity.DbUsageLog{
			UserID:       userID,
			Kind:         "enhance",
			Provider:     llm.ProviderOpenAI,
			Prompt:       prompt,
			Success:      err == nil && strings.TrimSpace(text) != "",
			ErrorMessage: errMsg,
		})
		if err != nil {
			logrus.WithError(err).Warn("prompt_enhancement_failed")
		} else if strings.TrimSpace(text) != "" {
			enhanced = strings.TrimSpace(text)
		}
	}
	return enhanced + safetySuffix
}

func (s *ImageService) writeThrough(ctx context.Context, promptKey, imageKey, url string) {
	s.local.Set(promptKey, url)
	s.remote.Write(ctx, cache.KindImage, imageKey, url)
}
