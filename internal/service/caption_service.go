package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"postpilot/internal/entity"
	"postpilot/internal/llm"
	"postpilot/internal/plan"
	"postpilot/internal/quota"
)

const captionSystemPrompt = "You are a creative caption writer for small business social media. Write one engaging caption for the topic you are given. Reply with the caption only."

const captionMaxTokens = 220

// CaptionService runs the caption generation workflow: quota charge,
// primary provider with rate-limit backoff, then the alternate chain.
type CaptionService struct {
	quotas *quota.Store
	router *llm.Router

	// production gates the alternate provider chain: outside production
	// a primary failure is terminal, so test deployments never spend on
	// fallback providers.
	production bool
	backoff    llm.BackoffPolicy
}

// NewCaptionService wires the workflow.
func NewCaptionService(quotas *quota.Store, router *llm.Router, production bool) *CaptionService {
	return &CaptionService{
		quotas:     quotas,
		router:     router,
		production: production,
		backoff:    llm.LinearBackoff(4, time.Second),
	}
}

// captionIdempotencyKey is content-derived: the same user re-submitting
// the identical prompt is charged at most once.
func captionIdempotencyKey(userID uint, prompt string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%d:%s", userID, prompt)))
	return hex.EncodeToString(sum[:])
}

// Generate produces a caption for the prompt, charging one caption unit.
func (s *CaptionService) Generate(ctx context.Context, user *entity.DbUser, req entity.CaptionGenerateRequest) (llm.GenerationResult, error) {
	if user == nil || user.ID == 0 {
		return llm.GenerationResult{}, workflowErr(CodeNoUser, "authentication required")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return llm.GenerationResult{}, workflowErr(CodeCtxError, "prompt is required")
	}

	consumed := s.quotas.Consume(ctx, user.ID, user.PlanKey, plan.ResourceCaptions, 1, quota.ConsumeOptions{
		IdempotencyKey: captionIdempotencyKey(user.ID, prompt),
	})
	switch consumed.Status {
	case quota.StatusOK, quota.StatusUnlimited:
	case quota.StatusInsufficient:
		return llm.GenerationResult{}, workflowErr(CodeQuotaExhausted, "caption quota exhausted, upgrade your plan to continue")
	case quota.StatusAlreadyConsumed:
		return llm.GenerationResult{}, workflowErr(CodeQuotaError, "an identical request was already charged")
	default:
		return llm.GenerationResult{}, workflowErr(CodeQuotaError, "quota check failed: %s", consumed.Message)
	}

	request := llm.TextRequest{
		Prompt:    prompt,
		System:    captionSystemPrompt,
		Tier:      tierForPlan(user.PlanKey),
		MaxTokens: captionMaxTokens,
	}

	primary := strings.TrimSpace(req.Provider)
	if primary == "" {
		primary = llm.ProviderOpenAI
	}

	// The primary provider is the only one whose rate limiting is
	// retried in place; every other failure advances the chain.
	emptyResponse := false
	result := llm.RetryText(ctx, s.backoff, func(ctx context.Context) llm.TextResult {
		res, ok := s.router.Invoke(ctx, user.ID, primary, request)
		if !ok {
			return llm.TextResult{Kind: llm.KindFailure, Provider: primary, Reason: "provider not registered"}
		}
		return res
	})
	if result.Succeeded() {
		return llm.GenerationResult{Text: result.Text, Provider: primary, Tokens: result.Tokens}, nil
	}
	if result.Kind == llm.KindSuccess {
		emptyResponse = true
	}

	if s.production {
		for _, alt := range s.router.AlternatesFor(primary) {
			res, ok := s.router.Invoke(ctx, user.ID, alt, request)
			if !ok {
				continue
			}
			if res.Succeeded() {
				return llm.GenerationResult{Text: res.Text, Provider: alt, Tokens: res.Tokens}, nil
			}
			if res.Kind == llm.KindSuccess {
				emptyResponse = true
			}
		}
	} else {
		logrus.WithField("primary", primary).Info("caption_fallback_chain_skipped")
	}

	if emptyResponse {
		return llm.GenerationResult{}, workflowErr(CodeEmptyCaption, "provider returned no caption text")
	}
	return llm.GenerationResult{}, workflowErr(CodeAllModelsFailed, "no caption provider produced a result")
}

// tierForPlan maps the subscription tier onto the billing tier the
// providers use for model selection.
func tierForPlan(planKey string) string {
	if planKey == plan.PlanFree || planKey == "" {
		return llm.TierFree
	}
	return llm.TierPaid
}
