package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"postpilot/internal/entity"
	"postpilot/internal/llm"
	"postpilot/internal/model"
	"postpilot/internal/plan"
	"postpilot/internal/quota"
)

func newQuotaStore(t *testing.T) *quota.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, model.MigrateSchema(db))
	return quota.NewStore(db, plan.NewResolver(nil))
}

type scriptedTextProvider struct {
	id      string
	results []llm.TextResult
	mu      sync.Mutex
	calls   int
}

func (p *scriptedTextProvider) ID() string { return p.id }

func (p *scriptedTextProvider) GenerateText(ctx context.Context, request llm.TextRequest) llm.TextResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.calls
	p.calls++
	if idx >= len(p.results) {
		idx = len(p.results) - 1
	}
	return p.results[idx]
}

func textSuccess(text string) llm.TextResult {
	return llm.TextResult{Kind: llm.KindSuccess, Text: text}
}

func textFailure(reason string) llm.TextResult {
	return llm.TextResult{Kind: llm.KindFailure, Reason: reason}
}

func newCaptionService(t *testing.T, production bool, providers ...llm.TextProvider) *CaptionService {
	t.Helper()
	svc := NewCaptionService(newQuotaStore(t), llm.NewRouter(nil, providers...), production)
	svc.backoff = llm.LinearBackoff(4, time.Millisecond)
	return svc
}

func freeUser(id uint) *entity.DbUser {
	return &entity.DbUser{ID: id, PlanKey: plan.PlanFree}
}

func TestCaptionRequiresUser(t *testing.T) {
	svc := newCaptionService(t, false, &scriptedTextProvider{id: llm.ProviderOpenAI, results: []llm.TextResult{textSuccess("x")}})

	_, err := svc.Generate(context.Background(), nil, entity.CaptionGenerateRequest{Prompt: "hi"})
	var wfErr *WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, CodeNoUser, wfErr.Code)
}

func TestCaptionPrimarySuccess(t *testing.T) {
	primary := &scriptedTextProvider{id: llm.ProviderOpenAI, results: []llm.TextResult{textSuccess("fresh bread daily")}}
	svc := newCaptionService(t, false, primary)

	result, err := svc.Generate(context.Background(), freeUser(1), entity.CaptionGenerateRequest{Prompt: "bakery monday"})
	require.NoError(t, err)
	assert.Equal(t, "fresh bread daily", result.Text)
	assert.Equal(t, llm.ProviderOpenAI, result.Provider)
}

func TestCaptionRetriesRateLimitThenSucceeds(t *testing.T) {
	primary := &scriptedTextProvider{id: llm.ProviderOpenAI, results: []llm.TextResult{
		{Kind: llm.KindRateLimited, Reason: "429"},
		{Kind: llm.KindRateLimited, Reason: "429"},
		{Kind: llm.KindRateLimited, Reason: "429"},
		textSuccess("made it"),
	}}
	svc := newCaptionService(t, false, primary)

	start := time.Now()
	result, err := svc.Generate(context.Background(), freeUser(1), entity.CaptionGenerateRequest{Prompt: "coffee promo"})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "made it", result.Text)
	assert.Equal(t, llm.ProviderOpenAI, result.Provider)
	assert.Equal(t, 4, primary.calls)
	// Three waits with linearly increasing delay: 1+2+3 ms minimum.
	assert.GreaterOrEqual(t, elapsed, 6*time.Millisecond)
}

func TestCaptionFallbackChainOnlyInProduction(t *testing.T) {
	primary := &scriptedTextProvider{id: llm.ProviderOpenAI, results: []llm.TextResult{textFailure("down")}}
	alternate := &scriptedTextProvider{id: llm.ProviderGemini, results: []llm.TextResult{textSuccess("rescued")}}

	dev := newCaptionService(t, false, primary, alternate)
	_, err := dev.Generate(context.Background(), freeUser(1), entity.CaptionGenerateRequest{Prompt: "salon special"})
	var wfErr *WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, CodeAllModelsFailed, wfErr.Code)
	assert.Zero(t, alternate.calls, "alternates must be skipped outside production")

	primary2 := &scriptedTextProvider{id: llm.ProviderOpenAI, results: []llm.TextResult{textFailure("down")}}
	alternate2 := &scriptedTextProvider{id: llm.ProviderGemini, results: []llm.TextResult{textSuccess("rescued")}}
	prod := newCaptionService(t, true, primary2, alternate2)

	result, err := prod.Generate(context.Background(), freeUser(1), entity.CaptionGenerateRequest{Prompt: "salon special"})
	require.NoError(t, err)
	assert.Equal(t, "rescued", result.Text)
	assert.Equal(t, llm.ProviderGemini, result.Provider)
}

func TestCaptionEmptyResponseTerminalCode(t *testing.T) {
	primary := &scriptedTextProvider{id: llm.ProviderOpenAI, results: []llm.TextResult{textSuccess("   ")}}
	svc := newCaptionService(t, false, primary)

	_, err := svc.Generate(context.Background(), freeUser(1), entity.CaptionGenerateRequest{Prompt: "fitness class"})
	var wfErr *WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, CodeEmptyCaption, wfErr.Code)
}

func TestCaptionQuotaExhausted(t *testing.T) {
	primary := &scriptedTextProvider{id: llm.ProviderOpenAI, results: []llm.TextResult{textSuccess("ok")}}
	svc := newCaptionService(t, false, primary)
	user := freeUser(1)

	// Free plan allows five captions; distinct prompts charge each time.
	for i := 0; i < 5; i++ {
		_, err := svc.Generate(context.Background(), user, entity.CaptionGenerateRequest{Prompt: fmt.Sprintf("prompt %d", i)})
		require.NoError(t, err)
	}

	_, err := svc.Generate(context.Background(), user, entity.CaptionGenerateRequest{Prompt: "one more"})
	var wfErr *WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, CodeQuotaExhausted, wfErr.Code)
}

func TestCaptionDuplicatePromptNotDoubleCharged(t *testing.T) {
	primary := &scriptedTextProvider{id: llm.ProviderOpenAI, results: []llm.TextResult{textSuccess("ok")}}
	svc := newCaptionService(t, false, primary)
	user := freeUser(1)

	_, err := svc.Generate(context.Background(), user, entity.CaptionGenerateRequest{Prompt: "same prompt"})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), user, entity.CaptionGenerateRequest{Prompt: "same prompt"})
	var wfErr *WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, CodeQuotaError, wfErr.Code)
	assert.Equal(t, 1, primary.calls, "duplicate submission must not reach the provider")
}
