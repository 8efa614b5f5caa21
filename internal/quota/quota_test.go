package quota

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"postpilot/internal/entity"
	"postpilot/internal/model"
	"postpilot/internal/plan"
)

// newTestStore builds a quota store on an in-memory sqlite database.
// sqlite needs a single connection so every transaction sees the same
// memory database.
func newTestStore(t *testing.T) *Store {
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
	return NewStore(db, plan.NewResolver(nil))
}

func TestConsumeIdempotencyKeyChargesOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := store.Consume(ctx, 1, plan.PlanFree, plan.ResourceCaptions, 1, ConsumeOptions{IdempotencyKey: "k1"})
	require.Equal(t, StatusOK, first.Status)
	assert.True(t, first.Success)
	assert.Equal(t, int64(1), first.Remaining)

	second := store.Consume(ctx, 1, plan.PlanFree, plan.ResourceCaptions, 1, ConsumeOptions{IdempotencyKey: "k1"})
	require.Equal(t, StatusAlreadyConsumed, second.Status)
	assert.False(t, second.Success)
	assert.Equal(t, int64(1), second.Remaining)

	used, limit, err := store.Remaining(ctx, 1, plan.PlanFree, plan.ResourceCaptions)
	require.NoError(t, err)
	assert.Equal(t, int64(1), used)
	require.NotNil(t, limit)
	assert.Equal(t, int64(5), *limit)
}

func TestConsumeInsufficientLeavesCounterUnchanged(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Free plan caption limit is 5; burn it down.
	for i := 0; i < 5; i++ {
		result := store.Consume(ctx, 7, plan.PlanFree, plan.ResourceCaptions, 1, ConsumeOptions{})
		require.Equal(t, StatusOK, result.Status)
	}

	result := store.Consume(ctx, 7, plan.PlanFree, plan.ResourceCaptions, 1, ConsumeOptions{})
	require.Equal(t, StatusInsufficient, result.Status)
	assert.False(t, result.Success)
	assert.Equal(t, int64(5), result.Remaining)

	used, _, err := store.Remaining(ctx, 7, plan.PlanFree, plan.ResourceCaptions)
	require.NoError(t, err)
	assert.Equal(t, int64(5), used)
}

func TestConsumeUnlimitedNeverWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Agency plan has no caption ceiling.
	result := store.Consume(ctx, 3, plan.PlanAgency, plan.ResourceCaptions, 1, ConsumeOptions{IdempotencyKey: "k-unlimited"})
	require.Equal(t, StatusUnlimited, result.Status)
	assert.True(t, result.Success)

	var count int64
	require.NoError(t, store.db.Model(&entity.DbQuotaRecord{}).Where("user_id = ?", 3).Count(&count).Error)
	assert.Zero(t, count, "unlimited consumption must not create a record")
}

func TestConsumeRejectsBadInput(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	noUser := store.Consume(ctx, 0, plan.PlanFree, plan.ResourceCaptions, 1, ConsumeOptions{})
	assert.Equal(t, StatusNotFound, noUser.Status)

	badAmount := store.Consume(ctx, 1, plan.PlanFree, plan.ResourceCaptions, 0, ConsumeOptions{})
	assert.Equal(t, StatusError, badAmount.Status)

	badResource := store.Consume(ctx, 1, plan.PlanFree, "usedNothingQuota", 1, ConsumeOptions{})
	assert.Equal(t, StatusError, badResource.Status)
}

func TestConsumeConcurrentSameKeyChargesAtMostOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const workers = 6
	results := make([]ConsumeResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.Consume(ctx, 11, plan.PlanFree, plan.ResourceImages, 1, ConsumeOptions{IdempotencyKey: "same-key"})
		}(i)
	}
	wg.Wait()

	okCount := 0
	dupCount := 0
	for _, result := range results {
		switch result.Status {
		case StatusOK:
			okCount++
		case StatusAlreadyConsumed:
			dupCount++
		default:
			t.Fatalf("unexpected status %s: %s", result.Status, result.Message)
		}
	}
	assert.Equal(t, 1, okCount)
	assert.Equal(t, workers-1, dupCount)

	used, _, err := store.Remaining(ctx, 11, plan.PlanFree, plan.ResourceImages)
	require.NoError(t, err)
	assert.Equal(t, int64(1), used)
}

func TestConsumeConcurrentLastUnitGrantsOne(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Free plan image limit is 3; leave one unit of headroom.
	for i := 0; i < 2; i++ {
		result := store.Consume(ctx, 21, plan.PlanFree, plan.ResourceImages, 1, ConsumeOptions{})
		require.Equal(t, StatusOK, result.Status)
	}

	const workers = 4
	results := make([]ConsumeResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.Consume(ctx, 21, plan.PlanFree, plan.ResourceImages, 1, ConsumeOptions{})
		}(i)
	}
	wg.Wait()

	okCount := 0
	for _, result := range results {
		switch result.Status {
		case StatusOK:
			okCount++
		case StatusInsufficient:
		default:
			t.Fatalf("unexpected status %s: %s", result.Status, result.Message)
		}
	}
	assert.Equal(t, 1, okCount, "only one caller may take the last unit")

	used, _, err := store.Remaining(ctx, 21, plan.PlanFree, plan.ResourceImages)
	require.NoError(t, err)
	assert.Equal(t, int64(3), used)
}

func TestConsumeStaleVersionWriteIsRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := store.Consume(ctx, 31, plan.PlanFree, plan.ResourceCaptions, 1, ConsumeOptions{IdempotencyKey: "keep-me"})
	require.Equal(t, StatusOK, first.Status)

	// Emulate a writer whose snapshot predates the commit above: it
	// targets a different counter column, so a per-counter guard would
	// let it through, clobbering the consumed_keys written by the first
	// charge. The row-version guard must reject it.
	stale := store.db.Model(&entity.DbQuotaRecord{}).
		Where("user_id = ? AND version = ?", 31, 0).
		Updates(map[string]interface{}{
			"images_used":   1,
			"consumed_keys": entity.TimeMap{},
			"version":       1,
		})
	require.NoError(t, stale.Error)
	assert.Zero(t, stale.RowsAffected)

	var record entity.DbQuotaRecord
	require.NoError(t, store.db.Where("user_id = ?", 31).First(&record).Error)
	assert.True(t, record.ConsumedKeys.Has("keep-me"))
	assert.Zero(t, record.ImagesUsed)

	replay := store.Consume(ctx, 31, plan.PlanFree, plan.ResourceCaptions, 1, ConsumeOptions{IdempotencyKey: "keep-me"})
	require.Equal(t, StatusAlreadyConsumed, replay.Status)
}

func TestConsumeConcurrentDifferentResourcesKeepAllKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	resources := []string{
		plan.ResourceCaptions,
		plan.ResourceImages,
		plan.ResourcePosts,
		plan.ResourceExtension,
	}
	keys := []string{"cap-key", "img-key", "post-key", "ext-key"}

	var wg sync.WaitGroup
	results := make([]ConsumeResult, len(resources))
	for i := range resources {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.Consume(ctx, 41, plan.PlanFree, resources[i], 1, ConsumeOptions{IdempotencyKey: keys[i]})
		}(i)
	}
	wg.Wait()

	for i, result := range results {
		require.Equalf(t, StatusOK, result.Status, "resource %s: %s", resources[i], result.Message)
	}

	// Every key must survive: a charge for one resource must never
	// overwrite the de-dup entry written by a charge for another.
	var record entity.DbQuotaRecord
	require.NoError(t, store.db.Where("user_id = ?", 41).First(&record).Error)
	for _, key := range keys {
		assert.Truef(t, record.ConsumedKeys.Has(key), "missing idempotency key %s", key)
	}

	for i := range resources {
		replay := store.Consume(ctx, 41, plan.PlanFree, resources[i], 1, ConsumeOptions{IdempotencyKey: keys[i]})
		assert.Equal(t, StatusAlreadyConsumed, replay.Status)
	}
}

func TestRemainingWithoutRecordReportsPlanDefaults(t *testing.T) {
	store := newTestStore(t)

	used, limit, err := store.Remaining(context.Background(), 99, plan.PlanStarter, plan.ResourceCaptions)
	require.NoError(t, err)
	assert.Zero(t, used)
	require.NotNil(t, limit)
	assert.Equal(t, int64(30), *limit)
}
