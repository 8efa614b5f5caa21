package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postpilot/internal/entity"
)

type stubFeatureSource struct {
	features map[string][]entity.DbPlanFeature
	err      error
}

func (s *stubFeatureSource) ListPlanFeatures(ctx context.Context, planKey string) ([]entity.DbPlanFeature, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.features[planKey], nil
}

func TestResolveFallsBackWithoutSource(t *testing.T) {
	resolver := NewResolver(nil)

	limits := resolver.Resolve(context.Background(), PlanFree)
	require.NotNil(t, limits.Captions)
	assert.Equal(t, int64(5), *limits.Captions)
	assert.False(t, limits.MultiPlatformPosting)
}

func TestResolveUnknownPlanFailsSafeToFree(t *testing.T) {
	resolver := NewResolver(nil)

	limits := resolver.Resolve(context.Background(), "enterprise-legacy")
	require.NotNil(t, limits.Captions)
	assert.Equal(t, int64(5), *limits.Captions)
}

func TestResolvePrefersConfiguredRows(t *testing.T) {
	source := &stubFeatureSource{features: map[string][]entity.DbPlanFeature{
		PlanFree: {
			{PlanKey: PlanFree, FeatureKey: FeatureCaptionLimit, Value: "8"},
			{PlanKey: PlanFree, FeatureKey: FeatureImageLimit, Value: "unlimited"},
			{PlanKey: PlanFree, FeatureKey: FeatureScheduling, Value: "true"},
		},
	}}
	resolver := NewResolver(source)

	limits := resolver.Resolve(context.Background(), PlanFree)
	require.NotNil(t, limits.Captions)
	assert.Equal(t, int64(8), *limits.Captions)
	assert.Nil(t, limits.Images, "unlimited rows must resolve to a nil ceiling")
	assert.True(t, limits.Scheduling)
	// Unconfigured keys keep the fallback values.
	require.NotNil(t, limits.Posts)
	assert.Equal(t, int64(10), *limits.Posts)
}

func TestResolveSourceErrorUsesFallback(t *testing.T) {
	resolver := NewResolver(&stubFeatureSource{err: errors.New("connection refused")})

	limits := resolver.Resolve(context.Background(), PlanGrowth)
	require.NotNil(t, limits.Captions)
	assert.Equal(t, int64(150), *limits.Captions)
	assert.True(t, limits.AdvancedAnalytics)
}

func TestResolveIgnoresInvalidLimitValues(t *testing.T) {
	source := &stubFeatureSource{features: map[string][]entity.DbPlanFeature{
		PlanStarter: {
			{PlanKey: PlanStarter, FeatureKey: FeatureCaptionLimit, Value: "loads"},
		},
	}}
	resolver := NewResolver(source)

	limits := resolver.Resolve(context.Background(), PlanStarter)
	require.NotNil(t, limits.Captions)
	assert.Equal(t, int64(30), *limits.Captions, "invalid value keeps the fallback ceiling")
}

func TestLimitForMapsResources(t *testing.T) {
	limits := Defaults()[PlanFree]

	captions, err := limits.LimitFor(ResourceCaptions)
	require.NoError(t, err)
	require.NotNil(t, captions)
	assert.Equal(t, int64(5), *captions)

	_, err = limits.LimitFor("usedUnknownQuota")
	assert.Error(t, err)
}

type recordingSeedStore struct {
	count    int64
	countErr error
	rows     []entity.DbPlanFeature
}

func (s *recordingSeedStore) CountPlanFeatures(ctx context.Context) (int64, error) {
	return s.count, s.countErr
}

func (s *recordingSeedStore) UpsertPlanFeature(ctx context.Context, feature *entity.DbPlanFeature) error {
	s.rows = append(s.rows, *feature)
	return nil
}

func TestSeedDefaultsPopulatesEmptyStore(t *testing.T) {
	store := &recordingSeedStore{}
	require.NoError(t, SeedDefaults(context.Background(), store))

	// Four plans, seven feature rows each.
	assert.Len(t, store.rows, 4*7)

	seen := map[string]string{}
	for _, row := range store.rows {
		seen[row.PlanKey+"/"+row.FeatureKey] = row.Value
	}
	assert.Equal(t, "5", seen[PlanFree+"/"+FeatureCaptionLimit])
	assert.Equal(t, "unlimited", seen[PlanAgency+"/"+FeatureCaptionLimit])
	assert.Equal(t, "true", seen[PlanGrowth+"/"+FeatureAnalytics])
}

func TestSeedDefaultsSkipsPopulatedStore(t *testing.T) {
	store := &recordingSeedStore{count: 12}
	require.NoError(t, SeedDefaults(context.Background(), store))
	assert.Empty(t, store.rows)
}
