package plan

import (
	"context"
	"strconv"

	"postpilot/internal/entity"
)

// SeedStore is the write surface the seeder needs from the repository.
type SeedStore interface {
	CountPlanFeatures(ctx context.Context) (int64, error)
	UpsertPlanFeature(ctx context.Context, feature *entity.DbPlanFeature) error
}

// SeedDefaults populates the plan_features table from the fallback table
// when it is empty, so the admin console has rows to edit.
func SeedDefaults(ctx context.Context, store SeedStore) error {
	if store == nil {
		return nil
	}

	total, err := store.CountPlanFeatures(ctx)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	for planKey, limits := range defaults {
		rows := []entity.DbPlanFeature{
			{PlanKey: planKey, FeatureKey: FeatureCaptionLimit, Value: limitValue(limits.Captions)},
			{PlanKey: planKey, FeatureKey: FeatureImageLimit, Value: limitValue(limits.Images)},
			{PlanKey: planKey, FeatureKey: FeaturePostLimit, Value: limitValue(limits.Posts)},
			{PlanKey: planKey, FeatureKey: FeatureExtensionLimit, Value: limitValue(limits.ExtensionCalls)},
			{PlanKey: planKey, FeatureKey: FeatureMultiPlatform, Value: strconv.FormatBool(limits.MultiPlatformPosting)},
			{PlanKey: planKey, FeatureKey: FeatureScheduling, Value: strconv.FormatBool(limits.Scheduling)},
			{PlanKey: planKey, FeatureKey: FeatureAnalytics, Value: strconv.FormatBool(limits.AdvancedAnalytics)},
		}
		for i := range rows {
			if err := store.UpsertPlanFeature(ctx, &rows[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func limitValue(v *int64) string {
	if v == nil {
		return unlimitedValue
	}
	return strconv.FormatInt(*v, 10)
}
