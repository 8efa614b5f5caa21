package sql

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm/clause"

	"postpilot/internal/entity"
)

// ListPlanFeatures returns every configured feature row for a plan.
func (r *GormRepository) ListPlanFeatures(ctx context.Context, planKey string) ([]entity.DbPlanFeature, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbPlanFeature{})
	if trimmed := strings.TrimSpace(planKey); trimmed != "" {
		query = query.Where("plan_key = ?", trimmed)
	}

	var features []entity.DbPlanFeature
	if err := query.Order("plan_key, feature_key").Find(&features).Error; err != nil {
		return nil, err
	}
	return features, nil
}

// UpsertPlanFeature writes a feature value for a plan, replacing any
// existing value for the same (plan_key, feature_key) pair.
func (r *GormRepository) UpsertPlanFeature(ctx context.Context, feature *entity.DbPlanFeature) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if feature == nil {
		return fmt.Errorf("plan feature is nil")
	}
	feature.PlanKey = strings.TrimSpace(feature.PlanKey)
	feature.FeatureKey = strings.TrimSpace(feature.FeatureKey)
	if feature.PlanKey == "" || feature.FeatureKey == "" {
		return fmt.Errorf("plan key and feature key are required")
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plan_key"}, {Name: "feature_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(feature).Error
}

// DeletePlanFeature removes a configured feature value.
func (r *GormRepository) DeletePlanFeature(ctx context.Context, planKey, featureKey string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	planKey = strings.TrimSpace(planKey)
	featureKey = strings.TrimSpace(featureKey)
	if planKey == "" || featureKey == "" {
		return fmt.Errorf("plan key and feature key are required")
	}
	return r.db.WithContext(ctx).
		Where("plan_key = ? AND feature_key = ?", planKey, featureKey).
		Delete(&entity.DbPlanFeature{}).Error
}

// CountPlanFeatures returns the total number of configured feature rows.
func (r *GormRepository) CountPlanFeatures(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&entity.DbPlanFeature{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
