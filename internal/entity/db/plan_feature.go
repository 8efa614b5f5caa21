package db

import "time"

// PlanFeature is one remotely-configured feature value for a plan tier,
// addressed as plans/{plan_key}/features/{feature_key}. The plan resolver
// reads these rows first and falls back to the in-code defaults when the
// set is empty or unreadable.
type PlanFeature struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PlanKey    string `gorm:"column:plan_key;type:varchar(50);uniqueIndex:ux_plan_feature,priority:1;not null" json:"plan_key"`
	FeatureKey string `gorm:"column:feature_key;type:varchar(100);uniqueIndex:ux_plan_feature,priority:2;not null" json:"feature_key"`

	// Value holds the raw configured value: an integer for limits,
	// "unlimited" for a null ceiling, "true"/"false" for flags.
	Value string `gorm:"column:value;type:varchar(255);not null" json:"value"`
}

// TableName 指定表名。
func (PlanFeature) TableName() string {
	return "plan_features"
}
