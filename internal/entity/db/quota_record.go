package db

import (
	"time"

	"postpilot/internal/entity/common"
)

// QuotaRecord holds the rolling-period usage counters for one user.
// There is at most one row per user; it is created lazily on the first
// quota check and mutated only by the atomic consume operation.
//
// A nil limit column means the resource is unlimited for the user's plan.
// Unlimited consumption is never persisted, so the limit columns only ever
// carry the numeric ceiling that was resolved when the row was created.
type QuotaRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID  uint   `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	PlanKey string `gorm:"column:plan_key;type:varchar(50)" json:"plan_key"`

	CaptionsUsed   int64  `gorm:"column:captions_used;not null;default:0" json:"captions_used"`
	CaptionsLimit  *int64 `gorm:"column:captions_limit" json:"captions_limit"`
	ImagesUsed     int64  `gorm:"column:images_used;not null;default:0" json:"images_used"`
	ImagesLimit    *int64 `gorm:"column:images_limit" json:"images_limit"`
	PostsUsed      int64  `gorm:"column:posts_used;not null;default:0" json:"posts_used"`
	PostsLimit     *int64 `gorm:"column:posts_limit" json:"posts_limit"`
	ExtensionUsed  int64  `gorm:"column:extension_used;not null;default:0" json:"extension_used"`
	ExtensionLimit *int64 `gorm:"column:extension_limit" json:"extension_limit"`

	// ConsumedKeys de-duplicates retried charges: each idempotency key
	// appears at most once, mapped to the time it was first consumed.
	ConsumedKeys common.TimeMap `gorm:"column:consumed_keys;type:json" json:"consumed_keys"`

	// Version guards every write to this row. Writers for different
	// resources still touch the shared consumed_keys column, so the
	// write guard must cover the whole row, not just one counter.
	Version int64 `gorm:"column:version;not null;default:0" json:"-"`
}

// TableName 指定表名。
func (QuotaRecord) TableName() string {
	return "quota_records"
}
