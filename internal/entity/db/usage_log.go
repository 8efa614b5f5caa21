package db

import "time"

// UsageLog records a single generation-provider invocation for auditing.
// Writes are best-effort; a failed insert never fails the generation.
type UsageLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID uint  `gorm:"column:user_id;index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	Kind     string `gorm:"column:kind;type:varchar(32);index" json:"kind"` // caption / image / enhance
	Provider string `gorm:"column:provider;type:varchar(64);index" json:"provider"`
	Model    string `gorm:"column:model;type:varchar(128)" json:"model"`
	Tier     string `gorm:"column:tier;type:varchar(50)" json:"tier"`

	Prompt  string `gorm:"column:prompt;type:text" json:"prompt"`
	Tokens  int    `gorm:"column:tokens" json:"tokens"`
	Success bool   `gorm:"column:success;not null;default:false" json:"success"`

	ErrorMessage string `gorm:"column:error_message;type:text" json:"error_message"`
}

// TableName 指定表名。
func (UsageLog) TableName() string {
	return "usage_logs"
}
