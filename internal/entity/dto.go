package entity

import "time"

// AuthLoginRequest is the login request payload.
type AuthLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthRegisterRequest is the registration request payload.
type AuthRegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name"`
}

// AuthResponse is returned after successful login/registration.
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserSummary `json:"user"`
}

// UserSummary is the public view of a user account.
type UserSummary struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	PlanKey     string `json:"plan_key"`
}

// UserUpdateRequest 管理端更新用户（nil 字段表示不修改）。
type UserUpdateRequest struct {
	DisplayName *string `json:"display_name"`
	Role        *string `json:"role"`
	PlanKey     *string `json:"plan_key"`
	Password    *string `json:"password"`
	IsActive    *bool   `json:"is_active"`
}

// CaptionGenerateRequest is the caption generation request payload.
type CaptionGenerateRequest struct {
	Prompt   string `json:"prompt" binding:"required"`
	Provider string `json:"provider,omitempty"` // preferred text provider, defaults to openai
}

// ImageGenerateRequest is the image generation request payload.
type ImageGenerateRequest struct {
	Prompt      string `json:"prompt" binding:"required"`
	BypassCache bool   `json:"bypass_cache,omitempty"`
}

// QuotaResourceStatus 单个资源的用量展示。
type QuotaResourceStatus struct {
	Resource string `json:"resource"`
	Used     int64  `json:"used"`
	Limit    *int64 `json:"limit"` // null 表示不限量
}

// UsageLogQuery 使用日志查询参数。
type UsageLogQuery struct {
	BaseParams
	UserID     uint   `json:"user_id" form:"user_id"`
	Kind       string `json:"kind" form:"kind"`
	Provider   string `json:"provider" form:"provider"`
	IncludeAll bool   `json:"include_all" form:"include_all"`
}

// PlanFeatureUpsertRequest 管理端写入计划特性。
type PlanFeatureUpsertRequest struct {
	FeatureKey string `json:"feature_key" binding:"required"`
	Value      string `json:"value" binding:"required"`
}
