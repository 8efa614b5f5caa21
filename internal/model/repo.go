package model

import (
	"context"

	"postpilot/internal/entity"
)

// Repository 定义数据库操作接口
type Repository interface {
	// 用户管理
	CreateUser(ctx context.Context, user *entity.DbUser) error
	UpdateUser(ctx context.Context, id uint, updates entity.UserUpdates) error
	GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error)
	GetUserByID(ctx context.Context, id uint) (*entity.DbUser, error)
	CountUsers(ctx context.Context) (int64, error)

	// 使用日志
	CreateUsageLog(ctx context.Context, log *entity.DbUsageLog) error
	ListUsageLogs(ctx context.Context, params *entity.UsageLogQuery) ([]entity.DbUsageLog, *entity.Meta, error)

	// 计划特性（远程配置）
	ListPlanFeatures(ctx context.Context, planKey string) ([]entity.DbPlanFeature, error)
	UpsertPlanFeature(ctx context.Context, feature *entity.DbPlanFeature) error
	DeletePlanFeature(ctx context.Context, planKey, featureKey string) error
	CountPlanFeatures(ctx context.Context) (int64, error)
}
