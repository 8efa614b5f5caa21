package entity

// Re-export persistence and common types under the entity namespace.

import (
	"postpilot/internal/entity/common"
	"postpilot/internal/entity/db"
)

// Type aliases for common types
type TimeMap = common.TimeMap
type Meta = common.Meta
type BaseParams = common.BaseParams

// Type aliases for persisted entities
type DbUser = db.User
type DbQuotaRecord = db.QuotaRecord
type DbUsageLog = db.UsageLog
type DbPlanFeature = db.PlanFeature

// Constants
const (
	UserRoleSuperAdmin = db.UserRoleSuperAdmin
	UserRoleAdmin      = db.UserRoleAdmin
	UserRoleUser       = db.UserRoleUser
)
