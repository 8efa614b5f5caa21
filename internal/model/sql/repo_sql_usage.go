package sql

import (
	"context"
	"fmt"
	"strings"

	"postpilot/internal/entity"
)

// CreateUsageLog inserts a new usage log entry.
func (r *GormRepository) CreateUsageLog(ctx context.Context, log *entity.DbUsageLog) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if log == nil {
		return fmt.Errorf("usage log is nil")
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// ListUsageLogs retrieves paginated usage log entries.
func (r *GormRepository) ListUsageLogs(ctx context.Context, params *entity.UsageLogQuery) ([]entity.DbUsageLog, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbUsageLog{})
	if params != nil {
		if trimmed := strings.TrimSpace(params.Kind); trimmed != "" {
			query = query.Where("kind = ?", trimmed)
		}
		if trimmed := strings.TrimSpace(params.Provider); trimmed != "" {
			query = query.Where("provider = ?", trimmed)
		}
		if !params.IncludeAll && params.UserID > 0 {
			query = query.Where("user_id = ?", params.UserID)
		}
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, nil, err
	}

	page := 1
	pageSize := 20
	if params != nil {
		if params.Page > 0 {
			page = int(params.Page)
		}
		if params.PageSize > 0 {
			pageSize = int(params.PageSize)
		}
	}

	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}

	var logs []entity.DbUsageLog
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&logs).Error; err != nil {
		return nil, nil, err
	}

	meta := r.calculatePagination(totalCount, page, pageSize)
	return logs, meta, nil
}
