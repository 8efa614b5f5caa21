package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"postpilot/internal/entity"
)

// ListUsageLogs 查询生成调用日志。普通用户只能看到自己的记录，
// 管理员默认查看全部并可按用户过滤。
func (h *HTTPHandler) ListUsageLogs(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusOK, gin.H{"logs": []entity.DbUsageLog{}, "meta": &entity.Meta{Page: 1, PageSize: 0, Total: 0}})
		return
	}

	requestUser := CurrentUser(c)
	if requestUser == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var params entity.UsageLogQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "invalid query parameters")
		return
	}

	params.Kind = strings.ToLower(strings.TrimSpace(params.Kind))
	params.Provider = strings.TrimSpace(params.Provider)

	if params.Page <= 0 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 20
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	if requestUser.IsAdmin() {
		params.IncludeAll = true
		if userFilter := strings.TrimSpace(c.Query("user_id")); userFilter != "" {
			if parsed, err := strconv.ParseUint(userFilter, 10, 64); err == nil && parsed > 0 {
				params.UserID = uint(parsed)
				params.IncludeAll = false
			}
		}
	} else {
		params.UserID = requestUser.ID
		params.IncludeAll = false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	logs, meta, err := h.repo.ListUsageLogs(ctx, &params)
	if err != nil {
		logrus.WithError(err).Error("failed to list usage logs")
		InternalError(c, "failed to load usage logs")
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs, "meta": meta})
}
