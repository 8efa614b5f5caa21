package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"postpilot/internal/auth"
	"postpilot/internal/entity"
	"postpilot/internal/plan"
)

// AdminUpdateUser 管理端更新用户资料、角色或套餐
func (h *HTTPHandler) AdminUpdateUser(c *gin.Context) {
	if h.repo == nil {
		ServiceUnavailable(c, "repository not available")
		return
	}

	idValue := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(idValue, 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, ErrCodeInvalidRequest, "invalid user id")
		return
	}

	var req entity.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	updates := entity.UserUpdates{}
	if req.DisplayName != nil {
		trimmed := strings.TrimSpace(*req.DisplayName)
		updates.DisplayName = &trimmed
	}
	if req.Role != nil {
		role := strings.TrimSpace(*req.Role)
		switch role {
		case entity.UserRoleSuperAdmin, entity.UserRoleAdmin, entity.UserRoleUser:
			updates.Role = &role
		default:
			BadRequest(c, ErrCodeInvalidRequest, "unknown role")
			return
		}
	}
	if req.PlanKey != nil {
		planKey := strings.TrimSpace(*req.PlanKey)
		if _, ok := plan.Defaults()[planKey]; !ok {
			BadRequest(c, ErrCodeInvalidRequest, "unknown plan key")
			return
		}
		updates.PlanKey = &planKey
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(strings.TrimSpace(*req.Password))
		if err != nil {
			BadRequest(c, ErrCodeInvalidRequest, "invalid password")
			return
		}
		updates.PasswordHash = &hash
	}
	if req.IsActive != nil {
		updates.IsActive = req.IsActive
	}

	if updates.IsEmpty() {
		BadRequest(c, ErrCodeInvalidRequest, "no fields to update")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.UpdateUser(ctx, uint(id), updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "user not found")
			return
		}
		logrus.WithError(err).WithField("user_id", id).Error("failed to update user")
		InternalError(c, "failed to update user")
		return
	}

	dbUser, err := h.repo.GetUserByID(ctx, uint(id))
	if err != nil {
		logrus.WithError(err).WithField("user_id", id).Error("failed to reload user after update")
		InternalError(c, "failed to load updated user")
		return
	}

	c.JSON(http.StatusOK, makeUserSummary(dbUser))
}
