package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"postpilot/internal/entity"
)

// AdminListPlanFeatures 列出某个套餐的远程配置特性
func (h *HTTPHandler) AdminListPlanFeatures(c *gin.Context) {
	if h.repo == nil {
		ServiceUnavailable(c, "repository not available")
		return
	}

	planKey := strings.TrimSpace(c.Param("plan_key"))
	if planKey == "" {
		MissingField(c, "plan_key")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	features, err := h.repo.ListPlanFeatures(ctx, planKey)
	if err != nil {
		logrus.WithError(err).WithField("plan_key", planKey).Error("failed to list plan features")
		InternalError(c, "failed to load plan features")
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan_key": planKey, "features": features})
}

// AdminUpsertPlanFeature 写入或更新一条套餐特性
func (h *HTTPHandler) AdminUpsertPlanFeature(c *gin.Context) {
	if h.repo == nil {
		ServiceUnavailable(c, "repository not available")
		return
	}

	planKey := strings.TrimSpace(c.Param("plan_key"))
	if planKey == "" {
		MissingField(c, "plan_key")
		return
	}

	var req entity.PlanFeatureUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	featureKey := strings.TrimSpace(req.FeatureKey)
	value := strings.TrimSpace(req.Value)
	if featureKey == "" {
		MissingField(c, "feature_key")
		return
	}
	if value == "" {
		MissingField(c, "value")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	feature := &entity.DbPlanFeature{
		PlanKey:    planKey,
		FeatureKey: featureKey,
		Value:      value,
	}
	if err := h.repo.UpsertPlanFeature(ctx, feature); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"plan_key":    planKey,
			"feature_key": featureKey,
		}).Error("failed to upsert plan feature")
		InternalError(c, "failed to save plan feature")
		return
	}

	c.JSON(http.StatusOK, feature)
}

// AdminDeletePlanFeature 删除一条套餐特性，配额解析会退回内置默认值
func (h *HTTPHandler) AdminDeletePlanFeature(c *gin.Context) {
	if h.repo == nil {
		ServiceUnavailable(c, "repository not available")
		return
	}

	planKey := strings.TrimSpace(c.Param("plan_key"))
	featureKey := strings.TrimSpace(c.Param("feature_key"))
	if planKey == "" {
		MissingField(c, "plan_key")
		return
	}
	if featureKey == "" {
		MissingField(c, "feature_key")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.repo.DeletePlanFeature(ctx, planKey, featureKey); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"plan_key":    planKey,
			"feature_key": featureKey,
		}).Error("failed to delete plan feature")
		InternalError(c, "failed to delete plan feature")
		return
	}

	c.Status(http.StatusNoContent)
}
