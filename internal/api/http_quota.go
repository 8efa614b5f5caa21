package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"postpilot/internal/entity"
	"postpilot/internal/plan"
)

// quotaResources 配额展示使用的资源列表
var quotaResources = []struct {
	Name     string
	Resource string
}{
	{"captions", plan.ResourceCaptions},
	{"images", plan.ResourceImages},
	{"posts", plan.ResourcePosts},
	{"extension_calls", plan.ResourceExtension},
}

// GetQuota 查询当前用户各资源的用量与上限
func (h *HTTPHandler) GetQuota(c *gin.Context) {
	if h.quotas == nil {
		ServiceUnavailable(c, "quota store not available")
		return
	}

	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	statuses := make([]entity.QuotaResourceStatus, 0, len(quotaResources))
	for _, res := range quotaResources {
		used, limit, err := h.quotas.Remaining(c.Request.Context(), user.ID, user.PlanKey, res.Resource)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"user_id":  user.ID,
				"resource": res.Resource,
			}).Error("failed to load quota status")
			InternalError(c, "failed to load quota status")
			return
		}
		statuses = append(statuses, entity.QuotaResourceStatus{
			Resource: res.Name,
			Used:     used,
			Limit:    limit,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"plan_key":  user.PlanKey,
		"resources": statuses,
	})
}
