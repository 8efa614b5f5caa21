package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"postpilot/internal/entity"
)

// GenerateCaption 生成文案
func (h *HTTPHandler) GenerateCaption(c *gin.Context) {
	if h.captionService == nil {
		ServiceUnavailable(c, "caption generation not available")
		return
	}

	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var req entity.CaptionGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	result, err := h.captionService.Generate(c.Request.Context(), &entity.DbUser{ID: user.ID, PlanKey: user.PlanKey}, req)
	if err != nil {
		workflowErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
