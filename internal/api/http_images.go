package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"postpilot/internal/entity"
)

// GenerateImage 生成配图
func (h *HTTPHandler) GenerateImage(c *gin.Context) {
	if h.imageService == nil {
		ServiceUnavailable(c, "image generation not available")
		return
	}

	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "authentication required")
		return
	}

	var req entity.ImageGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	result, err := h.imageService.Generate(c.Request.Context(), &entity.DbUser{ID: user.ID, PlanKey: user.PlanKey}, req)
	if err != nil {
		workflowErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
