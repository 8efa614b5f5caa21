package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"postpilot/internal/auth"
	"postpilot/internal/config"
	"postpilot/internal/model"
	"postpilot/internal/quota"
	"postpilot/internal/service"
)

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg         config.Config
	repo        model.Repository
	authManager *auth.Manager

	// 服务层
	quotas         *quota.Store
	captionService *service.CaptionService
	imageService   *service.ImageService
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, repo model.Repository, quotas *quota.Store, captions *service.CaptionService, images *service.ImageService) (*HTTPHandler, error) {
	expiry := time.Duration(cfg.JWTExpirationMinutes) * time.Minute
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, expiry)
	if err != nil {
		return nil, err
	}

	return &HTTPHandler{
		cfg:            cfg,
		repo:           repo,
		authManager:    authManager,
		quotas:         quotas,
		captionService: captions,
		imageService:   images,
	}, nil
}

// workflowErrorResponse 将工作流终态错误码映射为 HTTP 响应
func workflowErrorResponse(c *gin.Context, err error) {
	var wfErr *service.WorkflowError
	if !errors.As(err, &wfErr) {
		InternalError(c, "generation failed")
		return
	}

	switch wfErr.Code {
	case service.CodeNoUser:
		Unauthorized(c, wfErr.Message)
	case service.CodeCtxError:
		BadRequest(c, ErrCodeInvalidRequest, wfErr.Message)
	case service.CodeQuotaExhausted:
		// 配额耗尽需要引导用户升级套餐，而不是显示通用错误
		ErrorResponseWithDetails(c, http.StatusTooManyRequests, ErrCodeQuotaExhausted, wfErr.Message, gin.H{"upgrade_required": true})
	case service.CodeQuotaError:
		ErrorResponse(c, http.StatusInternalServerError, ErrCodeQuotaError, wfErr.Message)
	default:
		ErrorResponseWithDetails(c, http.StatusBadGateway, ErrCodeGenerationFailed, wfErr.Message, gin.H{"reason": wfErr.Code})
	}
}
