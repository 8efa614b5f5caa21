package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"postpilot/internal/service"
)

func TestErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		status         int
		code           string
		message        string
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{
			name:           "BadRequest",
			status:         http.StatusBadRequest,
			code:           ErrCodeInvalidRequest,
			message:        "无效的请求",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrCodeInvalidRequest,
			expectedMsg:    "无效的请求",
		},
		{
			name:           "NotFound",
			status:         http.StatusNotFound,
			code:           ErrCodeUserNotFound,
			message:        "用户不存在",
			expectedStatus: http.StatusNotFound,
			expectedCode:   ErrCodeUserNotFound,
			expectedMsg:    "用户不存在",
		},
		{
			name:           "InternalError",
			status:         http.StatusInternalServerError,
			code:           ErrCodeInternalError,
			message:        "服务器内部错误",
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   ErrCodeInternalError,
			expectedMsg:    "服务器内部错误",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			ErrorResponse(c, tt.status, tt.code, tt.message)

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			var payload APIError
			if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if payload.Code != tt.expectedCode {
				t.Fatalf("expected code %s, got %s", tt.expectedCode, payload.Code)
			}
			if payload.Message != tt.expectedMsg {
				t.Fatalf("expected message %s, got %s", tt.expectedMsg, payload.Message)
			}
		})
	}
}

func TestMissingFieldIncludesDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	MissingField(c, "plan_key")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	var payload APIError
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Code != ErrCodeMissingField {
		t.Fatalf("expected code %s, got %s", ErrCodeMissingField, payload.Code)
	}
	details, ok := payload.Details.(map[string]any)
	if !ok {
		t.Fatalf("expected details object, got %T", payload.Details)
	}
	if details["field"] != "plan_key" {
		t.Fatalf("expected field plan_key, got %v", details["field"])
	}
}

func TestWorkflowErrorResponseMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		code           string
		expectedStatus int
		expectedCode   string
	}{
		{"NoUser", service.CodeNoUser, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"CtxError", service.CodeCtxError, http.StatusBadRequest, ErrCodeInvalidRequest},
		{"QuotaExhausted", service.CodeQuotaExhausted, http.StatusTooManyRequests, ErrCodeQuotaExhausted},
		{"QuotaError", service.CodeQuotaError, http.StatusInternalServerError, ErrCodeQuotaError},
		{"AllModelsFailed", service.CodeAllModelsFailed, http.StatusBadGateway, ErrCodeGenerationFailed},
		{"ImageGenerationFailed", service.CodeImageGenerationFailed, http.StatusBadGateway, ErrCodeGenerationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			workflowErrorResponse(c, &service.WorkflowError{Code: tt.code, Message: "m"})

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			var payload APIError
			if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if payload.Code != tt.expectedCode {
				t.Fatalf("expected code %s, got %s", tt.expectedCode, payload.Code)
			}
		})
	}
}
