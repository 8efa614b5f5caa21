// Package service composes the generation workflows: quota gating,
// provider calls, cascading fallbacks and caching.
package service

import "fmt"

// Workflow terminal codes. Only these cross the service boundary;
// individual provider errors stay in the logs.
const (
	CodeNoUser                = "no_user"
	CodeCtxError              = "ctx_error"
	CodeQuotaExhausted        = "quota_exhausted"
	CodeQuotaError            = "quota_error"
	CodeEmptyCaption          = "empty_caption"
	CodeAllModelsFailed       = "all_models_failed"
	CodeImageGenerationFailed = "image_generation_failed"
)

// WorkflowError is a terminal workflow outcome with a machine-readable
// code for the API layer to map onto a response.
type WorkflowError struct {
	Code    string
	Message string
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func workflowErr(code, format string, args ...interface{}) *WorkflowError {
	return &WorkflowError{Code: code, Message: fmt.Sprintf(format, args...)}
}
