// Package apierrors defines the structured error responses of the HTTP
// API and the mapping from engine errors to HTTP statuses.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"insightpipe/internal/workflow"
)

// APIError represents a structured API error response.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError carries per-field validation details.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates an APIError.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates an APIError with additional details.
func NewWithDetails(statusCode int, errorCode, message string, details any) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidRequest   = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")

	ErrNotFound         = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrWorkflowNotFound = New(http.StatusNotFound, "WORKFLOW_NOT_FOUND", "Workflow not found")
	ErrAgentNotFound    = New(http.StatusNotFound, "AGENT_NOT_FOUND", "Agent not found")

	ErrConflict = New(http.StatusConflict, "CONFLICT", "Resource conflict")

	ErrUnprocessableEntity = New(http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY", "Request could not be processed")

	ErrRateLimitExceeded = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")

	ErrInternalServer   = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
	ErrWorkflowFailed   = New(http.StatusInternalServerError, "WORKFLOW_FAILED", "Workflow execution failed")
	ErrWebSocketUpgrade = New(http.StatusInternalServerError, "WEBSOCKET_UPGRADE_FAILED", "WebSocket upgrade failed")
)

// InvalidRequestWithError wraps a bind error into an invalid request response.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// ErrValidation creates a validation error with field details.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", ValidationError{
		Field:   field,
		Message: message,
	})
}

// NotFoundError creates a not found error naming the resource.
func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("%s not found", resource), resource)
}

// FromWorkflowError maps an engine error to an HTTP response. Structural
// problems in the request are client errors; everything else is a 500.
func FromWorkflowError(err error) *APIError {
	var wfErr *workflow.Error
	if !errors.As(err, &wfErr) {
		return NewWithDetails(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error", err.Error())
	}

	details := map[string]any{
		"error_type": string(wfErr.Type),
		"task":       wfErr.Task,
		"agent":      wfErr.Agent,
	}

	switch wfErr.Type {
	case workflow.ErrorTypeUnknownTaskType, workflow.ErrorTypeMissingParameter, workflow.ErrorTypeOutOfOrder:
		return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", wfErr.Message, details)
	case workflow.ErrorTypeAgentNotFound, workflow.ErrorTypeAgentUnavailable:
		return NewWithDetails(http.StatusNotFound, "AGENT_NOT_FOUND", wfErr.Message, details)
	case workflow.ErrorTypeDuplicateAgent:
		return NewWithDetails(http.StatusConflict, "CONFLICT", wfErr.Message, details)
	case workflow.ErrorTypeNoData, workflow.ErrorTypeDataMismatch, workflow.ErrorTypeInvalidAgent:
		return NewWithDetails(http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY", wfErr.Message, details)
	case workflow.ErrorTypeCancellation:
		return NewWithDetails(499, "REQUEST_CANCELLED", wfErr.Message, details)
	default:
		return NewWithDetails(http.StatusInternalServerError, "WORKFLOW_FAILED", wfErr.Message, details)
	}
}
