// Package common holds shared types for the HTTP layer.
//
// It lives in its own package to avoid import cycles between handlers
// and the main http package.
package common

import (
	"errors"
	"net/http"
	"time"

	domainerrors "github.com/centralpay/paycore/internal/domain/errors"
	"github.com/gin-gonic/gin"
)

// ============================================
// Standard API Response Format
// ============================================

// APIResponse is the envelope every endpoint returns. List endpoints carry
// their offset/limit window inside Data, so there is no envelope-level
// pagination block.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"request_id"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError is the error body of an APIResponse.
type APIError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Fields     []FieldError           `json:"fields,omitempty"`
	RetryAfter int                    `json:"retry_after,omitempty"`
}

// FieldError reports a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ============================================
// Error Codes
// ============================================

const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeBusinessRule     = "BUSINESS_RULE_VIOLATION"
	ErrCodeDuplicateRequest = "DUPLICATE_REQUEST"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeConcurrency      = "CONCURRENCY_ERROR"
)

// ============================================
// Request ID
// ============================================

// requestIDKey mirrors the gin key the RequestID middleware sets.
const requestIDKey = "X-Request-ID"

// GetRequestID returns the request ID stored on the gin context.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(requestIDKey); exists {
		return id.(string)
	}
	return ""
}

// ============================================
// Response Helpers
// ============================================

// Success sends a successful response.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Success:   true,
		Data:      data,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// Error sends an error response.
func Error(c *gin.Context, statusCode int, apiError *APIError) {
	c.JSON(statusCode, APIResponse{
		Success:   false,
		Error:     apiError,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// ============================================
// Error Response Helpers
// ============================================

// ValidationErrorResponse builds a 400 for field-level validation failures.
func ValidationErrorResponse(c *gin.Context, fields []FieldError) {
	Error(c, http.StatusBadRequest, &APIError{
		Code:    ErrCodeValidation,
		Message: "Request validation failed",
		Fields:  fields,
	})
}

// BadRequestResponse builds a 400 for a malformed request.
func BadRequestResponse(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, &APIError{
		Code:    ErrCodeBadRequest,
		Message: message,
	})
}

// UnauthorizedResponse builds a 401.
func UnauthorizedResponse(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, &APIError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	})
}

// ForbiddenResponse builds a 403.
func ForbiddenResponse(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, &APIError{
		Code:    ErrCodeForbidden,
		Message: message,
	})
}

// TooManyRequestsResponse builds a 429 with a Retry-After hint.
func TooManyRequestsResponse(c *gin.Context, retryAfter int) {
	Error(c, http.StatusTooManyRequests, &APIError{
		Code:       ErrCodeTooManyRequests,
		Message:    "Too many requests, please try again later",
		RetryAfter: retryAfter,
	})
}

// InternalErrorResponse builds a 500.
func InternalErrorResponse(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, &APIError{
		Code:    ErrCodeInternal,
		Message: message,
	})
}

// ============================================
// Domain Error to HTTP Error Mapper
// ============================================

// HandleDomainError translates a domain error into an HTTP response.
//
// Field validation maps to 400, broken business rules and balance failures
// to 422, idempotency and concurrency collisions to 409, absent entities to
// 404. Unauthorized errors split on whether the request carries an
// authenticated principal: without one the caller never authenticated (401),
// with one it is a privilege failure (403). Anything unclassified is a 500
// with a generic message so internals never leak to clients.
func HandleDomainError(c *gin.Context, err error) {
	var fieldErr domainerrors.ValidationError
	if errors.As(err, &fieldErr) {
		ValidationErrorResponse(c, []FieldError{
			{Field: fieldErr.Field, Message: fieldErr.Message, Code: "invalid"},
		})
		return
	}

	var brv *domainerrors.BusinessRuleViolation
	if errors.As(err, &brv) {
		Error(c, http.StatusUnprocessableEntity, &APIError{
			Code:    ErrCodeBusinessRule,
			Message: brv.Message,
			Details: map[string]interface{}{
				"rule":    brv.Rule,
				"context": brv.Context,
			},
		})
		return
	}

	var conc *domainerrors.ConcurrencyError
	if errors.As(err, &conc) {
		Error(c, http.StatusConflict, &APIError{
			Code:    ErrCodeConcurrency,
			Message: "Resource was modified by another request, please retry",
			Details: map[string]interface{}{
				"retryable": true,
			},
		})
		return
	}

	switch domainerrors.Kind(err) {
	case domainerrors.KindInvalidTransaction:
		Error(c, http.StatusBadRequest, &APIError{
			Code:    domainerrors.KindInvalidTransaction,
			Message: domainMessage(err),
		})
	case domainerrors.KindInsufficientBalance:
		Error(c, http.StatusUnprocessableEntity, &APIError{
			Code:    domainerrors.KindInsufficientBalance,
			Message: domainMessage(err),
		})
	case domainerrors.KindDuplicateTransaction:
		// Same reference with matching parameters replays the original
		// result upstream; reaching here means the parameters differed.
		Error(c, http.StatusConflict, &APIError{
			Code:    ErrCodeDuplicateRequest,
			Message: domainMessage(err),
		})
	case domainerrors.KindNotFound:
		Error(c, http.StatusNotFound, &APIError{
			Code:    ErrCodeNotFound,
			Message: domainMessage(err),
		})
	case domainerrors.KindUnauthorized:
		if authPrincipalPresent(c) {
			ForbiddenResponse(c, domainMessage(err))
			return
		}
		UnauthorizedResponse(c, domainMessage(err))
	case domainerrors.KindConflict:
		Error(c, http.StatusConflict, &APIError{
			Code:    ErrCodeConflict,
			Message: domainMessage(err),
			Details: map[string]interface{}{
				"retryable": true,
			},
		})
	default:
		InternalErrorResponse(c, "An unexpected error occurred")
	}
}

// domainMessage returns the human-readable message from a DomainError in the
// chain, falling back to the raw error text for bare sentinels.
func domainMessage(err error) string {
	var de *domainerrors.DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

// authPrincipalPresent reports whether the auth middleware stored an
// authenticated user on this request. The key mirrors the one the
// middleware package sets.
func authPrincipalPresent(c *gin.Context) bool {
	_, ok := c.Get("auth_user_id")
	return ok
}
