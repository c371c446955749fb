// Package middleware contains the HTTP middleware chain.
//
// Middleware in Gin are functions running before/after handlers. They carry
// the cross-cutting concerns: request identity, logging, auth, rate limits.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/centralpay/paycore/internal/pkg/logger"
)

const (
	// RequestIDHeader is the header carrying the request ID
	RequestIDHeader = "X-Request-ID"
	// RequestIDContextKey is the context key holding the request ID
	RequestIDContextKey = "request_id"
)

// RequestID tags every request with a unique ID.
//
// A client-supplied X-Request-ID is honored so callers can correlate their
// own traces; otherwise a fresh UUID is generated. The ID is stored under
// both the context key and the header name, because the response envelope
// reads the latter. It also rides the request context so every slog call
// downstream carries it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDContextKey, requestID)
		c.Set(RequestIDHeader, requestID)

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID reads the request ID off the gin context.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDContextKey); exists {
		if strID, ok := id.(string); ok {
			return strID
		}
	}
	return ""
}
