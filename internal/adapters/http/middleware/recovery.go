// Package middleware - panic recovery.
package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/centralpay/paycore/internal/adapters/http/common"
)

// RecoveryConfig configures the recovery middleware.
type RecoveryConfig struct {
	Logger           *slog.Logger
	EnableStackTrace bool // include the stack trace in logs
	PrintStack       bool // also print the stack trace to stdout
}

// DefaultRecoveryConfig returns the default configuration.
func DefaultRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		Logger:           slog.Default(),
		EnableStackTrace: true,
		PrintStack:       false,
	}
}

// Recovery catches panics from downstream handlers, logs the stack trace
// and answers with a generic 500 so the process keeps serving.
func Recovery(config *RecoveryConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultRecoveryConfig()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()

				attrs := []slog.Attr{
					slog.String("error", fmt.Sprintf("%v", err)),
					slog.String("path", c.Request.URL.Path),
					slog.String("method", c.Request.Method),
					slog.String("client_ip", c.ClientIP()),
				}

				if config.EnableStackTrace {
					attrs = append(attrs, slog.String("stack", string(stack)))
				}

				config.Logger.LogAttrs(c.Request.Context(), slog.LevelError, "Panic recovered", attrs...)

				if config.PrintStack {
					fmt.Printf("[Recovery] panic recovered:\n%v\n%s\n", err, stack)
				}

				common.InternalErrorResponse(c, "An unexpected error occurred")
				c.Abort()
			}
		}()

		c.Next()
	}
}
