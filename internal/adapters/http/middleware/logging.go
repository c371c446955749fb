// Package middleware - structured request logging.
package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingConfig configures the logging middleware.
type LoggingConfig struct {
	Logger          *slog.Logger
	SkipPaths       []string // paths excluded from logging (e.g. /health)
	LogRequestBody  bool     // log the request body (mind PII)
	LogResponseBody bool     // log the response body
	MaxBodySize     int      // longest body fragment to log
}

// DefaultLoggingConfig returns the default configuration.
func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Logger:          slog.Default(),
		SkipPaths:       []string{"/health", "/ready", "/metrics"},
		LogRequestBody:  false,
		LogResponseBody: false,
		MaxBodySize:     1024,
	}
}

// Logging emits one structured log line per request.
//
// Logged attributes: method, path, status, duration, client IP, user agent,
// response size. Request, user and trace IDs arrive through the request
// context via the pkg/logger handler. Bodies are opt-in and truncated. Level
// follows the status code: 5xx logs as error, 4xx as warn, the rest as info.
func Logging(config *LoggingConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultLoggingConfig()
	}

	skipMap := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()

		var requestBody string
		if config.LogRequestBody {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			if len(bodyBytes) > 0 {
				requestBody = truncateString(string(bodyBytes), config.MaxBodySize)
			}
		}

		blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		if config.LogResponseBody {
			c.Writer = blw
		}

		c.Next()

		duration := time.Since(start)

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("query", c.Request.URL.RawQuery),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", duration),
			slog.String("client_ip", c.ClientIP()),
			slog.String("user_agent", c.Request.UserAgent()),
			slog.Int("response_size", c.Writer.Size()),
		}

		if config.LogRequestBody && requestBody != "" {
			attrs = append(attrs, slog.String("request_body", requestBody))
		}

		if config.LogResponseBody && blw.body.Len() > 0 {
			attrs = append(attrs, slog.String("response_body",
				truncateString(blw.body.String(), config.MaxBodySize)))
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		} else if c.Writer.Status() >= 400 {
			level = slog.LevelWarn
		}

		config.Logger.LogAttrs(c.Request.Context(), level, "HTTP Request", attrs...)
	}
}

// bodyLogWriter is a ResponseWriter that keeps a copy of the body.
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write writes to the original writer and the capture buffer.
func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// truncateString trims s to max bytes.
func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...[truncated]"
}
