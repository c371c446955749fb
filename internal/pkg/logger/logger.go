// Package logger builds the application's slog logger.
//
// Every log call that goes through a *Context method picks up the request
// ID, acting user and webhook event ID stored on the context, plus the
// OpenTelemetry trace and span of the active span. One transfer or one
// webhook delivery can then be followed across the HTTP layer, the use
// cases and the queue workers by a single attribute.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for correlation data. External packages go through the
// With/Get helpers.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
	eventIDKey   contextKey = "event_id"
)

// Config holds logger configuration
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // json, text
	Output    io.Writer
	AddSource bool
}

// New creates a slog.Logger with the given configuration. Zero-value fields
// fall back to info level, JSON format and stdout.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = &Config{}
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(&contextHandler{handler: handler})
}

// Setup initializes the process-wide default logger
func Setup(cfg *Config) {
	slog.SetDefault(New(cfg))
}

// L returns the process-wide default logger
func L() *slog.Logger {
	return slog.Default()
}

// ============================================
// Context Handler
// ============================================

// contextHandler decorates a slog.Handler with correlation attributes pulled
// from the context at Handle time.
type contextHandler struct {
	handler slog.Handler
}

// Enabled reports whether the wrapped handler logs at this level
func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle adds correlation data from the context to the record
func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if requestID := GetRequestID(ctx); requestID != "" {
		r.AddAttrs(slog.String("request_id", requestID))
	}
	if userID := GetUserID(ctx); userID != "" {
		r.AddAttrs(slog.String("user_id", userID))
	}
	if eventID := GetEventID(ctx); eventID != "" {
		r.AddAttrs(slog.String("event_id", eventID))
	}

	// Trace correlation comes from the live span, not a manual key.
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}

	return h.handler.Handle(ctx, r)
}

// WithAttrs returns a new handler carrying the given attributes
func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a new handler with the given group
func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{handler: h.handler.WithGroup(name)}
}

// ============================================
// Context helpers
// ============================================

// WithRequestID stores the HTTP request ID on the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID extracts the HTTP request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID stores the acting user on the context
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// GetUserID extracts the acting user from the context
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// WithEventID stores the webhook event ID on the context. Queue workers set
// it once per delivery so the whole processing path logs under it.
func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, eventIDKey, id)
}

// GetEventID extracts the webhook event ID from the context
func GetEventID(ctx context.Context) string {
	if id, ok := ctx.Value(eventIDKey).(string); ok {
		return id
	}
	return ""
}
