package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

// NewRequestID creates a new unique request ID.
func NewRequestID() string {
	return uuid.New().String()
}

// WithRequestID stores a request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFrom retrieves the request ID from context, or "".
func RequestIDFrom(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDContextKey).(string); ok {
		return requestID
	}
	return ""
}

// EnsureRequestID returns a context that carries a request ID,
// generating one if the context has none.
func EnsureRequestID(ctx context.Context) context.Context {
	if RequestIDFrom(ctx) == "" {
		return WithRequestID(ctx, NewRequestID())
	}
	return ctx
}

// LoggerWithContext returns the global logger annotated with the
// request ID from context. Preferred for request handling.
func LoggerWithContext(ctx context.Context) *slog.Logger {
	logger := GetLogger()
	if requestID := RequestIDFrom(ctx); requestID != "" {
		logger = logger.With("request_id", requestID)
	}
	return logger
}

// WithComponent annotates a logger with a component field.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}
