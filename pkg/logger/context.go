package logger

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// contextKey is a private type for context keys to prevent collisions
type contextKey int

const loggerKey contextKey = iota

// RequestIDKey is the request id header and echo context key
const RequestIDKey = "X-Request-ID"

// WithContext returns a copy of ctx carrying the logger
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromCtx retrieves the logger from a Go context, falling back to the global logger
func FromCtx(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return GetLogger()
}

// FromContext retrieves the logger from the echo context
func FromContext(c echo.Context) *zap.Logger {
	if l, ok := c.Get("logger").(*zap.Logger); ok {
		return l
	}
	return FromCtx(c.Request().Context())
}

// Set stores l as the request logger on both the echo context and the request context
func Set(c echo.Context, l *zap.Logger) {
	c.Set("logger", l)
	c.SetRequest(c.Request().WithContext(WithContext(c.Request().Context(), l)))
}
