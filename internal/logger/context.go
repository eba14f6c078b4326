package logger

import (
	"context"

	"go.uber.org/zap"
)

type requestLoggerKey struct{}

// WithRequestLogger derives a logger from base with fields attached and
// stores it in ctx. It returns both so middleware can log with it too.
func WithRequestLogger(ctx context.Context, base *zap.Logger, fields ...zap.Field) (context.Context, *zap.Logger) {
	l := base.With(fields...)
	return context.WithValue(ctx, requestLoggerKey{}, l), l
}

// FromContext returns the request logger stored in ctx, or fallback.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(requestLoggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}
