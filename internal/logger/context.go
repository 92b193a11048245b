package logger

import (
	"context"

	"servicehub-be/internal/utils"

	"go.uber.org/zap"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// FromCtx returns the global logger enriched with request_id and user_id
// when the context carries them.
func FromCtx(ctx context.Context) *zap.Logger {
	fields := make([]zap.Field, 0, 2)
	if reqID := RequestIDFrom(ctx); reqID != "" {
		fields = append(fields, zap.String("request_id", reqID))
	}
	if userID, ok := utils.GetUserIDFromContext(ctx); ok {
		fields = append(fields, zap.Uint("user_id", userID))
	}
	if len(fields) == 0 {
		return L()
	}
	return L().With(fields...)
}
