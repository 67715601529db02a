package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const batchIDKey ctxKey = "batch_id"

// ContextWithBatchID stores the batch ID in the context.
func ContextWithBatchID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the batch ID from context if present.
func BatchIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(batchIDKey).(string); ok {
		return v
	}
	return ""
}

// FromContext returns a component logger carrying the context's batch ID.
func FromContext(ctx context.Context, component string) zerolog.Logger {
	l := WithComponent(component)
	if id := BatchIDFromContext(ctx); id != "" {
		l = l.With().Str("batch_id", id).Logger()
	}
	return l
}
