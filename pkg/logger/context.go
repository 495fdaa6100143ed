package logger

import (
	"context"

	"github.com/rs/zerolog"
)

type correlationKey struct{}

// CorrelationField is the log field carrying the correlation identifier.
const CorrelationField = "correlation_id"

// WithCorrelationID stores id in ctx and attaches a child of base tagged with
// it, so later layers can log through FromContext.
func WithCorrelationID(ctx context.Context, base zerolog.Logger, id string) context.Context {
	ctx = context.WithValue(ctx, correlationKey{}, id)
	l := base.With().Str(CorrelationField, id).Logger()
	return l.WithContext(ctx)
}

// CorrelationID returns the identifier stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}

// FromContext returns the request-scoped logger, or fallback when none was set.
func FromContext(ctx context.Context, fallback zerolog.Logger) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	return &fallback
}
