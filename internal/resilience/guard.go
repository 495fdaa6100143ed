// Package resilience composes the rate limiter and circuit breaker that sit
// in front of every outbound dependency call.
package resilience

import (
	"context"
	"errors"
	"time"

	"order-sync-gateway/config"
	"order-sync-gateway/internal/metrics"
	"order-sync-gateway/internal/resilience/breaker"
	"order-sync-gateway/internal/resilience/ratelimit"
	"order-sync-gateway/pkg/apperror"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Guard wraps calls to one dependency. Every call takes a rate limit token,
// passes the breaker and is recorded in the metrics store.
type Guard struct {
	name    string
	limiter *ratelimit.Limiter
	breaker *breaker.Breaker
	metrics *metrics.Store
	tracer  trace.Tracer
	log     zerolog.Logger
}

// NewGuard builds the limiter and breaker for dependency name from cfg.
func NewGuard(name string, cfg config.DependencyConfig, store *metrics.Store, tracer trace.Tracer, log zerolog.Logger) *Guard {
	log = log.With().Str("dependency", name).Logger()

	b := breaker.New(breaker.Settings{
		Name:              name,
		FailureThreshold:  cfg.Breaker.FailureThreshold,
		Window:            cfg.Breaker.Window,
		Cooldown:          cfg.Breaker.Cooldown,
		HalfOpenMaxProbes: cfg.Breaker.HalfOpenMaxProbes,
		SuccessThreshold:  cfg.Breaker.SuccessThreshold,
		OnStateChange: func(dep string, from, to breaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			store.OnBreakerStateChange(dep, from.String(), to.String())
		},
	})
	store.RegisterBreaker(name, b.State().String())

	g := &Guard{
		name:    name,
		limiter: ratelimit.New(name, cfg.RateLimit.Rate, cfg.RateLimit.Burst, cfg.RateLimit.MaxWait),
		breaker: b,
		metrics: store,
		tracer:  tracer,
		log:     log,
	}
	store.RegisterDependencyStats(name, func() any { return g.Stats() })
	return g
}

// Name returns the guarded dependency's name.
func (g *Guard) Name() string { return g.name }

// Stats is the live limiter and breaker view of one dependency.
type Stats struct {
	RateLimit ratelimit.Stats  `json:"rate_limit"`
	Breaker   breaker.Snapshot `json:"circuit_breaker"`
}

// Stats reports the guard's limiter counters and breaker state. It backs the
// dependencies section of the monitoring snapshot.
func (g *Guard) Stats() Stats {
	return Stats{
		RateLimit: g.limiter.Stats(),
		Breaker:   g.breaker.Snapshot(),
	}
}

// Execute runs fn as one attempt of operation. Rate limit and breaker
// rejections are returned without calling fn.
func (g *Guard) Execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := g.tracer.Start(ctx, g.name+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("dependency", g.name),
			attribute.String("operation", operation),
		),
	)
	defer span.End()

	if err := g.limiter.Acquire(ctx); err != nil {
		g.metrics.RecordRateLimited(g.name)
		endSpan(span, err)
		return err
	}

	ticket, err := g.breaker.Allow()
	if err != nil {
		endSpan(span, err)
		return err
	}

	start := time.Now()
	err = fn(ctx)
	latency := time.Since(start)

	failed := false
	switch {
	case err == nil:
		ticket.Success()
	case errors.Is(ctx.Err(), context.Canceled):
		// The caller went away; the dependency told us nothing.
		ticket.Cancel()
	case IndicatesIllHealth(err):
		failed = true
		ticket.Failure()
	default:
		ticket.Success()
	}

	g.metrics.RecordCall(g.name, operation, latency, failed)
	if err != nil {
		g.log.Debug().Err(err).Str("operation", operation).Dur("latency", latency).Msg("outbound call failed")
		g.metrics.RecordError(metrics.SourceOutbound, err, "", "")
	}
	endSpan(span, err)
	return err
}

// IndicatesIllHealth reports whether err says something about the
// dependency itself: network errors, timeouts, throttling and 5xx responses.
// Client errors such as a rejected order do not.
func IndicatesIllHealth(err error) bool {
	ce := apperror.From(err)
	switch ce.Kind {
	case apperror.KindNetwork, apperror.KindTimeout, apperror.KindRateLimitExceeded:
		return true
	case apperror.KindFulfillmentAPI, apperror.KindMarketplaceAPI:
		return ce.Retryable
	}
	return false
}

func endSpan(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if ce, ok := apperror.As(err); ok {
		span.SetAttributes(attribute.String("error.kind", string(ce.Kind)))
	}
}
