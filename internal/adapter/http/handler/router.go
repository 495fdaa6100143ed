package handler

import (
	"time"

	"order-sync-gateway/internal/adapter/http/dto"
	"order-sync-gateway/internal/adapter/http/middleware"
	"order-sync-gateway/internal/core/ports"
	"order-sync-gateway/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	OrderSyncSvc   ports.OrderSyncService
	WebhookSvc     ports.WebhookService
	HealthSvc      ports.HealthService
	Metrics        *metrics.Store
	Gatherer       prometheus.Gatherer   // nil = default registry
	TracerProvider trace.TracerProvider  // nil = tracing disabled
	RateLimitStore middleware.LimitStore // nil = rate limiting disabled
	RateLimit      middleware.RateLimitRule
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	ServiceName    string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	if deps.TracerProvider != nil {
		r.Use(otelgin.Middleware(deps.ServiceName, otelgin.WithTracerProvider(deps.TracerProvider)))
	}
	r.Use(middleware.Correlation(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.ErrorHandler(deps.Metrics, deps.Logger))
	r.Use(middleware.Recovery(deps.Logger))
	if deps.MaxBodyBytes > 0 {
		r.Use(middleware.MaxBodySize(deps.MaxBodyBytes))
	}

	monitoring := NewMonitoringHandler(deps.Metrics, deps.HealthSvc, deps.Gatherer)
	r.GET("/health", monitoring.Health)
	r.GET("/metrics", monitoring.Metrics())

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules(deps.RateLimit)

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok || rule.Limit <= 0 {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}
	timeout := middleware.Timeout(deps.RequestTimeout)

	v1 := r.Group("/api/v1")

	orderHandler := NewOrderHandler(deps.OrderSyncSvc)
	webhookHandler := NewWebhookHandler(deps.WebhookSvc)
	orders := v1.Group("/orders", rl(middleware.GroupOrders))
	{
		orders.POST("", middleware.ValidateJSON[dto.OrderRequest](), timeout, orderHandler.Submit)
		orders.GET("", middleware.ValidateQuery[dto.ListOrdersQuery](), timeout, orderHandler.List)
		orders.GET("/:order_id", timeout, orderHandler.Get)
		orders.POST("/:order_id/reprocess", timeout, orderHandler.Reprocess)
		orders.GET("/:order_id/deliveries", timeout, webhookHandler.ListDeliveries)
	}

	trackingHandler := NewTrackingHandler(deps.OrderSyncSvc)
	v1.POST("/tracking", rl(middleware.GroupTracking),
		middleware.ValidateJSON[dto.TrackingRequest](), timeout, trackingHandler.Push)

	subs := v1.Group("/webhooks/subscriptions", rl(middleware.GroupSubscriptions))
	{
		subs.POST("", middleware.ValidateJSON[dto.SubscriptionRequest](), timeout, webhookHandler.CreateSubscription)
		subs.GET("", timeout, webhookHandler.ListSubscriptions)
		subs.DELETE("/:id", timeout, webhookHandler.DeleteSubscription)
	}

	v1.GET("/monitoring/errors", rl(middleware.GroupMonitoring), monitoring.Errors)

	return r
}
