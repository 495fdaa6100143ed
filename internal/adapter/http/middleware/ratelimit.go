package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisStore "order-sync-gateway/internal/adapter/storage/redis"
	"order-sync-gateway/pkg/apperror"
	"order-sync-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// LimitStore counts requests per key in fixed windows.
type LimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// Endpoint groups with their own inbound counters.
const (
	GroupOrders        = "orders"
	GroupTracking      = "tracking"
	GroupSubscriptions = "subscriptions"
	GroupMonitoring    = "monitoring"
)

// DefaultRateLimitRules applies base to every ingest group. Read-only
// monitoring gets twice the budget since dashboards poll it.
func DefaultRateLimitRules(base RateLimitRule) map[string]RateLimitRule {
	return map[string]RateLimitRule{
		GroupOrders:        base,
		GroupTracking:      base,
		GroupSubscriptions: base,
		GroupMonitoring:    {Limit: base.Limit * 2, Window: base.Window},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// When the store is unreachable requests are let through.
func RateLimiter(store LimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", c.ClientIP(), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			logger.FromContext(c.Request.Context(), log).Warn().Err(err).Str("group", group).
				Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			_ = c.Error(apperror.RateLimitExceeded("inbound:"+group, result.RetryAfter(time.Now())))
			c.Abort()
			return
		}

		c.Next()
	}
}
