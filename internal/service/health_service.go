package service

import (
	"context"
	"time"

	"order-sync-gateway/internal/core/domain"
	"order-sync-gateway/internal/core/ports"
	"order-sync-gateway/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// HealthServiceImpl implements ports.HealthService. Infrastructure checkers
// (database, cache) are judged by reachability alone; upstream dependencies
// also take the breaker state and trailing error rate into account.
type HealthServiceImpl struct {
	infra    []ports.HealthChecker
	upstream []ports.HealthChecker
	metrics  *metrics.Store
	timeout  time.Duration
}

// NewHealthService creates a new HealthServiceImpl.
func NewHealthService(infra, upstream []ports.HealthChecker, store *metrics.Store, timeout time.Duration) *HealthServiceImpl {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HealthServiceImpl{
		infra:    infra,
		upstream: upstream,
		metrics:  store,
		timeout:  timeout,
	}
}

// Check pings every component in parallel and aggregates worst-of.
func (s *HealthServiceImpl) Check(ctx context.Context) domain.HealthReport {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	components := make([]domain.ComponentHealth, len(s.infra)+len(s.upstream))
	var g errgroup.Group

	for i, c := range s.infra {
		g.Go(func() error {
			components[i] = ping(ctx, c)
			return nil
		})
	}
	for i, c := range s.upstream {
		g.Go(func() error {
			h := ping(ctx, c)
			if h.Status == domain.HealthHealthy {
				h.Status, h.Message = s.metrics.DependencyHealth(c.Name())
			}
			components[len(s.infra)+i] = h
			return nil
		})
	}
	_ = g.Wait()

	return domain.NewHealthReport(components)
}

func ping(ctx context.Context, c ports.HealthChecker) domain.ComponentHealth {
	if err := c.Ping(ctx); err != nil {
		return domain.ComponentHealth{Name: c.Name(), Status: domain.HealthUnhealthy, Message: err.Error()}
	}
	return domain.ComponentHealth{Name: c.Name(), Status: domain.HealthHealthy}
}
