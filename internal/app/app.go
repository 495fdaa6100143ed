// Package app wires configuration, storage, upstream clients and services
// into a runnable gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"order-sync-gateway/config"
	"order-sync-gateway/internal/adapter/client"
	httpHandler "order-sync-gateway/internal/adapter/http/handler"
	"order-sync-gateway/internal/adapter/http/middleware"
	"order-sync-gateway/internal/core/ports"
	"order-sync-gateway/internal/metrics"
	"order-sync-gateway/internal/resilience"
	"order-sync-gateway/internal/service"
	"order-sync-gateway/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout    = 10 * time.Second
	healthCheckTimeout = 2 * time.Second
)

// App is a fully wired gateway.
type App struct {
	Router   *gin.Engine
	Server   *http.Server
	Sync     *service.OrderSyncServiceImpl
	Webhooks *service.WebhookServiceImpl
	Poller   *service.TrackingPoller // nil when tracking polling is disabled
	Metrics  *metrics.Store
	Registry *prometheus.Registry

	telemetry *telemetry.Provider
	storage   *Storage
	log       zerolog.Logger
}

// New builds the gateway on top of st. The App owns st from here on.
func New(cfg *config.Config, st *Storage, log zerolog.Logger) (*App, error) {
	tp, err := telemetry.Setup(telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	tracer := tp.Tracer("order-sync-gateway")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	store := metrics.NewStore(metrics.Config{
		SampleCapacity:     cfg.Metrics.SampleCapacity,
		ErrorRateWindow:    cfg.Metrics.ErrorRateWindow,
		DegradedErrorRate:  cfg.Metrics.DegradedErrorRate,
		UnhealthyErrorRate: cfg.Metrics.UnhealthyErrorRate,
		Namespace:          "order_sync",
		Registerer:         reg,
	})

	httpClient := &http.Client{}
	fulfillment := client.NewFulfillmentClient(cfg.Fulfillment,
		resilience.NewGuard("fulfillment", cfg.Fulfillment, store, tracer, log), httpClient)
	marketplace := client.NewMarketplaceClient(cfg.Marketplace,
		resilience.NewGuard("marketplace", cfg.Marketplace, store, tracer, log), httpClient)

	webhooks := service.NewWebhookService(
		st.Subs,
		st.Deliveries,
		service.NewHMACSignatureService(),
		httpClient,
		store,
		service.NewWebhookConfig(cfg.Webhooks),
		log,
	)
	syncSvc := service.NewOrderSyncService(
		st.Records,
		fulfillment,
		marketplace,
		st.Lock,
		webhooks,
		store,
		tracer,
		service.NewOrderSyncConfig(cfg),
		log,
	)
	health := service.NewHealthService(
		st.Checkers,
		[]ports.HealthChecker{fulfillment, marketplace},
		store,
		healthCheckTimeout,
	)

	var poller *service.TrackingPoller
	if cfg.Tracking.Enabled {
		poller = service.NewTrackingPoller(syncSvc, cfg.Tracking.PollInterval, log)
	}

	var tracing trace.TracerProvider
	if cfg.Telemetry.Enabled {
		tracing = tp.TracerProvider()
	}
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		OrderSyncSvc:   syncSvc,
		WebhookSvc:     webhooks,
		HealthSvc:      health,
		Metrics:        store,
		Gatherer:       reg,
		TracerProvider: tracing,
		RateLimitStore: st.Limits,
		RateLimit: middleware.RateLimitRule{
			Limit:  int64(cfg.Server.RateLimit),
			Window: cfg.Server.RateLimitWindow,
		},
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		ServiceName:    cfg.Telemetry.ServiceName,
		Logger:         log,
	})

	return &App{
		Router: router,
		Server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		Sync:      syncSvc,
		Webhooks:  webhooks,
		Poller:    poller,
		Metrics:   store,
		Registry:  reg,
		telemetry: tp,
		storage:   st,
		log:       log,
	}, nil
}

// Run serves HTTP and runs the webhook dispatcher and tracking poller until
// ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.Webhooks.Run(gctx) })
	if a.Poller != nil {
		g.Go(func() error { return a.Poller.Run(gctx) })
	}
	g.Go(func() error {
		a.log.Info().Str("addr", a.Server.Addr).Msg("HTTP server listening")
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close flushes traces and releases storage.
func (a *App) Close(ctx context.Context) {
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.log.Error().Err(err).Msg("telemetry shutdown failed")
	}
	a.storage.Close()
}
