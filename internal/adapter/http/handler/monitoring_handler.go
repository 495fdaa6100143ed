package handler

import (
	"net/http"

	"order-sync-gateway/internal/core/domain"
	"order-sync-gateway/internal/core/ports"
	"order-sync-gateway/internal/metrics"
	"order-sync-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MonitoringHandler exposes the metrics store, Prometheus and health.
type MonitoringHandler struct {
	store    *metrics.Store
	health   ports.HealthService
	gatherer prometheus.Gatherer
}

// NewMonitoringHandler creates a new MonitoringHandler. A nil gatherer serves
// the default Prometheus registry.
func NewMonitoringHandler(store *metrics.Store, health ports.HealthService, gatherer prometheus.Gatherer) *MonitoringHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &MonitoringHandler{store: store, health: health, gatherer: gatherer}
}

// Errors handles GET /api/v1/monitoring/errors.
func (h *MonitoringHandler) Errors(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	response.OK(c, h.store.Snapshot())
}

// Health handles GET /health. Degraded answers 200, unhealthy 503.
func (h *MonitoringHandler) Health(c *gin.Context) {
	report := h.health.Check(c.Request.Context())

	status := http.StatusOK
	if report.Status == domain.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.Header("Cache-Control", "no-store")
	response.JSON(c, status, report)
}

// Metrics handles GET /metrics.
func (h *MonitoringHandler) Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}
