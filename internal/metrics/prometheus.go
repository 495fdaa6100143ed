package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metric names.
const (
	MetricErrorsTotal         = "errors_total"
	MetricCallsTotal          = "outbound_calls_total"
	MetricCallDuration        = "outbound_call_duration_seconds"
	MetricBreakerState        = "circuit_breaker_state"
	MetricTransitionsTotal    = "sync_transitions_total"
	MetricWebhookDeliveries   = "webhook_deliveries_total"
	MetricRateLimitRejections = "rate_limit_rejections_total"
)

// promMirror mirrors Store writes into Prometheus collectors.
type promMirror struct {
	errorsTotal         *prometheus.CounterVec
	callsTotal          *prometheus.CounterVec
	callDuration        *prometheus.HistogramVec
	breakerState        *prometheus.GaugeVec
	transitionsTotal    *prometheus.CounterVec
	webhookDeliveries   *prometheus.CounterVec
	rateLimitRejections *prometheus.CounterVec
}

func newPromMirror(namespace string, reg prometheus.Registerer) *promMirror {
	m := &promMirror{
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricErrorsTotal,
			Help:      "Errors recorded by kind and source.",
		}, []string{"kind", "source", "dependency"}),
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricCallsTotal,
			Help:      "Outbound call attempts by dependency, operation and result.",
		}, []string{"dependency", "operation", "result"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      MetricCallDuration,
			Help:      "Outbound call latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"dependency", "operation"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      MetricBreakerState,
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open).",
		}, []string{"dependency"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricTransitionsTotal,
			Help:      "Sync record transitions by target status.",
		}, []string{"to"}),
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricWebhookDeliveries,
			Help:      "Webhook delivery attempts by event kind and result.",
		}, []string{"event", "result"}),
		rateLimitRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricRateLimitRejections,
			Help:      "Outbound token acquisitions that hit their deadline.",
		}, []string{"dependency"}),
	}
	reg.MustRegister(
		m.errorsTotal,
		m.callsTotal,
		m.callDuration,
		m.breakerState,
		m.transitionsTotal,
		m.webhookDeliveries,
		m.rateLimitRejections,
	)
	return m
}

func (m *promMirror) reset() {
	m.errorsTotal.Reset()
	m.callsTotal.Reset()
	m.callDuration.Reset()
	m.breakerState.Reset()
	m.transitionsTotal.Reset()
	m.webhookDeliveries.Reset()
	m.rateLimitRejections.Reset()
}

func breakerGauge(state string) float64 {
	switch state {
	case "OPEN":
		return 1
	case "HALF_OPEN":
		return 2
	default:
		return 0
	}
}
