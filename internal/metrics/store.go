// Package metrics aggregates error outcomes, outbound call results and
// circuit breaker states for the monitoring and health endpoints.
package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"order-sync-gateway/internal/core/domain"
	"order-sync-gateway/pkg/apperror"

	"github.com/prometheus/client_golang/prometheus"
)

// Error sources.
const (
	SourcePipeline = "pipeline"
	SourceHTTP     = "http"
	SourceOutbound = "outbound"
)

// Config configures a Store.
type Config struct {
	SampleCapacity     int
	ErrorRateWindow    time.Duration
	DegradedErrorRate  float64
	UnhealthyErrorRate float64
	// Namespace prefixes Prometheus metric names.
	Namespace string
	// Registerer receives the Prometheus mirror; nil disables it.
	Registerer prometheus.Registerer
	// Now defaults to time.Now.
	Now func() time.Time
}

// ErrorSample is one entry of the recent-errors ring buffer.
type ErrorSample struct {
	Kind          apperror.Kind `json:"kind"`
	Message       string        `json:"message"`
	Source        string        `json:"source"`
	Dependency    string        `json:"dependency,omitempty"`
	OrderID       string        `json:"order_id,omitempty"`
	CorrelationID string        `json:"correlation_id,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// CallStats counts outbound attempts for one dependency operation.
type CallStats struct {
	Dependency string `json:"dependency"`
	Operation  string `json:"operation"`
	Attempts   int64  `json:"attempts"`
	Failures   int64  `json:"failures"`
}

type callKey struct{ dependency, operation string }

// second is one bucket of the trailing error-rate window.
type second struct {
	unix     int64
	calls    int64
	failures int64
}

// Store is the process-wide metrics aggregator. It is constructed once and
// injected; each concern has its own lock so writers rarely contend.
type Store struct {
	cfg  Config
	now  func() time.Time
	prom *promMirror

	countsMu     sync.Mutex
	byKind       map[apperror.Kind]int64
	byDependency map[string]int64
	calls        map[callKey]*CallStats
	transitions  map[domain.ProcessingStatus]int64
	rateLimited  map[string]int64
	delivered    int64
	undelivered  int64

	breakerMu sync.RWMutex
	breakers  map[string]string

	statsMu sync.RWMutex
	stats   map[string]func() any

	samplesMu sync.Mutex
	samples   []ErrorSample
	next      int
	filled    bool

	windowMu sync.Mutex
	window   map[string][]second // per dependency
}

// NewStore creates an empty Store.
func NewStore(cfg Config) *Store {
	if cfg.SampleCapacity < 1 {
		cfg.SampleCapacity = 100
	}
	if cfg.ErrorRateWindow <= 0 {
		cfg.ErrorRateWindow = 5 * time.Minute
	}
	if cfg.DegradedErrorRate <= 0 {
		cfg.DegradedErrorRate = 0.1
	}
	if cfg.UnhealthyErrorRate <= 0 {
		cfg.UnhealthyErrorRate = 0.5
	}
	s := &Store{cfg: cfg, now: cfg.Now, stats: make(map[string]func() any)}
	if s.now == nil {
		s.now = time.Now
	}
	if cfg.Registerer != nil {
		s.prom = newPromMirror(cfg.Namespace, cfg.Registerer)
	}
	s.reset()
	return s
}

// Reset clears every counter, sample and breaker state.
func (s *Store) Reset() {
	s.reset()
	if s.prom != nil {
		s.prom.reset()
	}
}

func (s *Store) reset() {
	s.countsMu.Lock()
	s.byKind = make(map[apperror.Kind]int64)
	s.byDependency = make(map[string]int64)
	s.calls = make(map[callKey]*CallStats)
	s.transitions = make(map[domain.ProcessingStatus]int64)
	s.rateLimited = make(map[string]int64)
	s.delivered, s.undelivered = 0, 0
	s.countsMu.Unlock()

	s.breakerMu.Lock()
	s.breakers = make(map[string]string)
	s.breakerMu.Unlock()

	s.samplesMu.Lock()
	s.samples = make([]ErrorSample, s.cfg.SampleCapacity)
	s.next, s.filled = 0, false
	s.samplesMu.Unlock()

	s.windowMu.Lock()
	s.window = make(map[string][]second)
	s.windowMu.Unlock()
}

// RecordError counts err by kind and dependency and keeps it as a sample.
func (s *Store) RecordError(source string, err error, orderID, correlationID string) {
	if err == nil {
		return
	}
	ce := apperror.From(err)

	s.countsMu.Lock()
	s.byKind[ce.Kind]++
	if ce.Dependency != "" {
		s.byDependency[ce.Dependency]++
	}
	s.countsMu.Unlock()

	s.samplesMu.Lock()
	s.samples[s.next] = ErrorSample{
		Kind:          ce.Kind,
		Message:       ce.Message,
		Source:        source,
		Dependency:    ce.Dependency,
		OrderID:       orderID,
		CorrelationID: correlationID,
		Timestamp:     s.now().UTC(),
	}
	s.next = (s.next + 1) % len(s.samples)
	if s.next == 0 {
		s.filled = true
	}
	s.samplesMu.Unlock()

	if s.prom != nil {
		s.prom.errorsTotal.WithLabelValues(string(ce.Kind), source, ce.Dependency).Inc()
	}
}

// RecordCall counts one outbound attempt. failed marks results that reflect
// dependency ill-health; they feed the trailing error rate.
func (s *Store) RecordCall(dependency, operation string, latency time.Duration, failed bool) {
	k := callKey{dependency, operation}

	s.countsMu.Lock()
	cs, ok := s.calls[k]
	if !ok {
		cs = &CallStats{Dependency: dependency, Operation: operation}
		s.calls[k] = cs
	}
	cs.Attempts++
	if failed {
		cs.Failures++
	}
	s.countsMu.Unlock()

	now := s.now().Unix()
	s.windowMu.Lock()
	buckets := s.prune(dependency, now)
	if n := len(buckets); n > 0 && buckets[n-1].unix == now {
		buckets[n-1].calls++
		if failed {
			buckets[n-1].failures++
		}
	} else {
		b := second{unix: now, calls: 1}
		if failed {
			b.failures = 1
		}
		buckets = append(buckets, b)
	}
	s.window[dependency] = buckets
	s.windowMu.Unlock()

	if s.prom != nil {
		result := "success"
		if failed {
			result = "failure"
		}
		s.prom.callsTotal.WithLabelValues(dependency, operation, result).Inc()
		s.prom.callDuration.WithLabelValues(dependency, operation).Observe(latency.Seconds())
	}
}

// RecordRateLimited counts a token acquisition that timed out.
func (s *Store) RecordRateLimited(dependency string) {
	s.countsMu.Lock()
	s.rateLimited[dependency]++
	s.countsMu.Unlock()

	if s.prom != nil {
		s.prom.rateLimitRejections.WithLabelValues(dependency).Inc()
	}
}

// RecordTransition counts a SyncRecord entering status to.
func (s *Store) RecordTransition(to domain.ProcessingStatus) {
	s.countsMu.Lock()
	s.transitions[to]++
	s.countsMu.Unlock()

	if s.prom != nil {
		s.prom.transitionsTotal.WithLabelValues(string(to)).Inc()
	}
}

// RecordWebhookDelivery counts one delivery attempt.
func (s *Store) RecordWebhookDelivery(kind domain.WebhookEventKind, delivered bool) {
	s.countsMu.Lock()
	if delivered {
		s.delivered++
	} else {
		s.undelivered++
	}
	s.countsMu.Unlock()

	if s.prom != nil {
		result := "delivered"
		if !delivered {
			result = "failed"
		}
		s.prom.webhookDeliveries.WithLabelValues(string(kind), result).Inc()
	}
}

// RegisterBreaker records the initial state of a dependency's breaker.
func (s *Store) RegisterBreaker(dependency, state string) {
	s.setBreaker(dependency, state)
}

// OnBreakerStateChange is the breaker listener. State names are passed as
// strings to keep this package independent of the breaker.
func (s *Store) OnBreakerStateChange(dependency, from, to string) {
	s.setBreaker(dependency, to)
}

func (s *Store) setBreaker(dependency, state string) {
	s.breakerMu.Lock()
	s.breakers[dependency] = state
	s.breakerMu.Unlock()

	if s.prom != nil {
		s.prom.breakerState.WithLabelValues(dependency).Set(breakerGauge(state))
	}
}

// RegisterDependencyStats adds a live stats source reported under dependency
// in Snapshot. Sources survive Reset and are read without any store lock
// held.
func (s *Store) RegisterDependencyStats(dependency string, fn func() any) {
	s.statsMu.Lock()
	s.stats[dependency] = fn
	s.statsMu.Unlock()
}

// BreakerState returns the last recorded state for dependency.
func (s *Store) BreakerState(dependency string) string {
	s.breakerMu.RLock()
	defer s.breakerMu.RUnlock()
	return s.breakers[dependency]
}

// Calls returns attempt counts for one dependency operation.
func (s *Store) Calls(dependency, operation string) CallStats {
	s.countsMu.Lock()
	defer s.countsMu.Unlock()
	if cs, ok := s.calls[callKey{dependency, operation}]; ok {
		return *cs
	}
	return CallStats{Dependency: dependency, Operation: operation}
}

// ErrorCount returns how many errors of kind were recorded.
func (s *Store) ErrorCount(kind apperror.Kind) int64 {
	s.countsMu.Lock()
	defer s.countsMu.Unlock()
	return s.byKind[kind]
}

// prune drops buckets older than the window. Caller holds windowMu.
func (s *Store) prune(dependency string, now int64) []second {
	buckets := s.window[dependency]
	cutoff := now - int64(s.cfg.ErrorRateWindow/time.Second)
	i := 0
	for i < len(buckets) && buckets[i].unix <= cutoff {
		i++
	}
	return buckets[i:]
}

// ErrorRate returns failures/calls for dependency over the trailing window,
// or across all dependencies when dependency is "".
func (s *Store) ErrorRate(dependency string) (rate float64, calls int64) {
	now := s.now().Unix()
	s.windowMu.Lock()
	defer s.windowMu.Unlock()

	var failures int64
	for dep := range s.window {
		if dependency != "" && dep != dependency {
			continue
		}
		buckets := s.prune(dep, now)
		s.window[dep] = buckets
		for _, b := range buckets {
			calls += b.calls
			failures += b.failures
		}
	}
	if calls == 0 {
		return 0, 0
	}
	return float64(failures) / float64(calls), calls
}

// DependencyHealth derives a health level from breaker state and the
// trailing error rate.
func (s *Store) DependencyHealth(dependency string) (domain.HealthStatus, string) {
	switch s.BreakerState(dependency) {
	case "OPEN":
		return domain.HealthUnhealthy, "circuit open"
	case "HALF_OPEN":
		return domain.HealthDegraded, "circuit half-open"
	}
	rate, calls := s.ErrorRate(dependency)
	switch {
	case calls == 0:
		return domain.HealthHealthy, ""
	case rate >= s.cfg.UnhealthyErrorRate:
		return domain.HealthUnhealthy, fmt.Sprintf("error rate %.0f%% over %s", rate*100, s.cfg.ErrorRateWindow)
	case rate >= s.cfg.DegradedErrorRate:
		return domain.HealthDegraded, fmt.Sprintf("error rate %.0f%% over %s", rate*100, s.cfg.ErrorRateWindow)
	}
	return domain.HealthHealthy, ""
}

// RecentErrors returns the ring buffer contents, newest first.
func (s *Store) RecentErrors() []ErrorSample {
	s.samplesMu.Lock()
	defer s.samplesMu.Unlock()

	n := s.next
	if s.filled {
		n = len(s.samples)
	}
	out := make([]ErrorSample, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.next - i + len(s.samples)) % len(s.samples)
		out = append(out, s.samples[idx])
	}
	return out
}

// Snapshot is the monitoring endpoint payload.
type Snapshot struct {
	GeneratedAt        time.Time           `json:"generated_at"`
	ErrorsByKind       map[string]int64    `json:"errors_by_kind"`
	ErrorsByDependency map[string]int64    `json:"errors_by_dependency"`
	Calls              []CallStats         `json:"calls"`
	RateLimited        map[string]int64    `json:"rate_limited"`
	Breakers           map[string]string   `json:"circuit_breakers"`
	Dependencies       map[string]any      `json:"dependencies"`
	Transitions        map[string]int64    `json:"transitions"`
	Webhooks           WebhookStats        `json:"webhooks"`
	ErrorRate          float64             `json:"error_rate"`
	ErrorRateWindow    string              `json:"error_rate_window"`
	Health             domain.HealthStatus `json:"health"`
	RecentErrors       []ErrorSample       `json:"recent_errors"`
}

// WebhookStats counts webhook delivery attempts.
type WebhookStats struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

// Snapshot returns a consistent-per-concern copy of all metrics.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		GeneratedAt:        s.now().UTC(),
		ErrorsByKind:       make(map[string]int64),
		ErrorsByDependency: make(map[string]int64),
		RateLimited:        make(map[string]int64),
		Breakers:           make(map[string]string),
		Dependencies:       make(map[string]any),
		Transitions:        make(map[string]int64),
		ErrorRateWindow:    s.cfg.ErrorRateWindow.String(),
	}

	// Sources may report a breaker state change back into the store.
	s.statsMu.RLock()
	sources := make(map[string]func() any, len(s.stats))
	for dep, fn := range s.stats {
		sources[dep] = fn
	}
	s.statsMu.RUnlock()
	for dep, fn := range sources {
		snap.Dependencies[dep] = fn()
	}

	s.countsMu.Lock()
	for k, v := range s.byKind {
		snap.ErrorsByKind[string(k)] = v
	}
	for k, v := range s.byDependency {
		snap.ErrorsByDependency[k] = v
	}
	for _, cs := range s.calls {
		snap.Calls = append(snap.Calls, *cs)
	}
	for k, v := range s.rateLimited {
		snap.RateLimited[k] = v
	}
	for k, v := range s.transitions {
		snap.Transitions[string(k)] = v
	}
	snap.Webhooks = WebhookStats{Delivered: s.delivered, Failed: s.undelivered}
	s.countsMu.Unlock()

	sort.Slice(snap.Calls, func(i, j int) bool {
		if snap.Calls[i].Dependency != snap.Calls[j].Dependency {
			return snap.Calls[i].Dependency < snap.Calls[j].Dependency
		}
		return snap.Calls[i].Operation < snap.Calls[j].Operation
	})

	s.breakerMu.RLock()
	deps := make([]string, 0, len(s.breakers))
	for k, v := range s.breakers {
		snap.Breakers[k] = v
		deps = append(deps, k)
	}
	s.breakerMu.RUnlock()

	snap.ErrorRate, _ = s.ErrorRate("")
	snap.Health = domain.HealthHealthy
	for _, dep := range deps {
		h, _ := s.DependencyHealth(dep)
		snap.Health = snap.Health.Worst(h)
	}
	snap.RecentErrors = s.RecentErrors()
	return snap
}
