package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"order-sync-gateway/config"
	"order-sync-gateway/internal/core/domain"
	"order-sync-gateway/internal/core/ports"
	"order-sync-gateway/internal/metrics"
	"order-sync-gateway/pkg/apperror"
	"order-sync-gateway/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Webhook request headers.
const (
	HeaderWebhookSignature = "X-Webhook-Signature"
	HeaderWebhookEvent     = "X-Webhook-Event"
	HeaderWebhookID        = "X-Webhook-ID"
	HeaderCorrelationID    = "X-Correlation-ID"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookConfig configures the dispatcher.
type WebhookConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	// RetryIntervals are the waits before the 2nd, 3rd... attempt.
	RetryIntervals []time.Duration
	// Subscribers are registered from configuration and cannot be deleted.
	Subscribers []domain.WebhookSubscription
}

// NewWebhookConfig derives dispatcher settings from application config.
// Static subscribers get an ID derived from their URL so it is stable
// across restarts.
func NewWebhookConfig(cfg config.WebhookConfig) WebhookConfig {
	subs := make([]domain.WebhookSubscription, 0, len(cfg.Subscribers))
	for _, sc := range cfg.Subscribers {
		kinds := make([]domain.WebhookEventKind, 0, len(sc.Events))
		for _, e := range sc.Events {
			kinds = append(kinds, domain.WebhookEventKind(e))
		}
		subs = append(subs, domain.WebhookSubscription{
			ID:         uuid.NewSHA1(uuid.NameSpaceURL, []byte(sc.URL)),
			URL:        sc.URL,
			Secret:     sc.Secret,
			EventKinds: kinds,
			Active:     true,
			Static:     true,
		})
	}
	return WebhookConfig{
		Workers:        cfg.Workers,
		QueueSize:      cfg.QueueSize,
		Timeout:        cfg.Timeout,
		RetryIntervals: cfg.RetryIntervals,
		Subscribers:    subs,
	}
}

// WebhookServiceImpl implements ports.WebhookService. Published events are
// queued on a bounded channel and delivered by a fixed pool of workers.
type WebhookServiceImpl struct {
	subs       ports.WebhookSubscriptionRepository
	deliveries ports.WebhookDeliveryRepository
	sigSvc     ports.SignatureService
	httpClient HTTPClient
	metrics    *metrics.Store
	cfg        WebhookConfig
	queue      chan domain.WebhookEvent
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	log        zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewWebhookService creates a new webhook dispatcher. Call Run to start
// delivering.
func NewWebhookService(
	subs ports.WebhookSubscriptionRepository,
	deliveries ports.WebhookDeliveryRepository,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	store *metrics.Store,
	cfg WebhookConfig,
	log zerolog.Logger,
) *WebhookServiceImpl {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &WebhookServiceImpl{
		subs:       subs,
		deliveries: deliveries,
		sigSvc:     sigSvc,
		httpClient: httpClient,
		metrics:    store,
		cfg:        cfg,
		queue:      make(chan domain.WebhookEvent, cfg.QueueSize),
		sleep:      sleepCtx,
		now:        time.Now,
		log:        log.With().Str("worker", "webhook_dispatcher").Logger(),
	}
}

// Publish queues event for delivery. It never blocks: when the queue is full
// or the dispatcher has stopped, the event is dropped and counted as an
// undelivered webhook.
func (s *WebhookServiceImpl) Publish(ctx context.Context, event domain.WebhookEvent) {
	if event.CorrelationID == "" {
		event.CorrelationID = logger.CorrelationID(ctx)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop(event, "dispatcher stopped")
		return
	}
	select {
	case s.queue <- event:
	default:
		s.drop(event, "queue full")
	}
}

func (s *WebhookServiceImpl) drop(event domain.WebhookEvent, reason string) {
	s.metrics.RecordWebhookDelivery(event.Kind, false)
	s.log.Warn().
		Str("event_id", event.ID.String()).
		Str("kind", string(event.Kind)).
		Str("order_id", event.OrderID).
		Str("reason", reason).
		Msg("webhook event dropped")
}

// Run starts the worker pool and blocks until ctx is done and the queued
// events have been handed to workers. Deliveries still waiting between
// retries are abandoned on shutdown.
func (s *WebhookServiceImpl) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.work(ctx, id)
		}(i)
	}
	s.log.Info().Int("workers", s.cfg.Workers).Int("queue_size", s.cfg.QueueSize).Msg("webhook dispatcher started")

	<-ctx.Done()
	s.mu.Lock()
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	wg.Wait()
	s.log.Info().Msg("webhook dispatcher stopped")
	return nil
}

func (s *WebhookServiceImpl) work(ctx context.Context, id int) {
	for event := range s.queue {
		if ctx.Err() != nil {
			s.drop(event, "dispatcher stopped")
			continue
		}
		s.dispatch(ctx, event)
	}
	s.log.Debug().Int("worker_id", id).Msg("webhook worker exited")
}

// dispatch delivers event to every matching subscriber.
func (s *WebhookServiceImpl) dispatch(ctx context.Context, event domain.WebhookEvent) {
	subs, err := s.subscribers(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("webhook: failed to load subscribers")
		s.metrics.RecordWebhookDelivery(event.Kind, false)
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", event.ID.String()).Msg("webhook: failed to marshal event")
		return
	}

	for _, sub := range subs {
		if sub.Matches(event.Kind) {
			s.deliver(ctx, event, sub, body)
		}
	}
}

// deliver posts body to sub, retrying on transport errors and non-2xx
// responses. Every attempt is written to the delivery log.
func (s *WebhookServiceImpl) deliver(ctx context.Context, event domain.WebhookEvent, sub domain.WebhookSubscription, body []byte) {
	log := s.log.With().
		Str("event_id", event.ID.String()).
		Str("kind", string(event.Kind)).
		Str("order_id", event.OrderID).
		Str("url", sub.URL).
		Logger()

	now := s.now().UTC()
	entry := &domain.WebhookDeliveryLog{
		ID:             uuid.New(),
		EventID:        event.ID,
		EventKind:      event.Kind,
		SubscriptionID: sub.ID,
		OrderID:        event.OrderID,
		WebhookURL:     sub.URL,
		Payload:        string(body),
		Status:         domain.WebhookStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.deliveries.Create(ctx, entry); err != nil {
		log.Warn().Err(err).Msg("webhook: failed to create delivery log")
	}

	maxAttempts := len(s.cfg.RetryIntervals) + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := s.sleep(ctx, s.cfg.RetryIntervals[attempt-2]); err != nil {
				break
			}
		}

		status, err := s.send(ctx, event, sub, body)
		entry.Attempt = attempt
		entry.UpdatedAt = s.now().UTC()
		if status > 0 {
			code := status
			entry.HTTPStatus = &code
		}

		if err == nil {
			entry.Status = domain.WebhookStatusDelivered
			entry.LastError = nil
			entry.NextRetryAt = nil
			s.updateLog(ctx, entry, log)
			s.metrics.RecordWebhookDelivery(event.Kind, true)
			log.Info().Int("attempt", attempt).Int("status", status).Msg("webhook: delivered successfully")
			return
		}

		msg := err.Error()
		entry.LastError = &msg
		if attempt < maxAttempts {
			next := entry.UpdatedAt.Add(s.cfg.RetryIntervals[attempt-1])
			entry.NextRetryAt = &next
		} else {
			entry.NextRetryAt = nil
		}
		s.updateLog(ctx, entry, log)
		log.Warn().Err(err).Int("attempt", attempt).Msg("webhook: delivery failed")
	}

	entry.Status = domain.WebhookStatusFailed
	entry.NextRetryAt = nil
	entry.UpdatedAt = s.now().UTC()
	s.updateLog(ctx, entry, log)
	s.metrics.RecordWebhookDelivery(event.Kind, false)
	log.Error().Int("attempts", entry.Attempt).Msg("webhook: all retry attempts exhausted")
}

func (s *WebhookServiceImpl) updateLog(ctx context.Context, entry *domain.WebhookDeliveryLog, log zerolog.Logger) {
	if err := s.deliveries.Update(context.WithoutCancel(ctx), entry); err != nil {
		log.Warn().Err(err).Msg("webhook: failed to update delivery log")
	}
}

// send performs one signed POST and returns the response status.
func (s *WebhookServiceImpl) send(ctx context.Context, event domain.WebhookEvent, sub domain.WebhookSubscription, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderWebhookEvent, string(event.Kind))
	req.Header.Set(HeaderWebhookID, event.ID.String())
	req.Header.Set(HeaderWebhookSignature, s.sigSvc.Sign(sub.Secret, string(body)))
	if event.CorrelationID != "" {
		req.Header.Set(HeaderCorrelationID, event.CorrelationID)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("subscriber responded %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// subscribers returns static subscribers followed by active registered ones.
func (s *WebhookServiceImpl) subscribers(ctx context.Context) ([]domain.WebhookSubscription, error) {
	registered, err := s.subs.List(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]domain.WebhookSubscription, 0, len(s.cfg.Subscribers)+len(registered))
	out = append(out, s.cfg.Subscribers...)
	return append(out, registered...), nil
}

// CreateSubscription registers a new subscriber endpoint.
func (s *WebhookServiceImpl) CreateSubscription(ctx context.Context, req ports.CreateSubscriptionRequest) (*domain.WebhookSubscription, error) {
	var violations []apperror.Violation
	if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		violations = append(violations, apperror.Violation{Field: "url", Rule: "url", Message: "url must be an absolute http(s) URL"})
	}
	if req.Secret == "" {
		violations = append(violations, apperror.Violation{Field: "secret", Rule: "required", Message: "secret is required"})
	}
	for _, k := range req.EventKinds {
		if !k.IsValid() {
			violations = append(violations, apperror.Violation{Field: "events", Rule: "oneof", Message: fmt.Sprintf("unknown event kind %q", k)})
		}
	}
	if len(violations) > 0 {
		return nil, apperror.Validation(violations...)
	}

	sub := &domain.WebhookSubscription{
		ID:         uuid.New(),
		URL:        req.URL,
		Secret:     req.Secret,
		EventKinds: req.EventKinds,
		Active:     true,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, apperror.Internal(fmt.Errorf("create webhook subscription: %w", err))
	}

	s.log.Info().Str("subscription_id", sub.ID.String()).Str("url", sub.URL).Msg("webhook subscription created")
	return sub, nil
}

// ListSubscriptions returns static and registered subscribers.
func (s *WebhookServiceImpl) ListSubscriptions(ctx context.Context) ([]domain.WebhookSubscription, error) {
	registered, err := s.subs.List(ctx, false)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list webhook subscriptions: %w", err))
	}
	out := make([]domain.WebhookSubscription, 0, len(s.cfg.Subscribers)+len(registered))
	out = append(out, s.cfg.Subscribers...)
	return append(out, registered...), nil
}

// DeleteSubscription removes a registered subscriber. Static subscribers
// come from configuration and cannot be deleted.
func (s *WebhookServiceImpl) DeleteSubscription(ctx context.Context, id uuid.UUID) error {
	for _, st := range s.cfg.Subscribers {
		if st.ID == id {
			return apperror.Conflict("subscription is configured statically and cannot be deleted")
		}
	}
	deleted, err := s.subs.Delete(ctx, id)
	if err != nil {
		return apperror.Internal(fmt.Errorf("delete webhook subscription: %w", err))
	}
	if !deleted {
		return apperror.NotFound("webhook subscription")
	}
	return nil
}

// ListDeliveries returns the delivery log for one order.
func (s *WebhookServiceImpl) ListDeliveries(ctx context.Context, orderID string) ([]domain.WebhookDeliveryLog, error) {
	logs, err := s.deliveries.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list webhook deliveries: %w", err))
	}
	return logs, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
