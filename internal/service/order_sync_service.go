package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"order-sync-gateway/config"
	"order-sync-gateway/internal/core/domain"
	"order-sync-gateway/internal/core/ports"
	"order-sync-gateway/internal/metrics"
	"order-sync-gateway/internal/resilience/retry"
	"order-sync-gateway/pkg/apperror"
	"order-sync-gateway/pkg/logger"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OrderSyncConfig holds the pipeline settings.
type OrderSyncConfig struct {
	ShippingSpeed         string
	AcceptedCurrencies    []string
	InventoryLowThreshold int
	LockTTL               time.Duration
	// Catalog maps marketplace SKUs to provider SKUs. Unlisted SKUs are unknown.
	Catalog           map[string]string
	Retry             retry.Policy
	TrackingBatchSize int
}

// NewOrderSyncConfig derives pipeline settings from application config.
func NewOrderSyncConfig(cfg *config.Config) OrderSyncConfig {
	return OrderSyncConfig{
		ShippingSpeed:         cfg.Pipeline.ShippingSpeed,
		AcceptedCurrencies:    cfg.Pipeline.AcceptedCurrencies,
		InventoryLowThreshold: cfg.Pipeline.InventoryLowThreshold,
		LockTTL:               cfg.Pipeline.LockTTL,
		Catalog:               cfg.Catalog.SKUMap(),
		Retry: retry.Policy{
			MaxAttempts:         cfg.Retry.MaxAttempts,
			InitialInterval:     cfg.Retry.InitialInterval,
			MaxInterval:         cfg.Retry.MaxInterval,
			Multiplier:          cfg.Retry.Multiplier,
			RandomizationFactor: cfg.Retry.RandomizationFactor,
		},
		TrackingBatchSize: cfg.Tracking.BatchSize,
	}
}

// OrderSyncServiceImpl implements ports.OrderSyncService.
type OrderSyncServiceImpl struct {
	records     ports.SyncRecordRepository
	fulfillment ports.FulfillmentClient
	marketplace ports.MarketplaceClient
	lock        ports.ProcessingLock
	events      ports.EventPublisher
	metrics     *metrics.Store
	tracer      trace.Tracer
	cfg         OrderSyncConfig
	now         func() time.Time
	log         zerolog.Logger
}

// NewOrderSyncService creates a new OrderSyncServiceImpl.
func NewOrderSyncService(
	records ports.SyncRecordRepository,
	fulfillment ports.FulfillmentClient,
	marketplace ports.MarketplaceClient,
	lock ports.ProcessingLock,
	events ports.EventPublisher,
	store *metrics.Store,
	tracer trace.Tracer,
	cfg OrderSyncConfig,
	log zerolog.Logger,
) *OrderSyncServiceImpl {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &OrderSyncServiceImpl{
		records:     records,
		fulfillment: fulfillment,
		marketplace: marketplace,
		lock:        lock,
		events:      events,
		metrics:     store,
		tracer:      tracer,
		cfg:         cfg,
		now:         time.Now,
		log:         log,
	}
}

// SubmitOrder accepts a marketplace order and runs it synchronously up to
// FULFILLMENT_ORDER_CREATED. A record that is still active, or already
// completed, is returned unchanged. A FAILED record is re-entered with the
// resubmitted payload.
func (s *OrderSyncServiceImpl) SubmitOrder(ctx context.Context, order domain.Order) (*domain.SyncRecord, bool, error) {
	order.ID = strings.TrimSpace(order.ID)
	if order.ID == "" {
		return nil, false, apperror.InvalidOrderData("order id is required")
	}
	order.Address = order.Address.Normalize()

	rec, created, run, err := s.admit(ctx, order)
	if err != nil {
		return nil, false, err
	}
	if !run {
		logger.FromContext(ctx, s.log).Info().
			Str("order_id", rec.OrderID).
			Str("status", string(rec.Status)).
			Msg("order already known, returning existing sync record")
		return rec, false, nil
	}

	s.publish(ctx, domain.EventOrderReceived, rec, map[string]any{"items": len(rec.Order.Items)}, nil)

	final, err := s.runLocked(ctx, rec, s.process)
	return final, created, err
}

// admit finds or creates the record for order. run reports whether the
// caller owns a PENDING record it must process.
func (s *OrderSyncServiceImpl) admit(ctx context.Context, order domain.Order) (rec *domain.SyncRecord, created, run bool, err error) {
	existing, err := s.records.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, false, false, apperror.Internal(fmt.Errorf("lookup sync record: %w", err))
	}

	if existing == nil {
		rec = domain.NewSyncRecord(order, s.now())
		err = s.records.Create(ctx, rec)
		if err == nil {
			s.metrics.RecordTransition(domain.StatusPending)
			return rec, true, true, nil
		}
		if !errors.Is(err, ports.ErrDuplicateOrder) {
			return nil, false, false, apperror.Internal(fmt.Errorf("create sync record: %w", err))
		}
		// A concurrent submission won the insert; it owns processing.
		existing, err = s.records.GetByOrderID(ctx, order.ID)
		if err != nil || existing == nil {
			return nil, false, false, apperror.Internal(fmt.Errorf("reload sync record after duplicate insert: %w", err))
		}
		return existing, false, false, nil
	}

	if existing.Status != domain.StatusFailed {
		return existing, false, false, nil
	}

	expected := existing.Version
	existing.Order = order
	if err := existing.Advance(domain.StatusPending, nil, s.now()); err != nil {
		return nil, false, false, apperror.Internal(err)
	}
	if err := s.records.Update(ctx, existing, expected); err != nil {
		if !errors.Is(err, ports.ErrVersionConflict) {
			return nil, false, false, apperror.Internal(fmt.Errorf("reset sync record: %w", err))
		}
		current, gerr := s.records.GetByOrderID(ctx, order.ID)
		if gerr != nil || current == nil {
			return nil, false, false, apperror.Internal(fmt.Errorf("reload sync record after conflict: %w", gerr))
		}
		return current, false, false, nil
	}
	s.metrics.RecordTransition(domain.StatusPending)
	return existing, false, true, nil
}

// Reprocess re-enters a FAILED record at PENDING as a new attempt. A record
// left in a working state for longer than the lock TTL is failed as stalled
// and taken over; the fulfillment create stays idempotent on the record ID.
func (s *OrderSyncServiceImpl) Reprocess(ctx context.Context, orderID string) (*domain.SyncRecord, error) {
	rec, err := s.GetRecord(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if s.stalled(rec) {
		cause := apperror.New(apperror.KindTimeout, fmt.Sprintf("processing stalled in %s", rec.Status)).
			WithDetail("stalled_since", rec.UpdatedAt.Format(time.RFC3339))
		if _, err := s.fail(ctx, rec, cause, domain.EventFulfillmentFailed); err != nil {
			return nil, err
		}
	}
	if rec.Status != domain.StatusFailed {
		return nil, apperror.Conflict(fmt.Sprintf("order %s is %s; only FAILED records can be reprocessed", rec.OrderID, rec.Status)).
			WithDetail("status", string(rec.Status))
	}

	if err := s.advance(ctx, rec, domain.StatusPending, nil); err != nil {
		return nil, err
	}
	logger.FromContext(ctx, s.log).Info().
		Str("order_id", rec.OrderID).
		Int("attempt", rec.Attempt).
		Msg("reprocessing failed order")

	s.publish(ctx, domain.EventOrderReceived, rec, map[string]any{"reprocess": true}, nil)
	return s.runLocked(ctx, rec, s.process)
}

// stalled reports whether rec sits in a pre-fulfillment working state that
// no live run can still own.
func (s *OrderSyncServiceImpl) stalled(rec *domain.SyncRecord) bool {
	switch rec.Status {
	case domain.StatusPending, domain.StatusValidating, domain.StatusValidated,
		domain.StatusTransforming, domain.StatusCreatingFulfillmentOrder:
		return s.now().Sub(rec.UpdatedAt) > s.cfg.LockTTL
	}
	return false
}

// GetRecord returns the record for orderID.
func (s *OrderSyncServiceImpl) GetRecord(ctx context.Context, orderID string) (*domain.SyncRecord, error) {
	rec, err := s.records.GetByOrderID(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("get sync record: %w", err))
	}
	if rec == nil {
		return nil, apperror.NotFound("sync record")
	}
	return rec, nil
}

// ListRecords returns records matching filter, oldest update first.
func (s *OrderSyncServiceImpl) ListRecords(ctx context.Context, filter ports.SyncRecordFilter) ([]domain.SyncRecord, error) {
	recs, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list sync records: %w", err))
	}
	return recs, nil
}

// runLocked runs fn while holding the record's processing lock. When another
// worker holds it, the latest stored record is returned instead. A lock
// backend outage degrades to version checks alone.
func (s *OrderSyncServiceImpl) runLocked(
	ctx context.Context,
	rec *domain.SyncRecord,
	fn func(ctx context.Context, rec *domain.SyncRecord) (*domain.SyncRecord, error),
) (*domain.SyncRecord, error) {
	log := logger.FromContext(ctx, s.log)
	key := rec.ID.String()

	token, err := s.lock.Acquire(ctx, key, s.cfg.LockTTL)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("order_id", rec.OrderID).Msg("processing lock unavailable, relying on version check")
	case token == "":
		log.Info().Str("order_id", rec.OrderID).Msg("sync record is being processed elsewhere")
		current, gerr := s.records.GetByID(ctx, rec.ID)
		if gerr != nil || current == nil {
			return rec, nil
		}
		return current, nil
	default:
		defer func() {
			if rerr := s.lock.Release(context.WithoutCancel(ctx), key, token); rerr != nil {
				log.Warn().Err(rerr).Str("order_id", rec.OrderID).Msg("failed to release processing lock")
			}
		}()
	}

	return fn(ctx, rec)
}

// process drives a PENDING record through validation, transformation and
// fulfillment order creation.
func (s *OrderSyncServiceImpl) process(ctx context.Context, rec *domain.SyncRecord) (*domain.SyncRecord, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.process", trace.WithAttributes(
		attribute.String("order.id", rec.OrderID),
		attribute.Int("sync.attempt", rec.Attempt),
	))
	defer span.End()

	if err := s.advance(ctx, rec, domain.StatusValidating, nil); err != nil {
		return rec, err
	}
	if cause := s.validate(ctx, rec); cause != nil {
		return s.fail(ctx, rec, cause, domain.EventOrderValidationFailed)
	}
	if err := s.advance(ctx, rec, domain.StatusValidated, nil); err != nil {
		return rec, err
	}
	s.publish(ctx, domain.EventOrderValidated, rec, nil, nil)

	if err := s.advance(ctx, rec, domain.StatusTransforming, nil); err != nil {
		return rec, err
	}
	req, cause := s.transform(rec)
	if cause != nil {
		return s.fail(ctx, rec, cause, domain.EventFulfillmentFailed)
	}

	if err := s.advance(ctx, rec, domain.StatusCreatingFulfillmentOrder, nil); err != nil {
		return rec, err
	}
	fo, cause := s.createFulfillmentOrder(ctx, rec, req)
	if fo != nil {
		rec.FulfillmentOrderID = fo.ID
		rec.ProviderStatus = fo.Status
	}
	if cause != nil {
		return s.fail(ctx, rec, cause, domain.EventFulfillmentFailed)
	}

	if err := s.advance(ctx, rec, domain.StatusFulfillmentOrderCreated, nil); err != nil {
		return rec, err
	}
	span.SetAttributes(attribute.String("fulfillment.order_id", fo.ID))
	s.publish(ctx, domain.EventFulfillmentCreated, rec, map[string]any{
		"fulfillment_order_id": fo.ID,
		"provider_status":      string(fo.Status),
	}, nil)

	logger.FromContext(ctx, s.log).Info().
		Str("order_id", rec.OrderID).
		Str("fulfillment_order_id", fo.ID).
		Int("attempt", rec.Attempt).
		Msg("fulfillment order created")
	return rec, nil
}

// advance applies one transition and persists it with a compare-and-swap on
// the version. On failure rec is restored to its stored state.
func (s *OrderSyncServiceImpl) advance(ctx context.Context, rec *domain.SyncRecord, next domain.ProcessingStatus, cause *apperror.ConnectorError) error {
	prev := rec.Clone()
	if err := rec.Advance(next, cause, s.now()); err != nil {
		return apperror.Internal(err)
	}
	if err := s.save(ctx, rec, prev.Version); err != nil {
		*rec = *prev
		return err
	}
	s.metrics.RecordTransition(next)
	logger.FromContext(ctx, s.log).Debug().
		Str("order_id", rec.OrderID).
		Str("from", string(prev.Status)).
		Str("to", string(next)).
		Int64("version", rec.Version).
		Msg("sync record advanced")
	return nil
}

// save persists rec on a context detached from cancellation, so a caller
// giving up never leaves a transition half-applied.
func (s *OrderSyncServiceImpl) save(ctx context.Context, rec *domain.SyncRecord, expected int64) error {
	err := s.records.Update(context.WithoutCancel(ctx), rec, expected)
	if err == nil {
		return nil
	}
	if errors.Is(err, ports.ErrVersionConflict) {
		return apperror.Conflict(fmt.Sprintf("sync record for order %s was modified concurrently", rec.OrderID)).
			WithDetail("expected_version", expected)
	}
	return apperror.Internal(fmt.Errorf("update sync record: %w", err))
}

// fail moves rec to FAILED. When the caller's context ended the cause is
// replaced by a retryable TIMEOUT_ERROR and also returned to the caller.
func (s *OrderSyncServiceImpl) fail(ctx context.Context, rec *domain.SyncRecord, cause *apperror.ConnectorError, event domain.WebhookEventKind) (*domain.SyncRecord, error) {
	stage := rec.Status
	var callerErr error
	if ctxErr := ctx.Err(); ctxErr != nil {
		cause = apperror.Timeout(ctxErr).
			WithDependency(cause.Dependency).
			WithDetail("cause", string(cause.Kind))
		callerErr = cause
	}
	cause.WithDetail("stage", string(stage))

	ctx = context.WithoutCancel(ctx)
	s.metrics.RecordError(metrics.SourcePipeline, cause, rec.OrderID, logger.CorrelationID(ctx))
	if err := s.advance(ctx, rec, domain.StatusFailed, cause); err != nil {
		return rec, err
	}

	logger.FromContext(ctx, s.log).Warn().
		Str("order_id", rec.OrderID).
		Str("stage", string(stage)).
		Str("kind", string(cause.Kind)).
		Bool("retryable", cause.Retryable).
		Msg(cause.Message)

	s.publish(ctx, event, rec, map[string]any{"stage": string(stage)}, cause)
	return rec, callerErr
}

// retryLogger logs each backoff of a stage.
func (s *OrderSyncServiceImpl) retryLogger(ctx context.Context, rec *domain.SyncRecord, operation string) retry.Notify {
	log := logger.FromContext(ctx, s.log)
	return func(err error, attempt int, wait time.Duration) {
		log.Warn().Err(err).
			Str("order_id", rec.OrderID).
			Str("operation", operation).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("retrying outbound call")
	}
}

func (s *OrderSyncServiceImpl) publish(ctx context.Context, kind domain.WebhookEventKind, rec *domain.SyncRecord, data map[string]any, cause *apperror.ConnectorError) {
	if s.events == nil {
		return
	}
	if data == nil {
		data = make(map[string]any, 3)
	}
	data["sync_record_id"] = rec.ID.String()
	data["status"] = string(rec.Status)
	data["attempt"] = rec.Attempt

	ev := domain.NewWebhookEvent(kind, rec.OrderID, data)
	ev.Error = cause
	ev.CorrelationID = logger.CorrelationID(ctx)
	s.events.Publish(ctx, ev)
}
