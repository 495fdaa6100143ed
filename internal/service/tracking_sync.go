package service

import (
	"context"
	"fmt"
	"strings"

	"order-sync-gateway/internal/core/domain"
	"order-sync-gateway/internal/core/ports"
	"order-sync-gateway/internal/metrics"
	"order-sync-gateway/internal/resilience/retry"
	"order-sync-gateway/pkg/apperror"
	"order-sync-gateway/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SyncTracking applies a shipment event pushed by the fulfillment provider.
// A retryable marketplace push failure keeps the record in SYNCING_TRACKING
// for the poller. A final one, or one past the last allowed round, fails the
// record. Both are returned as TRACKING_SYNC_FAILED.
func (s *OrderSyncServiceImpl) SyncTracking(ctx context.Context, update ports.TrackingUpdate) (*domain.SyncRecord, error) {
	rec, err := s.locate(ctx, update)
	if err != nil {
		return nil, err
	}
	return s.syncLocked(ctx, rec, update.ProviderStatus, update.Tracking)
}

func (s *OrderSyncServiceImpl) locate(ctx context.Context, update ports.TrackingUpdate) (*domain.SyncRecord, error) {
	var (
		rec *domain.SyncRecord
		err error
	)
	switch {
	case strings.TrimSpace(update.FulfillmentOrderID) != "":
		rec, err = s.records.GetByFulfillmentOrderID(ctx, strings.TrimSpace(update.FulfillmentOrderID))
	case strings.TrimSpace(update.OrderID) != "":
		rec, err = s.records.GetByOrderID(ctx, strings.TrimSpace(update.OrderID))
	default:
		return nil, apperror.InvalidOrderData("order_id or fulfillment_order_id is required")
	}
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("locate sync record: %w", err))
	}
	if rec == nil {
		return nil, apperror.NotFound("sync record")
	}
	if update.OrderID != "" && rec.OrderID != strings.TrimSpace(update.OrderID) {
		return nil, apperror.Conflict(fmt.Sprintf("fulfillment order %s belongs to order %s", update.FulfillmentOrderID, rec.OrderID))
	}
	return rec, nil
}

// PollTracking visits records awaiting tracking, asks the provider for their
// fulfillment order and applies what it reports. It returns how many records
// reached a terminal state.
func (s *OrderSyncServiceImpl) PollTracking(ctx context.Context) (int, error) {
	recs, err := s.records.List(ctx, ports.SyncRecordFilter{
		Statuses: []domain.ProcessingStatus{domain.StatusFulfillmentOrderCreated, domain.StatusSyncingTracking},
		Limit:    s.cfg.TrackingBatchSize,
	})
	if err != nil {
		return 0, apperror.Internal(fmt.Errorf("list records awaiting tracking: %w", err))
	}

	log := logger.FromContext(ctx, s.log)
	finished := 0
	for i := range recs {
		if ctx.Err() != nil {
			return finished, ctx.Err()
		}
		rec := &recs[i]
		if rec.FulfillmentOrderID == "" {
			continue
		}

		var fo *domain.FulfillmentOrder
		err := s.cfg.Retry.Do(ctx, func(ctx context.Context, _ int) error {
			var err error
			fo, err = s.fulfillment.GetFulfillmentOrder(ctx, rec.FulfillmentOrderID)
			return err
		}, s.retryLogger(ctx, rec, "get_fulfillment_order"))
		if err != nil {
			s.metrics.RecordError(metrics.SourcePipeline, err, rec.OrderID, logger.CorrelationID(ctx))
			log.Warn().Err(err).Str("order_id", rec.OrderID).Msg("tracking poll failed")
			continue
		}

		unchanged := fo.Tracking == nil && fo.Status == rec.ProviderStatus
		if unchanged && rec.Status == domain.StatusFulfillmentOrderCreated {
			continue
		}

		updated, err := s.syncLocked(ctx, rec, fo.Status, fo.Tracking)
		if err != nil {
			log.Warn().Err(err).Str("order_id", rec.OrderID).Msg("tracking sync from poll failed")
		}
		if updated != nil && updated.Status.IsTerminal() {
			finished++
		}
	}
	return finished, nil
}

// syncLocked reloads rec under its processing lock and applies the
// provider's view of it.
func (s *OrderSyncServiceImpl) syncLocked(ctx context.Context, rec *domain.SyncRecord, status domain.ProviderStatus, tracking *domain.TrackingInfo) (*domain.SyncRecord, error) {
	return s.runLocked(ctx, rec, func(ctx context.Context, rec *domain.SyncRecord) (*domain.SyncRecord, error) {
		fresh, err := s.records.GetByID(ctx, rec.ID)
		if err != nil {
			return nil, apperror.Internal(fmt.Errorf("reload sync record: %w", err))
		}
		if fresh == nil {
			return nil, apperror.NotFound("sync record")
		}
		return s.applyTracking(ctx, fresh, status, tracking)
	})
}

func (s *OrderSyncServiceImpl) applyTracking(ctx context.Context, rec *domain.SyncRecord, status domain.ProviderStatus, tracking *domain.TrackingInfo) (*domain.SyncRecord, error) {
	switch {
	case rec.Status == domain.StatusCompleted || rec.Status == domain.StatusPartiallyCompleted:
		return rec, nil
	case !rec.Status.AwaitsTracking():
		return rec, apperror.Conflict(fmt.Sprintf("order %s is %s and not awaiting tracking", rec.OrderID, rec.Status)).
			WithDetail("status", string(rec.Status))
	}

	ctx, span := s.tracer.Start(ctx, "pipeline.sync_tracking", trace.WithAttributes(
		attribute.String("order.id", rec.OrderID),
		attribute.String("fulfillment.order_id", rec.FulfillmentOrderID),
	))
	defer span.End()

	if status.IsRejected() {
		rec.ProviderStatus = status
		cause := apperror.New(apperror.KindOrderCreationFailed,
			fmt.Sprintf("fulfillment provider moved order to %s", status)).
			WithDependency("fulfillment").
			WithDetail("provider_status", string(status)).
			WithDetail("fulfillment_order_id", rec.FulfillmentOrderID)
		return s.fail(ctx, rec, cause, domain.EventFulfillmentFailed)
	}
	changed := status != "" && status != rec.ProviderStatus
	if status != "" {
		rec.ProviderStatus = status
	}

	if tracking == nil || !tracking.Normalize().IsComplete() {
		// Nothing shipped yet; keep the provider status current.
		if !changed {
			return rec, nil
		}
		expected := rec.Version
		rec.Touch(rec.LastError, s.now())
		if err := s.save(ctx, rec, expected); err != nil {
			return rec, err
		}
		return rec, nil
	}

	t := tracking.Normalize()
	rec.Tracking = &t
	if rec.Status == domain.StatusFulfillmentOrderCreated {
		if err := s.advance(ctx, rec, domain.StatusSyncingTracking, nil); err != nil {
			return rec, err
		}
	}

	if cause := s.pushTracking(ctx, rec, t); cause != nil {
		return s.holdForRetry(ctx, rec, cause)
	}

	s.publish(ctx, domain.EventTrackingSynced, rec, map[string]any{
		"tracking_number":    t.TrackingNumber,
		"carrier":            t.Carrier,
		"marketplace_status": string(t.MarketplaceStatus()),
	}, nil)

	next := domain.StatusCompleted
	if rec.ProviderStatus == domain.ProviderStatusPartiallyComplete {
		next = domain.StatusPartiallyCompleted
	}
	rec.LastError = nil
	if err := s.advance(ctx, rec, next, nil); err != nil {
		return rec, err
	}

	logger.FromContext(ctx, s.log).Info().
		Str("order_id", rec.OrderID).
		Str("tracking_number", t.TrackingNumber).
		Str("status", string(next)).
		Msg("tracking synced to marketplace")
	return rec, nil
}

// pushTracking sends t to the marketplace and counts the round on rec.
// The returned error keeps the retryability of its cause.
func (s *OrderSyncServiceImpl) pushTracking(ctx context.Context, rec *domain.SyncRecord, t domain.TrackingInfo) *apperror.ConnectorError {
	rec.TrackingAttempts++
	err := s.cfg.Retry.Do(ctx, func(ctx context.Context, _ int) error {
		return s.marketplace.UpdateOrderStatus(ctx, rec.OrderID, t.MarketplaceStatus(), &t)
	}, s.retryLogger(ctx, rec, "update_order_status"))
	if err == nil {
		return nil
	}
	ce := apperror.From(err)
	return apperror.Wrap(apperror.KindTrackingSyncFailed, "tracking sync to marketplace failed", err).
		WithRetryable(retry.Retryable(ce)).
		WithDependency(ce.Dependency).
		WithDetail("cause", string(ce.Kind)).
		WithDetail("tracking_attempts", rec.TrackingAttempts)
}

// holdForRetry records a tracking sync failure without leaving
// SYNCING_TRACKING so the poller picks the record up again. A cause that
// cannot be retried, or the last allowed round, fails the record instead.
func (s *OrderSyncServiceImpl) holdForRetry(ctx context.Context, rec *domain.SyncRecord, cause *apperror.ConnectorError) (*domain.SyncRecord, error) {
	if !cause.Retryable || rec.TrackingAttempts >= s.trackingMaxAttempts() {
		if _, err := s.fail(ctx, rec, cause, domain.EventTrackingSyncFailed); err != nil {
			return rec, err
		}
		return rec, cause
	}

	ctx = context.WithoutCancel(ctx)
	s.metrics.RecordError(metrics.SourcePipeline, cause, rec.OrderID, logger.CorrelationID(ctx))

	expected := rec.Version
	rec.Touch(cause, s.now())
	if err := s.save(ctx, rec, expected); err != nil {
		return rec, err
	}

	logger.FromContext(ctx, s.log).Warn().
		Str("order_id", rec.OrderID).
		Str("cause", fmt.Sprint(cause.Details["cause"])).
		Int("tracking_attempts", rec.TrackingAttempts).
		Msg("tracking sync failed, will retry")

	s.publish(ctx, domain.EventTrackingSyncFailed, rec, nil, cause)
	return rec, cause
}

func (s *OrderSyncServiceImpl) trackingMaxAttempts() int {
	if s.cfg.Retry.MaxAttempts < 1 {
		return 1
	}
	return s.cfg.Retry.MaxAttempts
}
