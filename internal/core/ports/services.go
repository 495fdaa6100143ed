package ports

import (
	"context"
	"time"

	"order-sync-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
}

// ProcessingLock serializes work on one SyncRecord across goroutines and
// replicas.
type ProcessingLock interface {
	// Acquire returns a token when the lock was taken, or "" when it is held
	// elsewhere.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	Release(ctx context.Context, key string, token string) error
}

// EventPublisher accepts webhook events. Publish never blocks the caller on
// delivery.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.WebhookEvent)
}

// --- Service Ports (Business Logic) ---

// OrderSyncService drives SyncRecords through the pipeline.
type OrderSyncService interface {
	// SubmitOrder returns created=false when an existing record was returned.
	SubmitOrder(ctx context.Context, order domain.Order) (record *domain.SyncRecord, created bool, err error)
	Reprocess(ctx context.Context, orderID string) (*domain.SyncRecord, error)
	SyncTracking(ctx context.Context, update TrackingUpdate) (*domain.SyncRecord, error)
	PollTracking(ctx context.Context) (int, error)
	GetRecord(ctx context.Context, orderID string) (*domain.SyncRecord, error)
	ListRecords(ctx context.Context, filter SyncRecordFilter) ([]domain.SyncRecord, error)
}

// TrackingUpdate is a shipment event pushed by the fulfillment provider.
// Either OrderID or FulfillmentOrderID identifies the record.
type TrackingUpdate struct {
	OrderID            string
	FulfillmentOrderID string
	ProviderStatus     domain.ProviderStatus
	Tracking           *domain.TrackingInfo
}

// WebhookService manages subscribers and delivers events to them.
type WebhookService interface {
	EventPublisher
	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*domain.WebhookSubscription, error)
	ListSubscriptions(ctx context.Context) ([]domain.WebhookSubscription, error)
	DeleteSubscription(ctx context.Context, id uuid.UUID) error
	ListDeliveries(ctx context.Context, orderID string) ([]domain.WebhookDeliveryLog, error)
}

// CreateSubscriptionRequest holds validated input for a new subscriber.
type CreateSubscriptionRequest struct {
	URL        string
	Secret     string
	EventKinds []domain.WebhookEventKind
}

// HealthService reports aggregated dependency health.
type HealthService interface {
	Check(ctx context.Context) domain.HealthReport
}
