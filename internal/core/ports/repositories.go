package ports

import (
	"context"
	"errors"

	"order-sync-gateway/internal/core/domain"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateOrder is returned by Create when a record already exists
	// for the order identifier.
	ErrDuplicateOrder = errors.New("sync record already exists for order")
	// ErrVersionConflict is returned by Update when the stored version no
	// longer matches the expected one.
	ErrVersionConflict = errors.New("sync record version conflict")
)

// SyncRecordRepository persists SyncRecords. Get methods return nil, nil
// when nothing matches.
type SyncRecordRepository interface {
	Create(ctx context.Context, record *domain.SyncRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncRecord, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.SyncRecord, error)
	GetByFulfillmentOrderID(ctx context.Context, fulfillmentOrderID string) (*domain.SyncRecord, error)
	// Update stores record only if the persisted version equals expectedVersion.
	Update(ctx context.Context, record *domain.SyncRecord, expectedVersion int64) error
	List(ctx context.Context, filter SyncRecordFilter) ([]domain.SyncRecord, error)
}

// SyncRecordFilter selects records for listing and polling.
type SyncRecordFilter struct {
	Statuses []domain.ProcessingStatus
	Limit    int
}

// WebhookSubscriptionRepository persists subscriber registrations.
type WebhookSubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.WebhookSubscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookSubscription, error)
	List(ctx context.Context, activeOnly bool) ([]domain.WebhookSubscription, error)
	// Delete returns false when no subscription had the id.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// WebhookDeliveryRepository persists webhook delivery attempts.
type WebhookDeliveryRepository interface {
	Create(ctx context.Context, log *domain.WebhookDeliveryLog) error
	Update(ctx context.Context, log *domain.WebhookDeliveryLog) error
	ListByOrderID(ctx context.Context, orderID string) ([]domain.WebhookDeliveryLog, error)
}
