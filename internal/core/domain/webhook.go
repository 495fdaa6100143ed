package domain

import (
	"time"

	"order-sync-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// WebhookEventKind identifies a pipeline lifecycle event.
type WebhookEventKind string

const (
	EventOrderReceived         WebhookEventKind = "order.received"
	EventOrderValidated        WebhookEventKind = "order.validated"
	EventOrderValidationFailed WebhookEventKind = "order.validation_failed"
	EventFulfillmentCreated    WebhookEventKind = "fulfillment.created"
	EventFulfillmentFailed     WebhookEventKind = "fulfillment.failed"
	EventTrackingSynced        WebhookEventKind = "tracking.synced"
	EventTrackingSyncFailed    WebhookEventKind = "tracking.sync_failed"
	EventInventoryLow          WebhookEventKind = "inventory.low"
)

// IsValid returns true if k is a known event kind.
func (k WebhookEventKind) IsValid() bool {
	switch k {
	case EventOrderReceived, EventOrderValidated, EventOrderValidationFailed, EventFulfillmentCreated,
		EventFulfillmentFailed, EventTrackingSynced, EventTrackingSyncFailed, EventInventoryLow:
		return true
	}
	return false
}

// WebhookEvent is delivered to every matching subscriber.
type WebhookEvent struct {
	ID            uuid.UUID                `json:"id"`
	Kind          WebhookEventKind         `json:"kind"`
	OrderID       string                   `json:"order_id"`
	Timestamp     time.Time                `json:"timestamp"`
	Data          map[string]any           `json:"data,omitempty"`
	Error         *apperror.ConnectorError `json:"error,omitempty"`
	CorrelationID string                   `json:"correlation_id,omitempty"`
}

// NewWebhookEvent creates an event stamped with a fresh ID.
func NewWebhookEvent(kind WebhookEventKind, orderID string, data map[string]any) WebhookEvent {
	return WebhookEvent{
		ID:        uuid.New(),
		Kind:      kind,
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// WebhookSubscription registers an external endpoint for events.
type WebhookSubscription struct {
	ID         uuid.UUID          `json:"id"`
	URL        string             `json:"url"`
	Secret     string             `json:"-"`
	EventKinds []WebhookEventKind `json:"event_kinds"` // empty = all
	Active     bool               `json:"active"`
	Static     bool               `json:"static"` // from configuration, never persisted
	CreatedAt  time.Time          `json:"created_at"`
}

// Matches returns true if the subscription should receive kind.
func (s *WebhookSubscription) Matches(kind WebhookEventKind) bool {
	if !s.Active {
		return false
	}
	if len(s.EventKinds) == 0 {
		return true
	}
	for _, k := range s.EventKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// WebhookStatus represents the delivery state of a webhook.
type WebhookStatus string

const (
	WebhookStatusPending   WebhookStatus = "PENDING"
	WebhookStatusDelivered WebhookStatus = "DELIVERED"
	WebhookStatusFailed    WebhookStatus = "FAILED"
)

// WebhookDeliveryLog records each webhook delivery attempt.
type WebhookDeliveryLog struct {
	ID             uuid.UUID        `json:"id"`
	EventID        uuid.UUID        `json:"event_id"`
	EventKind      WebhookEventKind `json:"event_kind"`
	SubscriptionID uuid.UUID        `json:"subscription_id"`
	OrderID        string           `json:"order_id"`
	WebhookURL     string           `json:"webhook_url"`
	Payload        string           `json:"payload"` // JSON string
	HTTPStatus     *int             `json:"http_status"`
	Attempt        int              `json:"attempt"`
	Status         WebhookStatus    `json:"status"`
	NextRetryAt    *time.Time       `json:"next_retry_at"`
	LastError      *string          `json:"last_error"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
