package dto

import (
	"net/http"
	"strings"
	"time"

	"order-sync-gateway/internal/core/domain"
	"order-sync-gateway/internal/core/ports"
	"order-sync-gateway/pkg/apperror"

	"github.com/shopspring/decimal"
)

// AddressRequest is the shipping address of an inbound order. Completeness
// is a business rule checked by the pipeline, so fields are not required here.
type AddressRequest struct {
	Name       string `json:"name" binding:"max=200"`
	Line1      string `json:"line1" binding:"max=200"`
	Line2      string `json:"line2,omitempty" binding:"max=200"`
	City       string `json:"city" binding:"max=100"`
	State      string `json:"state,omitempty" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"max=20"`
	Country    string `json:"country" binding:"omitempty,iso_country"`
	Phone      string `json:"phone,omitempty" binding:"max=40"`
}

// OrderItemRequest is one order line.
type OrderItemRequest struct {
	SKU       string          `json:"sku" binding:"required,sku"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Currency  string          `json:"currency" binding:"required,currency"`
}

// OrderRequest is the body of POST /orders: a marketplace order-received
// event.
type OrderRequest struct {
	OrderID  string             `json:"order_id" binding:"required,max=100"`
	Status   string             `json:"status" binding:"required,oneof=UNPAID AWAITING_SHIPMENT AWAITING_COLLECTION IN_TRANSIT DELIVERED CANCELLED COMPLETED"`
	Address  AddressRequest     `json:"shipping_address"`
	Items    []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	PlacedAt *time.Time         `json:"placed_at,omitempty"`
}

// ToDomain converts the request to a domain order.
func (r *OrderRequest) ToDomain() domain.Order {
	items := make([]domain.OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, domain.OrderItem{
			SKU:       strings.TrimSpace(it.SKU),
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Currency:  strings.ToUpper(it.Currency),
		})
	}
	o := domain.Order{
		ID:     strings.TrimSpace(r.OrderID),
		Status: domain.MarketplaceOrderStatus(r.Status),
		Address: domain.Address{
			Name:       r.Address.Name,
			Line1:      r.Address.Line1,
			Line2:      r.Address.Line2,
			City:       r.Address.City,
			State:      r.Address.State,
			PostalCode: r.Address.PostalCode,
			Country:    r.Address.Country,
			Phone:      r.Address.Phone,
		},
		Items: items,
	}
	if r.PlacedAt != nil {
		o.PlacedAt = r.PlacedAt.UTC()
	}
	return o
}

// TrackingRequest is the body of POST /tracking, pushed by the fulfillment
// provider.
type TrackingRequest struct {
	OrderID            string     `json:"order_id" binding:"required_without=FulfillmentOrderID,max=100"`
	FulfillmentOrderID string     `json:"fulfillment_order_id" binding:"required_without=OrderID,max=100"`
	ProviderStatus     string     `json:"status" binding:"omitempty,oneof=RECEIVED INVALID PLANNING PROCESSING CANCELLED COMPLETE COMPLETE_PARTIALLED UNFULFILLABLE"`
	TrackingNumber     string     `json:"tracking_number" binding:"required_with=Carrier,max=100"`
	Carrier            string     `json:"carrier" binding:"required_with=TrackingNumber,max=100"`
	ShippedAt          *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty"`
	EstimatedArrival   *time.Time `json:"estimated_arrival,omitempty"`
}

// ToUpdate converts the request to a tracking update. Tracking is nil when
// the provider only reported a status.
func (r *TrackingRequest) ToUpdate() ports.TrackingUpdate {
	u := ports.TrackingUpdate{
		OrderID:            r.OrderID,
		FulfillmentOrderID: r.FulfillmentOrderID,
		ProviderStatus:     domain.ProviderStatus(r.ProviderStatus),
	}
	if r.TrackingNumber == "" {
		return u
	}
	t := &domain.TrackingInfo{
		TrackingNumber:   r.TrackingNumber,
		Carrier:          r.Carrier,
		DeliveredAt:      r.DeliveredAt,
		EstimatedArrival: r.EstimatedArrival,
	}
	if r.ShippedAt != nil {
		t.ShippedAt = *r.ShippedAt
	} else {
		t.ShippedAt = time.Now().UTC()
	}
	u.Tracking = t
	return u
}

// SubscriptionRequest is the body of POST /webhooks/subscriptions.
type SubscriptionRequest struct {
	URL    string   `json:"url" binding:"required,safe_url"`
	Secret string   `json:"secret" binding:"required,min=16,max=256"`
	Events []string `json:"events" binding:"omitempty,dive,oneof=order.received order.validated order.validation_failed fulfillment.created fulfillment.failed tracking.synced tracking.sync_failed inventory.low"`
}

// ToPorts converts the request to the service input.
func (r *SubscriptionRequest) ToPorts() ports.CreateSubscriptionRequest {
	kinds := make([]domain.WebhookEventKind, 0, len(r.Events))
	for _, e := range r.Events {
		kinds = append(kinds, domain.WebhookEventKind(e))
	}
	return ports.CreateSubscriptionRequest{URL: r.URL, Secret: r.Secret, EventKinds: kinds}
}

// ListOrdersQuery is the query string of GET /orders.
type ListOrdersQuery struct {
	Status []string `form:"status" binding:"omitempty,dive,oneof=PENDING VALIDATING VALIDATED TRANSFORMING CREATING_FULFILLMENT_ORDER FULFILLMENT_ORDER_CREATED SYNCING_TRACKING COMPLETED PARTIALLY_COMPLETED FAILED"`
	Limit  int      `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ToFilter converts the query to a repository filter.
func (q *ListOrdersQuery) ToFilter() ports.SyncRecordFilter {
	statuses := make([]domain.ProcessingStatus, 0, len(q.Status))
	for _, s := range q.Status {
		statuses = append(statuses, domain.ProcessingStatus(s))
	}
	limit := q.Limit
	if limit == 0 {
		limit = 100
	}
	return ports.SyncRecordFilter{Statuses: statuses, Limit: limit}
}

// TransitionResponse is one entry of a record's audit trail.
type TransitionResponse struct {
	From    string     `json:"from,omitempty"`
	To      string     `json:"to"`
	At      string     `json:"at"`
	Attempt int        `json:"attempt"`
	Error   *ErrorView `json:"error,omitempty"`
}

// ErrorView is the public view of a recorded failure. Server-side kinds keep
// only the kind and its public message.
type ErrorView struct {
	Kind       string               `json:"kind"`
	Message    string               `json:"message"`
	Retryable  bool                 `json:"retryable"`
	Details    map[string]any       `json:"details,omitempty"`
	Violations []apperror.Violation `json:"violations,omitempty"`
	Timestamp  string               `json:"timestamp"`
}

// ToErrorView converts a recorded error, or returns nil.
func ToErrorView(ce *apperror.ConnectorError) *ErrorView {
	if ce == nil {
		return nil
	}
	v := &ErrorView{
		Kind:      string(ce.Kind),
		Message:   ce.PublicMessage(),
		Retryable: ce.Retryable,
		Timestamp: ce.Timestamp.UTC().Format(time.RFC3339),
	}
	if ce.HTTPStatus() < http.StatusInternalServerError {
		v.Details = ce.Details
		v.Violations = ce.Violations
	}
	return v
}

// SyncRecordResponse is the public view of a SyncRecord.
type SyncRecordResponse struct {
	ID                 string               `json:"id"`
	OrderID            string               `json:"order_id"`
	Status             string               `json:"status"`
	Attempt            int                  `json:"attempt"`
	TrackingAttempts   int                  `json:"tracking_attempts,omitempty"`
	Version            int64                `json:"version"`
	FulfillmentOrderID string               `json:"fulfillment_order_id,omitempty"`
	ProviderStatus     string               `json:"provider_status,omitempty"`
	Tracking           *domain.TrackingInfo `json:"tracking,omitempty"`
	LastError          *ErrorView           `json:"last_error,omitempty"`
	Transitions        []TransitionResponse `json:"transitions"`
	CreatedAt          string               `json:"created_at"`
	UpdatedAt          string               `json:"updated_at"`
}

// ToSyncRecordResponse converts a domain record to its public view.
func ToSyncRecordResponse(rec *domain.SyncRecord) SyncRecordResponse {
	resp := SyncRecordResponse{
		ID:                 rec.ID.String(),
		OrderID:            rec.OrderID,
		Status:             string(rec.Status),
		Attempt:            rec.Attempt,
		TrackingAttempts:   rec.TrackingAttempts,
		Version:            rec.Version,
		FulfillmentOrderID: rec.FulfillmentOrderID,
		ProviderStatus:     string(rec.ProviderStatus),
		Tracking:           rec.Tracking,
		LastError:          ToErrorView(rec.LastError),
		Transitions:        make([]TransitionResponse, 0, len(rec.Transitions)),
		CreatedAt:          rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          rec.UpdatedAt.Format(time.RFC3339),
	}
	for _, t := range rec.Transitions {
		resp.Transitions = append(resp.Transitions, TransitionResponse{
			From:    string(t.From),
			To:      string(t.To),
			At:      t.At.Format(time.RFC3339Nano),
			Attempt: t.Attempt,
			Error:   ToErrorView(t.Error),
		})
	}
	return resp
}

// SubscriptionResponse never includes the secret.
type SubscriptionResponse struct {
	ID        string   `json:"id"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
	Active    bool     `json:"active"`
	Static    bool     `json:"static"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// ToSubscriptionResponse converts a subscription to its public view.
func ToSubscriptionResponse(sub domain.WebhookSubscription) SubscriptionResponse {
	events := make([]string, 0, len(sub.EventKinds))
	for _, k := range sub.EventKinds {
		events = append(events, string(k))
	}
	resp := SubscriptionResponse{
		ID:     sub.ID.String(),
		URL:    sub.URL,
		Events: events,
		Active: sub.Active,
		Static: sub.Static,
	}
	if !sub.CreatedAt.IsZero() {
		resp.CreatedAt = sub.CreatedAt.Format(time.RFC3339)
	}
	return resp
}
