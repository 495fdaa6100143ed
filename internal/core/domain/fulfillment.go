package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProviderStatus is the fulfillment provider's order status.
type ProviderStatus string

const (
	ProviderStatusReceived          ProviderStatus = "RECEIVED"
	ProviderStatusInvalid           ProviderStatus = "INVALID"
	ProviderStatusPlanning          ProviderStatus = "PLANNING"
	ProviderStatusProcessing        ProviderStatus = "PROCESSING"
	ProviderStatusCancelled         ProviderStatus = "CANCELLED"
	ProviderStatusComplete          ProviderStatus = "COMPLETE"
	ProviderStatusPartiallyComplete ProviderStatus = "COMPLETE_PARTIALLED"
	ProviderStatusUnfulfillable     ProviderStatus = "UNFULFILLABLE"
)

// IsValid returns true if s is a known provider status.
func (s ProviderStatus) IsValid() bool {
	switch s {
	case ProviderStatusReceived, ProviderStatusInvalid, ProviderStatusPlanning, ProviderStatusProcessing,
		ProviderStatusCancelled, ProviderStatusComplete, ProviderStatusPartiallyComplete, ProviderStatusUnfulfillable:
		return true
	}
	return false
}

// IsRejected returns true when the provider will never ship the order.
func (s ProviderStatus) IsRejected() bool {
	return s == ProviderStatusInvalid || s == ProviderStatusCancelled || s == ProviderStatusUnfulfillable
}

// IsFinal returns true if the provider will not change the status again.
func (s ProviderStatus) IsFinal() bool {
	return s.IsRejected() || s == ProviderStatusComplete || s == ProviderStatusPartiallyComplete
}

// FulfillmentItem is an order line in the provider's schema.
type FulfillmentItem struct {
	SellerSKU      string          `json:"seller_sku"`
	MarketplaceSKU string          `json:"marketplace_sku"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
}

// FulfillmentRequest is the transformed order submitted to the provider.
type FulfillmentRequest struct {
	// SellerFulfillmentOrderID is the SyncRecord ID; the provider dedupes on it.
	SellerFulfillmentOrderID string            `json:"seller_fulfillment_order_id"`
	DisplayableOrderID       string            `json:"displayable_order_id"`
	DisplayableOrderDate     time.Time         `json:"displayable_order_date"`
	ShippingSpeed            string            `json:"shipping_speed"`
	Currency                 string            `json:"currency"`
	Address                  Address           `json:"destination_address"`
	Items                    []FulfillmentItem `json:"items"`
}

// FulfillmentOrder is the provider's view of a submitted order.
type FulfillmentOrder struct {
	ID                       string            `json:"id"`
	SellerFulfillmentOrderID string            `json:"seller_fulfillment_order_id"`
	Status                   ProviderStatus    `json:"status"`
	Items                    []FulfillmentItem `json:"items,omitempty"`
	Tracking                 *TrackingInfo     `json:"tracking,omitempty"`
}

// InventoryLevel is the provider's available quantity for one SKU.
type InventoryLevel struct {
	SellerSKU string `json:"seller_sku"`
	Available int    `json:"available"`
}
