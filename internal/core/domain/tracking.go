package domain

import (
	"strings"
	"time"
)

// TrackingInfo describes a shipment reported by the fulfillment provider.
type TrackingInfo struct {
	TrackingNumber   string     `json:"tracking_number"`
	Carrier          string     `json:"carrier"`
	ShippedAt        time.Time  `json:"shipped_at"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	EstimatedArrival *time.Time `json:"estimated_arrival,omitempty"`
}

// Normalize strips whitespace from the tracking number and trims the carrier.
func (t TrackingInfo) Normalize() TrackingInfo {
	t.TrackingNumber = strings.ToUpper(strings.Join(strings.Fields(t.TrackingNumber), ""))
	t.Carrier = strings.TrimSpace(t.Carrier)
	t.ShippedAt = t.ShippedAt.UTC()
	if t.DeliveredAt != nil {
		d := t.DeliveredAt.UTC()
		t.DeliveredAt = &d
	}
	return t
}

// IsComplete returns true if the tracking has enough data to be pushed.
func (t TrackingInfo) IsComplete() bool {
	return t.TrackingNumber != "" && t.Carrier != "" && !t.ShippedAt.IsZero()
}

// MarketplaceStatus is the order status the marketplace should show.
func (t TrackingInfo) MarketplaceStatus() MarketplaceOrderStatus {
	if t.DeliveredAt != nil {
		return MarketplaceStatusDelivered
	}
	return MarketplaceStatusInTransit
}

// Clone copies t including its optional timestamps.
func (t TrackingInfo) Clone() TrackingInfo {
	if t.DeliveredAt != nil {
		d := *t.DeliveredAt
		t.DeliveredAt = &d
	}
	if t.EstimatedArrival != nil {
		e := *t.EstimatedArrival
		t.EstimatedArrival = &e
	}
	return t
}
