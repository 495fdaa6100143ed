package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MarketplaceOrderStatus is the order status as the marketplace reports it.
type MarketplaceOrderStatus string

const (
	MarketplaceStatusUnpaid             MarketplaceOrderStatus = "UNPAID"
	MarketplaceStatusAwaitingShipment   MarketplaceOrderStatus = "AWAITING_SHIPMENT"
	MarketplaceStatusAwaitingCollection MarketplaceOrderStatus = "AWAITING_COLLECTION"
	MarketplaceStatusInTransit          MarketplaceOrderStatus = "IN_TRANSIT"
	MarketplaceStatusDelivered          MarketplaceOrderStatus = "DELIVERED"
	MarketplaceStatusCancelled          MarketplaceOrderStatus = "CANCELLED"
	MarketplaceStatusCompleted          MarketplaceOrderStatus = "COMPLETED"
)

// IsValid returns true if s is a known marketplace status.
func (s MarketplaceOrderStatus) IsValid() bool {
	switch s {
	case MarketplaceStatusUnpaid, MarketplaceStatusAwaitingShipment, MarketplaceStatusAwaitingCollection,
		MarketplaceStatusInTransit, MarketplaceStatusDelivered, MarketplaceStatusCancelled, MarketplaceStatusCompleted:
		return true
	}
	return false
}

// IsFulfillable returns true if an order in this status may be sent to the
// fulfillment provider.
func (s MarketplaceOrderStatus) IsFulfillable() bool {
	return s == MarketplaceStatusAwaitingShipment
}

// Order is a marketplace-originated order.
type Order struct {
	ID       string                 `json:"id"`
	Address  Address                `json:"address"`
	Items    []OrderItem            `json:"items"`
	Status   MarketplaceOrderStatus `json:"status"`
	PlacedAt time.Time              `json:"placed_at"`
}

// Quantities sums quantities per SKU, merging repeated lines.
func (o *Order) Quantities() map[string]int {
	q := make(map[string]int, len(o.Items))
	for _, it := range o.Items {
		q[it.SKU] += it.Quantity
	}
	return q
}

// Currencies returns the distinct currencies used by the order's items.
func (o *Order) Currencies() []string {
	var out []string
	seen := make(map[string]bool)
	for _, it := range o.Items {
		c := strings.ToUpper(it.Currency)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// OrderItem is one ordered line.
type OrderItem struct {
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Currency  string          `json:"currency"`
}

// Total returns quantity * unit price.
func (i OrderItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Address is the buyer's shipping address.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"` // ISO-3166 alpha-2
	Phone      string `json:"phone,omitempty"`
}

// Normalize returns the canonical form: trimmed, internal whitespace
// collapsed, country and state upper-cased.
func (a Address) Normalize() Address {
	return Address{
		Name:       collapse(a.Name),
		Line1:      collapse(a.Line1),
		Line2:      collapse(a.Line2),
		City:       collapse(a.City),
		State:      strings.ToUpper(collapse(a.State)),
		PostalCode: strings.ToUpper(collapse(a.PostalCode)),
		Country:    strings.ToUpper(collapse(a.Country)),
		Phone:      collapse(a.Phone),
	}
}

// MissingFields lists the required fields that are empty.
func (a Address) MissingFields() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"line1", a.Line1},
		{"city", a.City},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// IsResolvable returns true when the normalized address can be shipped to.
func (a Address) IsResolvable() bool {
	n := a.Normalize()
	if len(n.MissingFields()) > 0 || len(n.Country) != 2 {
		return false
	}
	for _, r := range n.Country {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
