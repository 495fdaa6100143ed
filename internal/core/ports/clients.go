package ports

import (
	"context"

	"order-sync-gateway/internal/core/domain"
)

// FulfillmentClient talks to the fulfillment provider. Every error it
// returns is an *apperror.ConnectorError.
type FulfillmentClient interface {
	CreateFulfillmentOrder(ctx context.Context, req domain.FulfillmentRequest) (*domain.FulfillmentOrder, error)
	GetFulfillmentOrder(ctx context.Context, fulfillmentOrderID string) (*domain.FulfillmentOrder, error)
	GetInventory(ctx context.Context, sellerSKUs []string) ([]domain.InventoryLevel, error)
	Ping(ctx context.Context) error
}

// MarketplaceClient pushes order state back to the marketplace.
type MarketplaceClient interface {
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.MarketplaceOrderStatus, tracking *domain.TrackingInfo) error
	Ping(ctx context.Context) error
}
