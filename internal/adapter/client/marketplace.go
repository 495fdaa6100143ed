package client

import (
	"context"
	"net/http"
	"net/url"

	"order-sync-gateway/config"
	"order-sync-gateway/internal/core/domain"
	"order-sync-gateway/internal/core/ports"
	"order-sync-gateway/internal/resilience"
	"order-sync-gateway/pkg/apperror"
)

const OpUpdateOrderStatus = "update_order_status"

// MarketplaceClient reports fulfillment progress back to the marketplace.
type MarketplaceClient struct {
	rest
}

// NewMarketplaceClient creates the marketplace client.
func NewMarketplaceClient(cfg config.DependencyConfig, guard *resilience.Guard, httpClient HTTPClient) *MarketplaceClient {
	return &MarketplaceClient{rest{
		name:    guard.Name(),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		http:    httpClient,
		guard:   guard,
		apiKind: apperror.KindMarketplaceAPI,
	}}
}

var _ ports.MarketplaceClient = (*MarketplaceClient)(nil)

type statusUpdate struct {
	Status   domain.MarketplaceOrderStatus `json:"status"`
	Tracking *domain.TrackingInfo          `json:"tracking,omitempty"`
}

func (c *MarketplaceClient) UpdateOrderStatus(ctx context.Context, orderID string, status domain.MarketplaceOrderStatus, tracking *domain.TrackingInfo) error {
	return c.do(ctx, call{
		operation: OpUpdateOrderStatus,
		method:    http.MethodPost,
		path:      "/orders/" + url.PathEscape(orderID) + "/status",
		body:      statusUpdate{Status: status, Tracking: tracking},
		notFound:  "marketplace order",
	})
}

func (c *MarketplaceClient) Ping(ctx context.Context) error {
	return c.send(ctx, call{operation: "ping", method: http.MethodGet, path: "/ping"})
}

func (c *MarketplaceClient) Name() string { return c.name }
