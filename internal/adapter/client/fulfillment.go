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

// Fulfillment operation names used for spans and call metrics.
const (
	OpCreateFulfillmentOrder = "create_fulfillment_order"
	OpGetFulfillmentOrder    = "get_fulfillment_order"
	OpGetInventory           = "get_inventory"
)

// FulfillmentClient is the HTTP client for the fulfillment provider API.
type FulfillmentClient struct {
	rest
}

// NewFulfillmentClient creates the fulfillment provider client.
func NewFulfillmentClient(cfg config.DependencyConfig, guard *resilience.Guard, httpClient HTTPClient) *FulfillmentClient {
	return &FulfillmentClient{rest{
		name:    guard.Name(),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		http:    httpClient,
		guard:   guard,
		apiKind: apperror.KindFulfillmentAPI,
	}}
}

var _ ports.FulfillmentClient = (*FulfillmentClient)(nil)

// CreateFulfillmentOrder submits req. The seller fulfillment order id doubles
// as the Idempotency-Key so a retried create returns the original order.
func (c *FulfillmentClient) CreateFulfillmentOrder(ctx context.Context, req domain.FulfillmentRequest) (*domain.FulfillmentOrder, error) {
	var fo domain.FulfillmentOrder
	err := c.do(ctx, call{
		operation:  OpCreateFulfillmentOrder,
		method:     http.MethodPost,
		path:       "/fulfillment-orders",
		headers:    map[string]string{"Idempotency-Key": req.SellerFulfillmentOrderID},
		body:       req,
		out:        &fo,
		clientKind: apperror.KindOrderCreationFailed,
	})
	if err != nil {
		return nil, err
	}
	if fo.ID == "" {
		return nil, apperror.New(apperror.KindOrderCreationFailed, "fulfillment provider returned no order id").
			WithDependency(c.name)
	}
	return &fo, nil
}

func (c *FulfillmentClient) GetFulfillmentOrder(ctx context.Context, fulfillmentOrderID string) (*domain.FulfillmentOrder, error) {
	var fo domain.FulfillmentOrder
	err := c.do(ctx, call{
		operation: OpGetFulfillmentOrder,
		method:    http.MethodGet,
		path:      "/fulfillment-orders/" + url.PathEscape(fulfillmentOrderID),
		out:       &fo,
		notFound:  "fulfillment order",
	})
	if err != nil {
		return nil, err
	}
	return &fo, nil
}

type inventoryResponse struct {
	Items []domain.InventoryLevel `json:"items"`
}

func (c *FulfillmentClient) GetInventory(ctx context.Context, sellerSKUs []string) ([]domain.InventoryLevel, error) {
	q := url.Values{}
	for _, sku := range sellerSKUs {
		q.Add("sku", sku)
	}
	var resp inventoryResponse
	err := c.do(ctx, call{
		operation: OpGetInventory,
		method:    http.MethodGet,
		path:      "/inventory?" + q.Encode(),
		out:       &resp,
	})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Ping bypasses the guard so health probes neither spend tokens nor move
// the breaker.
func (c *FulfillmentClient) Ping(ctx context.Context) error {
	return c.send(ctx, call{operation: "ping", method: http.MethodGet, path: "/ping"})
}

func (c *FulfillmentClient) Name() string { return c.name }
