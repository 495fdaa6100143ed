package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"order-sync-gateway/internal/core/domain"
	"order-sync-gateway/internal/resilience/retry"
	"order-sync-gateway/pkg/apperror"
)

// validate checks the order's status, lines, address, currency and SKUs,
// then confirms inventory. Business rule failures are never retryable.
func (s *OrderSyncServiceImpl) validate(ctx context.Context, rec *domain.SyncRecord) *apperror.ConnectorError {
	o := rec.Order

	if !o.Status.IsFulfillable() {
		return apperror.InvalidOrderData(fmt.Sprintf("order status %q is not eligible for fulfillment", o.Status)).
			WithDetail("status", string(o.Status))
	}
	if len(o.Items) == 0 {
		return apperror.InvalidOrderData("order has no items")
	}
	for i, it := range o.Items {
		if strings.TrimSpace(it.SKU) == "" {
			return apperror.InvalidOrderData(fmt.Sprintf("item %d has no sku", i))
		}
		if it.Quantity <= 0 {
			return apperror.InvalidOrderData(fmt.Sprintf("item %d quantity must be positive", i)).WithDetail("sku", it.SKU)
		}
		if it.UnitPrice.IsNegative() {
			return apperror.InvalidOrderData(fmt.Sprintf("item %d unit price must not be negative", i)).WithDetail("sku", it.SKU)
		}
	}

	if missing := o.Address.MissingFields(); len(missing) > 0 {
		return apperror.InvalidAddress("address is missing required fields").WithDetail("missing_fields", missing)
	}
	if !o.Address.IsResolvable() {
		return apperror.InvalidAddress(fmt.Sprintf("country %q is not an ISO-3166 alpha-2 code", o.Address.Country)).
			WithDetail("country", o.Address.Country)
	}

	currencies := o.Currencies()
	if len(currencies) > 1 {
		return apperror.InvalidOrderData("order mixes currencies").WithDetail("currencies", currencies)
	}
	if !s.acceptsCurrency(currencies[0]) {
		return apperror.InvalidOrderData(fmt.Sprintf("currency %q is not accepted", currencies[0])).
			WithDetail("currency", currencies[0])
	}

	for _, it := range o.Items {
		if _, ok := s.cfg.Catalog[it.SKU]; !ok {
			return apperror.InvalidProductSKU(it.SKU)
		}
	}

	return s.checkInventory(ctx, rec)
}

func (s *OrderSyncServiceImpl) acceptsCurrency(c string) bool {
	if c == "" {
		return false
	}
	for _, a := range s.cfg.AcceptedCurrencies {
		if strings.EqualFold(a, c) {
			return true
		}
	}
	return false
}

// checkInventory compares requested quantities with the provider's available
// stock and emits inventory.low for SKUs the order drains below the
// low-water mark. Only the lookup runs under the retry policy. A shortfall
// fails the stage at once; its retryable flag marks the order for reprocess
// or resubmission once stock arrives.
func (s *OrderSyncServiceImpl) checkInventory(ctx context.Context, rec *domain.SyncRecord) *apperror.ConnectorError {
	wanted := rec.Order.Quantities()
	skus := make([]string, 0, len(wanted))
	for sku := range wanted {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	providerSKUs := make([]string, 0, len(skus))
	for _, sku := range skus {
		providerSKUs = append(providerSKUs, s.cfg.Catalog[sku])
	}

	var levels []domain.InventoryLevel
	err := s.cfg.Retry.Do(ctx, func(ctx context.Context, _ int) error {
		var err error
		levels, err = s.fulfillment.GetInventory(ctx, providerSKUs)
		return err
	}, s.retryLogger(ctx, rec, "get_inventory"))
	if err != nil {
		ce := apperror.From(err)
		return apperror.Wrap(apperror.KindInventoryCheckFailed, "inventory check failed", err).
			WithDependency(ce.Dependency).
			WithDetail("cause", string(ce.Kind)).
			WithRetryable(retry.Retryable(err))
	}

	available := make(map[string]int, len(levels))
	for _, l := range levels {
		available[l.SellerSKU] = l.Available
	}

	for _, sku := range skus {
		providerSKU := s.cfg.Catalog[sku]
		have, want := available[providerSKU], wanted[sku]
		if have < want {
			return apperror.InsufficientInventory(sku, want, have)
		}
		if s.cfg.InventoryLowThreshold > 0 && have-want < s.cfg.InventoryLowThreshold {
			s.publish(ctx, domain.EventInventoryLow, rec, map[string]any{
				"sku":          sku,
				"provider_sku": providerSKU,
				"available":    have,
				"requested":    want,
				"threshold":    s.cfg.InventoryLowThreshold,
			}, nil)
		}
	}
	return nil
}

// transform maps a validated order onto the provider's schema. The record ID
// is the seller fulfillment order id, which the provider dedupes on.
func (s *OrderSyncServiceImpl) transform(rec *domain.SyncRecord) (domain.FulfillmentRequest, *apperror.ConnectorError) {
	o := rec.Order

	if s.cfg.ShippingSpeed == "" {
		return domain.FulfillmentRequest{}, apperror.New(apperror.KindTransformationFailed, "no shipping speed configured")
	}

	items := make([]domain.FulfillmentItem, 0, len(o.Items))
	for _, it := range o.Items {
		providerSKU, ok := s.cfg.Catalog[it.SKU]
		if !ok {
			return domain.FulfillmentRequest{}, apperror.New(apperror.KindTransformationFailed,
				fmt.Sprintf("no provider sku mapped for %q", it.SKU)).WithDetail("sku", it.SKU)
		}
		items = append(items, domain.FulfillmentItem{
			SellerSKU:      providerSKU,
			MarketplaceSKU: it.SKU,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
		})
	}

	placed := o.PlacedAt
	if placed.IsZero() {
		placed = rec.CreatedAt
	}

	return domain.FulfillmentRequest{
		SellerFulfillmentOrderID: rec.ID.String(),
		DisplayableOrderID:       o.ID,
		DisplayableOrderDate:     placed.UTC(),
		ShippingSpeed:            s.cfg.ShippingSpeed,
		Currency:                 o.Currencies()[0],
		Address:                  o.Address,
		Items:                    items,
	}, nil
}

// createFulfillmentOrder submits req under the stage's retry policy. A
// provider answer in a rejected status fails with ORDER_CREATION_FAILED.
func (s *OrderSyncServiceImpl) createFulfillmentOrder(ctx context.Context, rec *domain.SyncRecord, req domain.FulfillmentRequest) (*domain.FulfillmentOrder, *apperror.ConnectorError) {
	var fo *domain.FulfillmentOrder
	err := s.cfg.Retry.Do(ctx, func(ctx context.Context, _ int) error {
		var err error
		fo, err = s.fulfillment.CreateFulfillmentOrder(ctx, req)
		return err
	}, s.retryLogger(ctx, rec, "create_fulfillment_order"))
	if err != nil {
		return nil, apperror.From(err)
	}

	if fo.Status.IsRejected() {
		return fo, apperror.New(apperror.KindOrderCreationFailed,
			fmt.Sprintf("fulfillment provider returned status %s", fo.Status)).
			WithDependency("fulfillment").
			WithDetail("provider_status", string(fo.Status)).
			WithDetail("fulfillment_order_id", fo.ID)
	}
	return fo, nil
}
