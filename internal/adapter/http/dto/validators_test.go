package dto

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOrderRequest() OrderRequest {
	return OrderRequest{
		OrderID: "ORD-100",
		Status:  "AWAITING_SHIPMENT",
		Address: AddressRequest{Name: "Ada", Line1: "1 Main St", City: "Springfield", PostalCode: "62701", Country: "us"},
		Items: []OrderItemRequest{
			{SKU: "SKU-A", Quantity: 2, UnitPrice: decimal.RequireFromString("19.99"), Currency: "usd"},
		},
	}
}

func fields(err error) []string {
	out := []string{}
	for _, v := range Violations(err) {
		out = append(out, v.Field)
	}
	return out
}

func TestValidate_OrderRequestValid(t *testing.T) {
	req := validOrderRequest()
	assert.NoError(t, binding.Validator.ValidateStruct(&req))
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	req := validOrderRequest()
	req.OrderID = ""
	req.Status = "SHIPPED"
	req.Items[0].SKU = "bad sku!"
	req.Items = append(req.Items, OrderItemRequest{SKU: "SKU-B", Quantity: 0, Currency: "dollars"})

	err := binding.Validator.ValidateStruct(&req)
	require.Error(t, err)

	assert.ElementsMatch(t, []string{
		"order_id", "status", "items[0].sku", "items[1].quantity", "items[1].currency",
	}, fields(err))

	for _, v := range Violations(err) {
		assert.NotEmpty(t, v.Rule)
		assert.NotEmpty(t, v.Message)
	}
}

func TestValidate_NoItems(t *testing.T) {
	req := validOrderRequest()
	req.Items = nil

	err := binding.Validator.ValidateStruct(&req)
	require.Error(t, err)
	vs := Violations(err)
	require.Len(t, vs, 1)
	assert.Equal(t, "items", vs[0].Field)
	assert.Equal(t, "required", vs[0].Rule)
}

func TestValidate_Country(t *testing.T) {
	cases := map[string]bool{"US": true, "de": true, "": true, "USA": false, "U1": false, "1": false}
	for country, ok := range cases {
		req := validOrderRequest()
		req.Address.Country = country
		err := binding.Validator.ValidateStruct(&req)
		assert.Equal(t, ok, err == nil, "country %q", country)
	}
}

func TestValidate_TrackingRequest(t *testing.T) {
	t.Run("needs an identifier", func(t *testing.T) {
		err := binding.Validator.ValidateStruct(&TrackingRequest{TrackingNumber: "1Z", Carrier: "UPS"})
		require.Error(t, err)
		assert.ElementsMatch(t, []string{"order_id", "fulfillment_order_id"}, fields(err))
	})

	t.Run("carrier travels with tracking number", func(t *testing.T) {
		err := binding.Validator.ValidateStruct(&TrackingRequest{FulfillmentOrderID: "FO-1", TrackingNumber: "1Z"})
		require.Error(t, err)
		assert.Equal(t, []string{"carrier"}, fields(err))
	})

	t.Run("status only", func(t *testing.T) {
		req := TrackingRequest{FulfillmentOrderID: "FO-1", ProviderStatus: "PROCESSING"}
		require.NoError(t, binding.Validator.ValidateStruct(&req))
		u := req.ToUpdate()
		assert.Nil(t, u.Tracking)
		assert.Equal(t, "FO-1", u.FulfillmentOrderID)
	})
}

func TestValidate_SubscriptionRequest(t *testing.T) {
	err := binding.Validator.ValidateStruct(&SubscriptionRequest{
		URL:    "javascript:alert(1)",
		Secret: "short",
		Events: []string{"tracking.synced", "order.shipped"},
	})
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"url", "secret", "events[1]"}, fields(err))
}

func TestViolations_DecodingErrors(t *testing.T) {
	var req OrderRequest

	err := json.Unmarshal([]byte(`{"order_id": 12}`), &req)
	vs := Violations(err)
	require.Len(t, vs, 1)
	assert.Equal(t, "order_id", vs[0].Field)
	assert.Equal(t, "type", vs[0].Rule)

	err = json.Unmarshal([]byte(`{"order_id": `), &req)
	vs = Violations(err)
	require.Len(t, vs, 1)
	assert.Equal(t, "body", vs[0].Field)

	vs = Violations(errors.New("boom"))
	assert.Equal(t, "invalid", vs[0].Rule)
}

func TestOrderRequest_ToDomain(t *testing.T) {
	req := validOrderRequest()
	req.OrderID = "  ORD-100 "

	o := req.ToDomain()
	assert.Equal(t, "ORD-100", o.ID)
	assert.Equal(t, "USD", o.Items[0].Currency)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.RequireFromString("19.99")))
	assert.True(t, o.PlacedAt.IsZero())
}

func TestListOrdersQuery_DefaultLimit(t *testing.T) {
	q := ListOrdersQuery{Status: []string{"FAILED"}}
	f := q.ToFilter()
	assert.Equal(t, 100, f.Limit)
	require.Len(t, f.Statuses, 1)
	assert.EqualValues(t, "FAILED", f.Statuses[0])
}
