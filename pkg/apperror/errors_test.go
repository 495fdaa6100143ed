package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectorError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConnectorError
		expected string
	}{
		{
			name:     "without wrapped error",
			err:      New(KindInvalidAddress, "postal code missing"),
			expected: "[INVALID_ADDRESS] postal code missing",
		},
		{
			name:     "with wrapped error",
			err:      Wrap(KindNetwork, "dial failed", fmt.Errorf("connection refused")),
			expected: "[NETWORK_ERROR] dial failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestConnectorError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	err := Wrap(KindUnknown, "wrapped", inner)

	assert.True(t, errors.Is(err, inner))
	assert.Nil(t, New(KindNotFound, "x").Unwrap())
}

func TestKindTable(t *testing.T) {
	tests := []struct {
		kind      Kind
		status    int
		retryable bool
	}{
		{KindInvalidOrderData, 422, false},
		{KindInvalidAddress, 422, false},
		{KindInvalidProductSKU, 422, false},
		{KindValidationFailed, 400, false},
		{KindInsufficientInventory, 409, true},
		{KindInventoryCheckFailed, 502, true},
		{KindMarketplaceAPI, 502, false},
		{KindFulfillmentAPI, 502, false},
		{KindAuthenticationFailed, 502, false},
		{KindRateLimitExceeded, 429, true},
		{KindCircuitOpen, 503, false},
		{KindTransformationFailed, 500, false},
		{KindOrderCreationFailed, 502, false},
		{KindTrackingSyncFailed, 502, true},
		{KindNetwork, 503, true},
		{KindTimeout, 504, true},
		{KindNotFound, 404, false},
		{KindConflict, 409, false},
		{KindUnknown, 500, false},
	}

	require.Len(t, Kinds(), len(tests), "every kind must have a table entry")
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.True(t, tt.kind.IsValid())
			assert.Equal(t, tt.status, tt.kind.HTTPStatus())
			assert.Equal(t, tt.retryable, tt.kind.RetryableByDefault())
			assert.Equal(t, tt.retryable, New(tt.kind, "m").Retryable)
		})
	}
}

func TestUnknownKind_FallsBack(t *testing.T) {
	k := Kind("SOMETHING_ELSE")
	assert.False(t, k.IsValid())
	assert.Equal(t, http.StatusInternalServerError, k.HTTPStatus())
	assert.False(t, k.RetryableByDefault())
}

func TestPublicMessage_SanitizesServerErrors(t *testing.T) {
	internal := Wrap(KindUnknown, "pq: relation sync_records does not exist", errors.New("boom"))
	assert.Equal(t, "Internal server error", internal.PublicMessage())

	client := InvalidOrderData("order has no items")
	assert.Equal(t, "order has no items", client.PublicMessage())
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFrom(t *testing.T) {
	ce := InvalidProductSKU("SKU-Z")
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"passthrough", fmt.Errorf("ctx: %w", ce), KindInvalidProductSKU},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"canceled", context.Canceled, KindTimeout},
		{"net timeout", timeoutErr{}, KindTimeout},
		{"net op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, KindNetwork},
		{"plain", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, From(tt.err).Kind)
		})
	}

	assert.Nil(t, From(nil))
	assert.Same(t, ce, From(fmt.Errorf("wrapped: %w", ce)))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.True(t, IsRetryable(New(KindFulfillmentAPI, "503").WithRetryable(true)))
}

func TestConstructors(t *testing.T) {
	inv := InsufficientInventory("SKU-A", 5, 2)
	assert.Equal(t, KindInsufficientInventory, inv.Kind)
	assert.Equal(t, 5, inv.Details["requested"])
	assert.Equal(t, 2, inv.Details["available"])

	rl := RateLimitExceeded("fulfillment", 2*time.Second)
	assert.Equal(t, "fulfillment", rl.Dependency)
	assert.Equal(t, 2*time.Second, rl.RetryAfter())

	co := CircuitOpen("marketplace", 30*time.Second)
	assert.Equal(t, KindCircuitOpen, co.Kind)
	assert.Equal(t, 30*time.Second, co.RetryAfter())

	v := Validation(Violation{Field: "id", Rule: "required"}, Violation{Field: "items", Rule: "min"})
	assert.Len(t, v.Violations, 2)
	assert.Equal(t, http.StatusBadRequest, v.HTTPStatus())

	nf := NotFound("Sync record")
	assert.Contains(t, nf.Message, "Sync record")
	assert.Zero(t, nf.RetryAfter())
}

func TestConnectorError_Clone(t *testing.T) {
	var nilErr *ConnectorError
	assert.Nil(t, nilErr.Clone())

	cause := errors.New("dial tcp: refused")
	orig := Validation(Violation{Field: "items", Rule: "min", Message: "at least one item"}).
		WithDetail("stage", "VALIDATING")
	orig.Err = cause

	c := orig.Clone()
	c.Details["stage"] = "FAILED"
	c.Violations[0].Field = "address"

	assert.Equal(t, "VALIDATING", orig.Details["stage"])
	assert.Equal(t, "items", orig.Violations[0].Field)
	assert.Same(t, cause, c.Err)
}
