package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Kind is the closed set of failure categories produced by the gateway.
type Kind string

const (
	// ---- Validation (never retryable) ----
	KindInvalidOrderData  Kind = "INVALID_ORDER_DATA"
	KindInvalidAddress    Kind = "INVALID_ADDRESS"
	KindInvalidProductSKU Kind = "INVALID_PRODUCT_SKU"
	KindValidationFailed  Kind = "VALIDATION_FAILED"

	// ---- Inventory (retryable, counts change) ----
	KindInsufficientInventory Kind = "INSUFFICIENT_INVENTORY"
	KindInventoryCheckFailed  Kind = "INVENTORY_CHECK_FAILED"

	// ---- Upstream APIs ----
	KindMarketplaceAPI       Kind = "MARKETPLACE_API_ERROR"
	KindFulfillmentAPI       Kind = "FULFILLMENT_API_ERROR"
	KindAuthenticationFailed Kind = "AUTHENTICATION_FAILED"
	KindRateLimitExceeded    Kind = "RATE_LIMIT_EXCEEDED"
	KindCircuitOpen          Kind = "CIRCUIT_OPEN"

	// ---- Processing ----
	KindTransformationFailed Kind = "TRANSFORMATION_FAILED"
	KindOrderCreationFailed  Kind = "ORDER_CREATION_FAILED"
	KindTrackingSyncFailed   Kind = "TRACKING_SYNC_FAILED"

	// ---- System ----
	KindNetwork  Kind = "NETWORK_ERROR"
	KindTimeout  Kind = "TIMEOUT_ERROR"
	KindNotFound Kind = "NOT_FOUND"
	KindConflict Kind = "CONFLICT"
	KindUnknown  Kind = "UNKNOWN_ERROR"
)

type kindSpec struct {
	status    int
	retryable bool
	public    string // message returned to callers for 5xx responses
}

// kindTable must list every Kind. Lookups of an unlisted kind fall back to
// UNKNOWN_ERROR.
var kindTable = map[Kind]kindSpec{
	KindInvalidOrderData:      {http.StatusUnprocessableEntity, false, ""},
	KindInvalidAddress:        {http.StatusUnprocessableEntity, false, ""},
	KindInvalidProductSKU:     {http.StatusUnprocessableEntity, false, ""},
	KindValidationFailed:      {http.StatusBadRequest, false, ""},
	KindInsufficientInventory: {http.StatusConflict, true, ""},
	KindInventoryCheckFailed:  {http.StatusBadGateway, true, "Inventory check failed"},
	KindMarketplaceAPI:        {http.StatusBadGateway, false, "Marketplace request failed"},
	KindFulfillmentAPI:        {http.StatusBadGateway, false, "Fulfillment provider request failed"},
	KindAuthenticationFailed:  {http.StatusBadGateway, false, "Upstream authentication failed"},
	KindRateLimitExceeded:     {http.StatusTooManyRequests, true, ""},
	KindCircuitOpen:           {http.StatusServiceUnavailable, false, "Dependency temporarily unavailable"},
	KindTransformationFailed:  {http.StatusInternalServerError, false, "Order transformation failed"},
	KindOrderCreationFailed:   {http.StatusBadGateway, false, "Fulfillment order creation failed"},
	KindTrackingSyncFailed:    {http.StatusBadGateway, true, "Tracking sync failed"},
	KindNetwork:               {http.StatusServiceUnavailable, true, "Upstream network error"},
	KindTimeout:               {http.StatusGatewayTimeout, true, "Request timed out"},
	KindNotFound:              {http.StatusNotFound, false, ""},
	KindConflict:              {http.StatusConflict, false, ""},
	KindUnknown:               {http.StatusInternalServerError, false, "Internal server error"},
}

func specFor(k Kind) kindSpec {
	if s, ok := kindTable[k]; ok {
		return s
	}
	return kindTable[KindUnknown]
}

// Kinds returns every known kind.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindTable))
	for k := range kindTable {
		out = append(out, k)
	}
	return out
}

// HTTPStatus maps a kind to its transport status code.
func (k Kind) HTTPStatus() int { return specFor(k).status }

// RetryableByDefault reports the default retry classification of a kind.
func (k Kind) RetryableByDefault() bool { return specFor(k).retryable }

// IsValid reports whether k belongs to the taxonomy.
func (k Kind) IsValid() bool {
	_, ok := kindTable[k]
	return ok
}

// Violation is one failed field rule in a validation error.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ConnectorError is the value every component returns instead of letting a
// fault escape its boundary.
type ConnectorError struct {
	Kind       Kind           `json:"kind"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Retryable  bool           `json:"retryable"`
	Dependency string         `json:"dependency,omitempty"`
	Violations []Violation    `json:"violations,omitempty"`
	Err        error          `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *ConnectorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *ConnectorError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code for the error's kind.
func (e *ConnectorError) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

// PublicMessage is the message safe to return to a caller. Server-side kinds
// never leak the internal message.
func (e *ConnectorError) PublicMessage() string {
	s := specFor(e.Kind)
	if s.status >= http.StatusInternalServerError && s.public != "" {
		return s.public
	}
	return e.Message
}

// WithDetail sets a structured detail and returns the receiver.
func (e *ConnectorError) WithDetail(key string, value any) *ConnectorError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithDependency tags the error with the dependency that produced it.
func (e *ConnectorError) WithDependency(dep string) *ConnectorError {
	e.Dependency = dep
	return e
}

// WithRetryable overrides the kind's default retry classification.
func (e *ConnectorError) WithRetryable(retryable bool) *ConnectorError {
	e.Retryable = retryable
	return e
}

// Clone returns a copy that shares no maps or slices with e. The wrapped
// error is kept as is.
func (e *ConnectorError) Clone() *ConnectorError {
	if e == nil {
		return nil
	}
	c := *e
	if e.Details != nil {
		c.Details = make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			c.Details[k] = v
		}
	}
	c.Violations = append([]Violation(nil), e.Violations...)
	return &c
}

// RetryAfter returns the "retry_after" detail when present.
func (e *ConnectorError) RetryAfter() time.Duration {
	if e.Details == nil {
		return 0
	}
	if d, ok := e.Details["retry_after"].(time.Duration); ok {
		return d
	}
	return 0
}

// New creates a ConnectorError with the kind's default retryability.
func New(kind Kind, message string) *ConnectorError {
	return &ConnectorError{
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Retryable: kind.RetryableByDefault(),
	}
}

// Wrap wraps an internal error with a ConnectorError.
func Wrap(kind Kind, message string, err error) *ConnectorError {
	e := New(kind, message)
	e.Err = err
	return e
}

// As extracts a *ConnectorError from err's chain.
func As(err error) (*ConnectorError, bool) {
	var ce *ConnectorError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// From normalizes any error into a ConnectorError. Transport and context
// errors are classified; anything else becomes UNKNOWN_ERROR.
func From(err error) *ConnectorError {
	if err == nil {
		return nil
	}
	if ce, ok := As(err); ok {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Timeout(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Timeout(err)
		}
		return Wrap(KindNetwork, "Network error", err)
	}
	return Internal(err)
}

// KindOf returns the kind of err after normalization.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return From(err).Kind
}

// IsRetryable reports whether err is classified as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return From(err).Retryable
}

// ---- Validation ----

func InvalidOrderData(message string) *ConnectorError {
	return New(KindInvalidOrderData, message)
}

func InvalidAddress(message string) *ConnectorError {
	return New(KindInvalidAddress, message)
}

func InvalidProductSKU(sku string) *ConnectorError {
	return New(KindInvalidProductSKU, fmt.Sprintf("unknown product SKU %q", sku)).WithDetail("sku", sku)
}

// Validation builds a request-schema error listing every violation.
func Validation(violations ...Violation) *ConnectorError {
	e := New(KindValidationFailed, "Request validation failed")
	e.Violations = violations
	return e
}

// ---- Inventory ----

func InsufficientInventory(sku string, requested, available int) *ConnectorError {
	return New(KindInsufficientInventory, fmt.Sprintf("insufficient inventory for %s", sku)).
		WithDetail("sku", sku).
		WithDetail("requested", requested).
		WithDetail("available", available)
}

// ---- Upstream ----

func RateLimitExceeded(dependency string, retryAfter time.Duration) *ConnectorError {
	e := New(KindRateLimitExceeded, fmt.Sprintf("rate limit exceeded for %s", dependency)).WithDependency(dependency)
	if retryAfter > 0 {
		e.WithDetail("retry_after", retryAfter)
	}
	return e
}

func CircuitOpen(dependency string, retryAfter time.Duration) *ConnectorError {
	return New(KindCircuitOpen, fmt.Sprintf("circuit open for %s", dependency)).
		WithDependency(dependency).
		WithDetail("retry_after", retryAfter)
}

// ---- System ----

func Timeout(err error) *ConnectorError {
	return Wrap(KindTimeout, "Operation timed out", err)
}

func NotFound(entity string) *ConnectorError {
	return New(KindNotFound, fmt.Sprintf("%s not found", entity))
}

func Conflict(message string) *ConnectorError {
	return New(KindConflict, message)
}

// Internal wraps an unexpected fault as UNKNOWN_ERROR.
func Internal(err error) *ConnectorError {
	return Wrap(KindUnknown, "Internal server error", err)
}
