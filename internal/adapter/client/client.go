// Package client implements the HTTP clients for the fulfillment provider
// and the marketplace.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"order-sync-gateway/internal/resilience"
	"order-sync-gateway/pkg/apperror"
	"order-sync-gateway/pkg/logger"
)

const maxResponseBytes = 1 << 20

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// rest is the shared JSON-over-HTTP plumbing of both clients.
type rest struct {
	name    string
	baseURL string
	apiKey  string
	timeout time.Duration
	http    HTTPClient
	guard   *resilience.Guard
	apiKind apperror.Kind
}

// call is one request description.
type call struct {
	operation string
	method    string
	path      string
	headers   map[string]string
	body      any
	out       any
	// clientKind classifies non-auth, non-throttle 4xx responses.
	clientKind apperror.Kind
	notFound   string
}

// do runs c through the guard.
func (r *rest) do(ctx context.Context, c call) error {
	return r.guard.Execute(ctx, c.operation, func(ctx context.Context) error {
		return r.send(ctx, c)
	})
}

// send performs a single HTTP exchange with a per-attempt timeout.
func (r *rest) send(ctx context.Context, c call) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var body io.Reader
	if c.body != nil {
		b, err := json.Marshal(c.body)
		if err != nil {
			return apperror.Wrap(apperror.KindTransformationFailed, "encode request body", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, strings.TrimRight(r.baseURL, "/")+c.path, body)
	if err != nil {
		return apperror.Internal(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	if id := logger.CorrelationID(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return apperror.From(err).WithDependency(r.name)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperror.From(err).WithDependency(r.name)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if c.out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, c.out); err != nil {
			return apperror.Wrap(r.apiKind, fmt.Sprintf("%s returned malformed response", r.name), err).
				WithDependency(r.name)
		}
		return nil
	}
	return r.statusError(c, resp, raw)
}

// upstreamError is the error body both upstreams return.
type upstreamError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r *rest) statusError(c call, resp *http.Response, raw []byte) *apperror.ConnectorError {
	var ue upstreamError
	_ = json.Unmarshal(raw, &ue)
	msg := ue.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	var e *apperror.ConnectorError
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		e = apperror.New(apperror.KindAuthenticationFailed, fmt.Sprintf("%s rejected credentials", r.name))
	case resp.StatusCode == http.StatusTooManyRequests:
		e = apperror.RateLimitExceeded(r.name, parseRetryAfter(resp.Header.Get("Retry-After")))
	case resp.StatusCode >= 500:
		e = apperror.New(r.apiKind, fmt.Sprintf("%s %s failed: %s", r.name, c.operation, msg)).WithRetryable(true)
	case resp.StatusCode == http.StatusNotFound && c.notFound != "":
		e = apperror.NotFound(c.notFound)
	default:
		kind := c.clientKind
		if kind == "" {
			kind = r.apiKind
		}
		e = apperror.New(kind, fmt.Sprintf("%s %s rejected: %s", r.name, c.operation, msg))
	}

	e.WithDependency(r.name).WithDetail("status_code", resp.StatusCode)
	if ue.Code != "" {
		e.WithDetail("upstream_code", ue.Code)
	}
	return e
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
