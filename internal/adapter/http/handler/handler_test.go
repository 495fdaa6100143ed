package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"order-sync-gateway/config"
	"order-sync-gateway/internal/core/domain"
	"order-sync-gateway/internal/core/ports"
	"order-sync-gateway/internal/core/ports/mocks"
	"order-sync-gateway/internal/metrics"
	"order-sync-gateway/internal/resilience"
	"order-sync-gateway/pkg/apperror"
	"order-sync-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type routerFixture struct {
	router  *gin.Engine
	sync    *mocks.MockOrderSyncService
	webhook *mocks.MockWebhookService
	health  *mocks.MockHealthService
	store   *metrics.Store
}

func setupRouter(t *testing.T) *routerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	reg := prometheus.NewRegistry()
	f := &routerFixture{
		sync:    mocks.NewMockOrderSyncService(ctrl),
		webhook: mocks.NewMockWebhookService(ctrl),
		health:  mocks.NewMockHealthService(ctrl),
		store:   metrics.NewStore(metrics.Config{Namespace: "osg", Registerer: reg}),
	}
	f.router = SetupRouter(RouterDeps{
		OrderSyncSvc:   f.sync,
		WebhookSvc:     f.webhook,
		HealthSvc:      f.health,
		Metrics:        f.store,
		Gatherer:       reg,
		RequestTimeout: 200 * time.Millisecond,
		MaxBodyBytes:   1 << 20,
		ServiceName:    "order-sync-gateway",
		Logger:         zerolog.Nop(),
	})
	return f
}

func (f *routerFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "body: %s", w.Body.String())
	return data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

const orderBody = `{
	"order_id": "ORD-100",
	"status": "AWAITING_SHIPMENT",
	"shipping_address": {"name": "Ada Lovelace", "line1": "1 Main St", "city": "Springfield", "postal_code": "62701", "country": "US"},
	"items": [{"sku": "SKU-A", "quantity": 2, "unit_price": "19.99", "currency": "usd"}]
}`

func recordAt(orderID string, status domain.ProcessingStatus) *domain.SyncRecord {
	rec := domain.NewSyncRecord(domain.Order{ID: orderID}, time.Now())
	rec.Status = status
	return rec
}

// --- Orders ---

func TestSubmitOrder_Created(t *testing.T) {
	f := setupRouter(t)

	rec := recordAt("ORD-100", domain.StatusFulfillmentOrderCreated)
	rec.FulfillmentOrderID = rec.ID.String()
	f.sync.EXPECT().SubmitOrder(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, o domain.Order) (*domain.SyncRecord, bool, error) {
			assert.Equal(t, "ORD-100", o.ID)
			assert.Equal(t, domain.MarketplaceOrderStatus("AWAITING_SHIPMENT"), o.Status)
			require.Len(t, o.Items, 1)
			assert.Equal(t, "USD", o.Items[0].Currency)
			assert.Equal(t, "19.99", o.Items[0].UnitPrice.String())
			return rec, true, nil
		})

	w := f.do(http.MethodPost, "/api/v1/orders", orderBody)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
	data := decodeData(t, w)
	assert.Equal(t, "ORD-100", data["order_id"])
	assert.Equal(t, "FULFILLMENT_ORDER_CREATED", data["status"])
	assert.Equal(t, rec.ID.String(), data["fulfillment_order_id"])
}

func TestSubmitOrder_ExistingRecordIsOK(t *testing.T) {
	f := setupRouter(t)
	f.sync.EXPECT().SubmitOrder(gomock.Any(), gomock.Any()).
		Return(recordAt("ORD-100", domain.StatusCompleted), false, nil)

	w := f.do(http.MethodPost, "/api/v1/orders", orderBody)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "COMPLETED", decodeData(t, w)["status"])
}

func TestSubmitOrder_ValidationListsEveryField(t *testing.T) {
	f := setupRouter(t)

	w := f.do(http.MethodPost, "/api/v1/orders",
		`{"status":"LOST","items":[{"sku":"SKU-A","quantity":0,"currency":"USD"}]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "VALIDATION_FAILED", resp.ErrorCode)
	assert.False(t, resp.Retryable)

	fields := make([]string, 0, len(resp.Violations))
	for _, v := range resp.Violations {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"order_id", "status", "items[0].quantity"}, fields)
	assert.Equal(t, int64(1), f.store.ErrorCount(apperror.KindValidationFailed))
}

func TestSubmitOrder_PipelineFailure(t *testing.T) {
	f := setupRouter(t)
	f.sync.EXPECT().SubmitOrder(gomock.Any(), gomock.Any()).
		Return(nil, false, apperror.InvalidAddress("shipping address is missing postal_code"))

	w := f.do(http.MethodPost, "/api/v1/orders", orderBody)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "INVALID_ADDRESS", resp.ErrorCode)
	assert.Contains(t, resp.Message, "postal_code")
}

func TestSubmitOrder_UpstreamErrorIsSanitized(t *testing.T) {
	f := setupRouter(t)
	f.sync.EXPECT().SubmitOrder(gomock.Any(), gomock.Any()).
		Return(nil, false, apperror.New(apperror.KindOrderCreationFailed, "provider said: internal stack trace at line 42"))

	w := f.do(http.MethodPost, "/api/v1/orders", orderBody)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "ORDER_CREATION_FAILED", resp.ErrorCode)
	assert.NotContains(t, w.Body.String(), "stack trace")
}

func TestSubmitOrder_Timeout(t *testing.T) {
	f := setupRouter(t)
	f.sync.EXPECT().SubmitOrder(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ domain.Order) (*domain.SyncRecord, bool, error) {
			<-ctx.Done()
			return nil, false, apperror.Timeout(ctx.Err())
		})

	w := f.do(http.MethodPost, "/api/v1/orders", orderBody)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "TIMEOUT_ERROR", resp.ErrorCode)
	assert.True(t, resp.Retryable)
}

func TestGetOrder(t *testing.T) {
	f := setupRouter(t)

	rec := recordAt("ORD-7", domain.StatusFailed)
	rec.LastError = apperror.InsufficientInventory("SKU-A", 3, 1)
	rec.Transitions = append(rec.Transitions, domain.Transition{
		From: domain.StatusPending, To: domain.StatusFailed, At: time.Now(), Attempt: 1, Error: rec.LastError,
	})
	f.sync.EXPECT().GetRecord(gomock.Any(), "ORD-7").Return(rec, nil)

	w := f.do(http.MethodGet, "/api/v1/orders/ORD-7", "")

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "FAILED", data["status"])
	lastErr := data["last_error"].(map[string]any)
	assert.Equal(t, "INSUFFICIENT_INVENTORY", lastErr["kind"])
	assert.Len(t, data["transitions"], 2)
}

func TestSubmitOrder_FailedRecordAnswersWithCause(t *testing.T) {
	cases := []struct {
		name   string
		cause  *apperror.ConnectorError
		status int
		leak   string
	}{
		{
			name:   "business rule",
			cause:  apperror.InvalidAddress("shipping address is missing postal_code"),
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "upstream failure",
			cause: apperror.New(apperror.KindFulfillmentAPI, "fulfillment create failed: try again").
				WithRetryable(true).
				WithDependency("fulfillment").
				WithDetail("upstream_code", "BUSY"),
			status: http.StatusBadGateway,
			leak:   "try again",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := setupRouter(t)
			rec := recordAt("ORD-100", domain.StatusFailed)
			rec.LastError = tc.cause
			f.sync.EXPECT().SubmitOrder(gomock.Any(), gomock.Any()).Return(rec, true, nil)

			w := f.do(http.MethodPost, "/api/v1/orders", orderBody)

			assert.Equal(t, tc.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, string(tc.cause.Kind), resp.ErrorCode)
			assert.Equal(t, tc.cause.Retryable, resp.Retryable)
			if tc.leak != "" {
				assert.NotContains(t, w.Body.String(), tc.leak)
				assert.NotContains(t, w.Body.String(), "BUSY")
			}
		})
	}
}

func TestGetOrder_SanitizesUpstreamCause(t *testing.T) {
	f := setupRouter(t)

	rec := recordAt("ORD-8", domain.StatusFailed)
	rec.LastError = apperror.New(apperror.KindFulfillmentAPI, "fulfillment create failed: try again").
		WithDetail("status_code", 503).
		WithDetail("upstream_code", "BUSY")
	rec.Transitions = append(rec.Transitions, domain.Transition{
		From: domain.StatusCreatingFulfillmentOrder, To: domain.StatusFailed, At: time.Now(), Attempt: 1, Error: rec.LastError,
	})
	f.sync.EXPECT().GetRecord(gomock.Any(), "ORD-8").Return(rec, nil)

	w := f.do(http.MethodGet, "/api/v1/orders/ORD-8", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "try again")
	assert.NotContains(t, w.Body.String(), "BUSY")

	data := decodeData(t, w)
	lastErr := data["last_error"].(map[string]any)
	assert.Equal(t, "FULFILLMENT_API_ERROR", lastErr["kind"])
	assert.Equal(t, "Fulfillment provider request failed", lastErr["message"])
	assert.NotContains(t, lastErr, "details")
}

func TestGetOrder_NotFound(t *testing.T) {
	f := setupRouter(t)
	f.sync.EXPECT().GetRecord(gomock.Any(), "ORD-404").Return(nil, apperror.NotFound("sync record"))

	w := f.do(http.MethodGet, "/api/v1/orders/ORD-404", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).ErrorCode)
}

func TestListOrders(t *testing.T) {
	f := setupRouter(t)
	f.sync.EXPECT().ListRecords(gomock.Any(), ports.SyncRecordFilter{
		Statuses: []domain.ProcessingStatus{domain.StatusFailed, domain.StatusSyncingTracking},
		Limit:    10,
	}).Return([]domain.SyncRecord{*recordAt("ORD-1", domain.StatusFailed)}, nil)

	w := f.do(http.MethodGet, "/api/v1/orders?status=FAILED&status=SYNCING_TRACKING&limit=10", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "ORD-1", resp.Data[0]["order_id"])
}

func TestListOrders_InvalidQuery(t *testing.T) {
	f := setupRouter(t)

	w := f.do(http.MethodGet, "/api/v1/orders?status=LOST&limit=9999", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Len(t, resp.Violations, 2)
}

func TestReprocess(t *testing.T) {
	t.Run("failed record re-enters", func(t *testing.T) {
		f := setupRouter(t)
		rec := recordAt("ORD-9", domain.StatusFulfillmentOrderCreated)
		rec.Attempt = 2
		f.sync.EXPECT().Reprocess(gomock.Any(), "ORD-9").Return(rec, nil)

		w := f.do(http.MethodPost, "/api/v1/orders/ORD-9/reprocess", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 2, decodeData(t, w)["attempt"])
	})

	t.Run("active record conflicts", func(t *testing.T) {
		f := setupRouter(t)
		f.sync.EXPECT().Reprocess(gomock.Any(), "ORD-9").
			Return(nil, apperror.Conflict("order ORD-9 is COMPLETED; only FAILED records can be reprocessed"))

		w := f.do(http.MethodPost, "/api/v1/orders/ORD-9/reprocess", "")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "CONFLICT", decodeError(t, w).ErrorCode)
	})

	t.Run("failing again answers with the cause", func(t *testing.T) {
		f := setupRouter(t)
		rec := recordAt("ORD-9", domain.StatusFailed)
		rec.LastError = apperror.New(apperror.KindOrderCreationFailed, "provider returned status INVALID")
		f.sync.EXPECT().Reprocess(gomock.Any(), "ORD-9").Return(rec, nil)

		w := f.do(http.MethodPost, "/api/v1/orders/ORD-9/reprocess", "")

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "ORDER_CREATION_FAILED", decodeError(t, w).ErrorCode)
	})
}

// --- Tracking ---

func TestPushTracking(t *testing.T) {
	f := setupRouter(t)

	rec := recordAt("ORD-100", domain.StatusCompleted)
	f.sync.EXPECT().SyncTracking(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u ports.TrackingUpdate) (*domain.SyncRecord, error) {
			assert.Equal(t, "FO-1", u.FulfillmentOrderID)
			assert.Equal(t, domain.ProviderStatus("COMPLETE"), u.ProviderStatus)
			require.NotNil(t, u.Tracking)
			assert.Equal(t, "UPS", u.Tracking.Carrier)
			return rec, nil
		})

	w := f.do(http.MethodPost, "/api/v1/tracking",
		`{"fulfillment_order_id":"FO-1","status":"COMPLETE","tracking_number":"1Z999AA1","carrier":"UPS"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "COMPLETED", decodeData(t, w)["status"])
}

func TestPushTracking_MarketplaceDown(t *testing.T) {
	f := setupRouter(t)
	f.sync.EXPECT().SyncTracking(gomock.Any(), gomock.Any()).
		Return(nil, apperror.New(apperror.KindTrackingSyncFailed, "marketplace unavailable"))

	w := f.do(http.MethodPost, "/api/v1/tracking", `{"order_id":"ORD-100","tracking_number":"1Z","carrier":"UPS"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "TRACKING_SYNC_FAILED", resp.ErrorCode)
	assert.True(t, resp.Retryable)
}

func TestPushTracking_RequiresIdentifier(t *testing.T) {
	f := setupRouter(t)

	w := f.do(http.MethodPost, "/api/v1/tracking", `{"tracking_number":"1Z","carrier":"UPS"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, decodeError(t, w).Violations, 2)
}

// --- Webhooks ---

func TestCreateSubscription(t *testing.T) {
	f := setupRouter(t)

	sub := &domain.WebhookSubscription{
		ID:         uuid.New(),
		URL:        "https://hooks.example.com/orders",
		Secret:     "0123456789abcdef",
		EventKinds: []domain.WebhookEventKind{domain.EventFulfillmentFailed},
		Active:     true,
		CreatedAt:  time.Now(),
	}
	f.webhook.EXPECT().CreateSubscription(gomock.Any(), ports.CreateSubscriptionRequest{
		URL:        sub.URL,
		Secret:     sub.Secret,
		EventKinds: sub.EventKinds,
	}).Return(sub, nil)

	w := f.do(http.MethodPost, "/api/v1/webhooks/subscriptions",
		`{"url":"https://hooks.example.com/orders","secret":"0123456789abcdef","events":["fulfillment.failed"]}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, sub.ID.String(), data["id"])
	assert.NotContains(t, w.Body.String(), sub.Secret)
}

func TestListSubscriptions(t *testing.T) {
	f := setupRouter(t)
	f.webhook.EXPECT().ListSubscriptions(gomock.Any()).Return([]domain.WebhookSubscription{
		{ID: uuid.New(), URL: "https://static.example.com", Secret: "static-secret-value", Active: true, Static: true},
		{ID: uuid.New(), URL: "https://dynamic.example.com", Secret: "dynamic-secret-value", Active: true, CreatedAt: time.Now()},
	}, nil)

	w := f.do(http.MethodGet, "/api/v1/webhooks/subscriptions", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-value")
	var resp struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, true, resp.Data[0]["static"])
	assert.Equal(t, false, resp.Data[1]["static"])
}

func TestDeleteSubscription(t *testing.T) {
	t.Run("removed", func(t *testing.T) {
		f := setupRouter(t)
		id := uuid.New()
		f.webhook.EXPECT().DeleteSubscription(gomock.Any(), id).Return(nil)

		w := f.do(http.MethodDelete, "/api/v1/webhooks/subscriptions/"+id.String(), "")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("static subscriber", func(t *testing.T) {
		f := setupRouter(t)
		id := uuid.New()
		f.webhook.EXPECT().DeleteSubscription(gomock.Any(), id).
			Return(apperror.Conflict("subscription is configured statically and cannot be deleted"))

		w := f.do(http.MethodDelete, "/api/v1/webhooks/subscriptions/"+id.String(), "")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		f := setupRouter(t)

		w := f.do(http.MethodDelete, "/api/v1/webhooks/subscriptions/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		require.Len(t, resp.Violations, 1)
		assert.Equal(t, "id", resp.Violations[0].Field)
	})
}

func TestListDeliveries(t *testing.T) {
	f := setupRouter(t)
	code := 200
	f.webhook.EXPECT().ListDeliveries(gomock.Any(), "ORD-100").Return([]domain.WebhookDeliveryLog{{
		ID:         uuid.New(),
		EventKind:  domain.EventFulfillmentCreated,
		OrderID:    "ORD-100",
		WebhookURL: "https://hooks.example.com",
		HTTPStatus: &code,
		Attempt:    1,
		Status:     domain.WebhookStatusDelivered,
	}}, nil)

	w := f.do(http.MethodGet, "/api/v1/orders/ORD-100/deliveries", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []domain.WebhookDeliveryLog `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, domain.EventFulfillmentCreated, resp.Data[0].EventKind)
}

// --- Monitoring ---

func TestMonitoringErrors(t *testing.T) {
	f := setupRouter(t)
	f.sync.EXPECT().GetRecord(gomock.Any(), "ORD-404").Return(nil, apperror.NotFound("sync record"))
	f.do(http.MethodGet, "/api/v1/orders/ORD-404", "")

	w := f.do(http.MethodGet, "/api/v1/monitoring/errors", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	data := decodeData(t, w)
	byKind := data["errors_by_kind"].(map[string]any)
	assert.EqualValues(t, 1, byKind["NOT_FOUND"])
	recent := data["recent_errors"].([]any)
	require.Len(t, recent, 1)
	assert.Equal(t, "ORD-404", recent[0].(map[string]any)["order_id"])
}

func TestMonitoringErrors_DependencyStats(t *testing.T) {
	f := setupRouter(t)
	resilience.NewGuard("fulfillment", config.DependencyConfig{
		RateLimit: config.RateLimitConfig{Rate: 10, Burst: 5},
		Breaker:   config.BreakerConfig{FailureThreshold: 3, Window: time.Minute, Cooldown: time.Minute},
	}, f.store, noop.NewTracerProvider().Tracer("test"), zerolog.Nop())

	w := f.do(http.MethodGet, "/api/v1/monitoring/errors", "")

	assert.Equal(t, http.StatusOK, w.Code)
	deps := decodeData(t, w)["dependencies"].(map[string]any)
	dep := deps["fulfillment"].(map[string]any)
	assert.Equal(t, "CLOSED", dep["circuit_breaker"].(map[string]any)["state"])
	assert.EqualValues(t, 5, dep["rate_limit"].(map[string]any)["burst"])
}

func TestHealth(t *testing.T) {
	cases := []struct {
		status domain.HealthStatus
		code   int
	}{
		{domain.HealthHealthy, http.StatusOK},
		{domain.HealthDegraded, http.StatusOK},
		{domain.HealthUnhealthy, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			f := setupRouter(t)
			f.health.EXPECT().Check(gomock.Any()).Return(domain.NewHealthReport([]domain.ComponentHealth{
				{Name: "fulfillment", Status: tc.status},
			}))

			w := f.do(http.MethodGet, "/health", "")

			assert.Equal(t, tc.code, w.Code)
			assert.Equal(t, string(tc.status), decodeData(t, w)["status"])
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := setupRouter(t)
	f.sync.EXPECT().GetRecord(gomock.Any(), "ORD-404").Return(nil, apperror.NotFound("sync record"))
	f.do(http.MethodGet, "/api/v1/orders/ORD-404", "")

	w := f.do(http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "# TYPE osg_errors_total counter")
	assert.Contains(t, body, `kind="NOT_FOUND"`)
	assert.Contains(t, body, `source="http"`)
}

func TestSwagger(t *testing.T) {
	f := setupRouter(t)

	w := f.do(http.MethodGet, "/swagger/spec", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/orders")

	w = f.do(http.MethodGet, "/swagger", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swagger-ui")
}
