package postgres

import (
	"context"
	"testing"
	"time"

	"order-sync-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subscriptionColumns() []string {
	return []string{"id", "url", "secret", "event_kinds", "active", "created_at"}
}

func TestWebhookSubscriptionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookSubscriptionRepo(mock)
	sub := &domain.WebhookSubscription{
		ID:         uuid.New(),
		URL:        "https://hooks.example.com/orders",
		Secret:     "whsec_test",
		EventKinds: []domain.WebhookEventKind{domain.EventFulfillmentCreated, domain.EventTrackingSynced},
		Active:     true,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectExec("INSERT INTO webhook_subscriptions").
		WithArgs(sub.ID, sub.URL, sub.Secret, []string{"fulfillment.created", "tracking.synced"}, true, sub.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), sub))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookSubscriptionRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookSubscriptionRepo(mock)
	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM webhook_subscriptions WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(subscriptionColumns()).
			AddRow(id, "https://hooks.example.com", "s", []string{"inventory.low"}, true, now))

	sub, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, []domain.WebhookEventKind{domain.EventInventoryLow}, sub.EventKinds)

	mock.ExpectQuery("SELECT .+ FROM webhook_subscriptions WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(subscriptionColumns()))

	sub, err = repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, sub)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookSubscriptionRepo_ListActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookSubscriptionRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM webhook_subscriptions WHERE active ORDER BY created_at").
		WillReturnRows(pgxmock.NewRows(subscriptionColumns()).
			AddRow(uuid.New(), "https://a.example.com", "s1", []string{}, true, now).
			AddRow(uuid.New(), "https://b.example.com", "s2", []string{"fulfillment.failed"}, true, now))

	subs, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Empty(t, subs[0].EventKinds)
	assert.Equal(t, "https://b.example.com", subs[1].URL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookSubscriptionRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookSubscriptionRepo(mock)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM webhook_subscriptions").WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM webhook_subscriptions").WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	deleted, err := repo.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryRepo_CreateAndUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	log := &domain.WebhookDeliveryLog{
		ID:             uuid.New(),
		EventID:        uuid.New(),
		EventKind:      domain.EventFulfillmentCreated,
		SubscriptionID: uuid.New(),
		OrderID:        "ORD-100",
		WebhookURL:     "https://hooks.example.com",
		Payload:        `{"kind":"fulfillment.created"}`,
		Attempt:        1,
		Status:         domain.WebhookStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	mock.ExpectExec("INSERT INTO webhook_delivery_logs").
		WithArgs(log.ID, log.EventID, "fulfillment.created", log.SubscriptionID, "ORD-100", log.WebhookURL,
			log.Payload, (*int)(nil), 1, "PENDING", (*time.Time)(nil), (*string)(nil), now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Create(context.Background(), log))

	status := 200
	log.HTTPStatus = &status
	log.Status = domain.WebhookStatusDelivered
	mock.ExpectExec("UPDATE webhook_delivery_logs").
		WithArgs(&status, 1, "DELIVERED", (*time.Time)(nil), (*string)(nil), pgxmock.AnyArg(), log.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.Update(context.Background(), log))

	mock.ExpectExec("UPDATE webhook_delivery_logs").
		WithArgs(&status, 1, "DELIVERED", (*time.Time)(nil), (*string)(nil), pgxmock.AnyArg(), log.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.Error(t, repo.Update(context.Background(), log))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryRepo_ListByOrderID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookDeliveryRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	status := 502
	lastErr := "HTTP 502"

	mock.ExpectQuery("SELECT .+ FROM webhook_delivery_logs WHERE order_id").
		WithArgs("ORD-100").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "event_id", "event_kind", "subscription_id", "order_id", "webhook_url", "payload",
			"http_status", "attempt", "status", "next_retry_at", "last_error", "created_at", "updated_at",
		}).AddRow(uuid.New(), uuid.New(), "fulfillment.failed", uuid.New(), "ORD-100", "https://h", "{}",
			&status, 4, "FAILED", (*time.Time)(nil), &lastErr, now, now))

	logs, err := repo.ListByOrderID(context.Background(), "ORD-100")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.EventFulfillmentFailed, logs[0].EventKind)
	assert.Equal(t, domain.WebhookStatusFailed, logs[0].Status)
	assert.Equal(t, 502, *logs[0].HTTPStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	for range schema {
		mock.ExpectExec("(CREATE (TABLE|INDEX) IF NOT EXISTS|ALTER TABLE .+ ADD COLUMN IF NOT EXISTS)").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	assert.NoError(t, EnsureSchema(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SELECT 1 FROM sync_records").WillReturnResult(pgxmock.NewResult("SELECT", 1))

	hc := NewHealthCheck(mock)
	assert.Equal(t, "postgres", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
