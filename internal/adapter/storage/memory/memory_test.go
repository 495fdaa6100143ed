package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"order-sync-gateway/internal/core/domain"
	"order-sync-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncRecordRepo_CreateIsUniquePerOrder(t *testing.T) {
	repo := NewSyncRecordRepo()
	ctx := context.Background()

	first := domain.NewSyncRecord(domain.Order{ID: "ORD-1"}, time.Now())
	require.NoError(t, repo.Create(ctx, first))

	dup := domain.NewSyncRecord(domain.Order{ID: "ORD-1"}, time.Now())
	assert.ErrorIs(t, repo.Create(ctx, dup), ports.ErrDuplicateOrder)

	got, err := repo.GetByOrderID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestSyncRecordRepo_ConcurrentCreateOneWinner(t *testing.T) {
	repo := NewSyncRecordRepo()

	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(context.Background(), domain.NewSyncRecord(domain.Order{ID: "ORD-RACE"}, time.Now()))
			if err == nil {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
}

func TestSyncRecordRepo_UpdateCAS(t *testing.T) {
	repo := NewSyncRecordRepo()
	ctx := context.Background()
	rec := domain.NewSyncRecord(domain.Order{ID: "ORD-2"}, time.Now())
	require.NoError(t, repo.Create(ctx, rec))

	a, _ := repo.GetByID(ctx, rec.ID)
	b, _ := repo.GetByID(ctx, rec.ID)

	require.NoError(t, a.Advance(domain.StatusValidating, nil, time.Now()))
	require.NoError(t, repo.Update(ctx, a, 1))

	require.NoError(t, b.Advance(domain.StatusValidating, nil, time.Now()))
	assert.ErrorIs(t, repo.Update(ctx, b, 1), ports.ErrVersionConflict)

	stored, _ := repo.GetByID(ctx, rec.ID)
	assert.Equal(t, int64(2), stored.Version)
}

func TestSyncRecordRepo_ReturnsCopies(t *testing.T) {
	repo := NewSyncRecordRepo()
	ctx := context.Background()
	rec := domain.NewSyncRecord(domain.Order{ID: "ORD-3"}, time.Now())
	require.NoError(t, repo.Create(ctx, rec))

	rec.Status = domain.StatusCompleted
	got, _ := repo.GetByOrderID(ctx, "ORD-3")
	assert.Equal(t, domain.StatusPending, got.Status)

	got.Transitions[0].Attempt = 99
	again, _ := repo.GetByOrderID(ctx, "ORD-3")
	assert.Equal(t, 1, again.Transitions[0].Attempt)
}

func TestSyncRecordRepo_GetMissing(t *testing.T) {
	repo := NewSyncRecordRepo()
	ctx := context.Background()

	byID, err := repo.GetByID(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, byID)

	byFO, err := repo.GetByFulfillmentOrderID(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, byFO)
}

func TestSyncRecordRepo_ListFiltersAndOrders(t *testing.T) {
	repo := NewSyncRecordRepo()
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		rec := domain.NewSyncRecord(domain.Order{ID: fmt.Sprintf("ORD-%d", i)}, base.Add(time.Duration(5-i)*time.Minute))
		if i%2 == 0 {
			rec.Status = domain.StatusSyncingTracking
			rec.FulfillmentOrderID = fmt.Sprintf("FO-%d", i)
		}
		require.NoError(t, repo.Create(ctx, rec))
	}

	got, err := repo.List(ctx, ports.SyncRecordFilter{Statuses: []domain.ProcessingStatus{domain.StatusSyncingTracking}})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"ORD-4", "ORD-2", "ORD-0"}, []string{got[0].OrderID, got[1].OrderID, got[2].OrderID})

	limited, err := repo.List(ctx, ports.SyncRecordFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	fo, err := repo.GetByFulfillmentOrderID(ctx, "FO-2")
	require.NoError(t, err)
	assert.Equal(t, "ORD-2", fo.OrderID)
}

func TestWebhookSubscriptionRepo(t *testing.T) {
	repo := NewWebhookSubscriptionRepo()
	ctx := context.Background()
	now := time.Now()

	active := &domain.WebhookSubscription{ID: uuid.New(), URL: "https://a", Active: true, CreatedAt: now}
	inactive := &domain.WebhookSubscription{ID: uuid.New(), URL: "https://b", Active: false, CreatedAt: now.Add(time.Second)}
	require.NoError(t, repo.Create(ctx, active))
	require.NoError(t, repo.Create(ctx, inactive))

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyActive, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, "https://a", onlyActive[0].URL)

	deleted, err := repo.Delete(ctx, active.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, active.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := repo.GetByID(ctx, active.ID)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestWebhookDeliveryRepo(t *testing.T) {
	repo := NewWebhookDeliveryRepo()
	ctx := context.Background()
	now := time.Now()

	older := &domain.WebhookDeliveryLog{ID: uuid.New(), OrderID: "ORD-1", Status: domain.WebhookStatusPending, CreatedAt: now}
	newer := &domain.WebhookDeliveryLog{ID: uuid.New(), OrderID: "ORD-1", Status: domain.WebhookStatusPending, CreatedAt: now.Add(time.Second)}
	other := &domain.WebhookDeliveryLog{ID: uuid.New(), OrderID: "ORD-2", CreatedAt: now}
	for _, l := range []*domain.WebhookDeliveryLog{older, newer, other} {
		require.NoError(t, repo.Create(ctx, l))
	}

	older.Status = domain.WebhookStatusDelivered
	require.NoError(t, repo.Update(ctx, older))
	assert.Error(t, repo.Update(ctx, &domain.WebhookDeliveryLog{ID: uuid.New()}))

	logs, err := repo.ListByOrderID(ctx, "ORD-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, newer.ID, logs[0].ID)
	assert.Equal(t, domain.WebhookStatusDelivered, logs[1].Status)
}

func TestProcessingLock(t *testing.T) {
	lock := NewProcessingLock()
	now := time.Now()
	lock.clock = func() time.Time { return now }
	ctx := context.Background()

	token, err := lock.Acquire(ctx, "rec", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	held, err := lock.Acquire(ctx, "rec", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, held)

	require.NoError(t, lock.Release(ctx, "rec", "not-the-token"))
	held, _ = lock.Acquire(ctx, "rec", time.Minute)
	assert.Empty(t, held)

	now = now.Add(2 * time.Minute)
	expired, err := lock.Acquire(ctx, "rec", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, expired, "expired lease can be taken over")

	require.NoError(t, lock.Release(ctx, "rec", expired))
	free, _ := lock.Acquire(ctx, "rec", time.Minute)
	assert.NotEmpty(t, free)
}
