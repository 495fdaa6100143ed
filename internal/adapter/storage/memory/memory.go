// Package memory provides in-process implementations of the storage ports
// for single-replica deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"order-sync-gateway/internal/core/domain"
	"order-sync-gateway/internal/core/ports"

	"github.com/google/uuid"
)

const defaultListLimit = 100

// SyncRecordRepo keeps records in maps guarded by one RWMutex. Records are
// copied on the way in and out so callers never share state with the store.
type SyncRecordRepo struct {
	mu        sync.RWMutex
	records   map[uuid.UUID]*domain.SyncRecord
	byOrderID map[string]uuid.UUID
}

func NewSyncRecordRepo() *SyncRecordRepo {
	return &SyncRecordRepo{
		records:   make(map[uuid.UUID]*domain.SyncRecord),
		byOrderID: make(map[string]uuid.UUID),
	}
}

var _ ports.SyncRecordRepository = (*SyncRecordRepo)(nil)

func (r *SyncRecordRepo) Create(ctx context.Context, rec *domain.SyncRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byOrderID[rec.OrderID]; ok {
		return ports.ErrDuplicateOrder
	}
	r.records[rec.ID] = rec.Clone()
	r.byOrderID[rec.OrderID] = rec.ID
	return nil
}

func (r *SyncRecordRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records[id].Clone(), nil
}

func (r *SyncRecordRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.SyncRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byOrderID[orderID]
	if !ok {
		return nil, nil
	}
	return r.records[id].Clone(), nil
}

func (r *SyncRecordRepo) GetByFulfillmentOrderID(ctx context.Context, fulfillmentOrderID string) (*domain.SyncRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.FulfillmentOrderID != "" && rec.FulfillmentOrderID == fulfillmentOrderID {
			return rec.Clone(), nil
		}
	}
	return nil, nil
}

func (r *SyncRecordRepo) Update(ctx context.Context, rec *domain.SyncRecord, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.records[rec.ID]
	if !ok || cur.Version != expectedVersion {
		return ports.ErrVersionConflict
	}
	r.records[rec.ID] = rec.Clone()
	return nil
}

func (r *SyncRecordRepo) List(ctx context.Context, filter ports.SyncRecordFilter) ([]domain.SyncRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := make(map[domain.ProcessingStatus]bool, len(filter.Statuses))
	for _, s := range filter.Statuses {
		want[s] = true
	}

	out := make([]domain.SyncRecord, 0)
	for _, rec := range r.records {
		if len(want) > 0 && !want[rec.Status] {
			continue
		}
		out = append(out, *rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].OrderID < out[j].OrderID
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// WebhookSubscriptionRepo is an in-memory subscriber registry.
type WebhookSubscriptionRepo struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]domain.WebhookSubscription
}

func NewWebhookSubscriptionRepo() *WebhookSubscriptionRepo {
	return &WebhookSubscriptionRepo{subs: make(map[uuid.UUID]domain.WebhookSubscription)}
}

var _ ports.WebhookSubscriptionRepository = (*WebhookSubscriptionRepo)(nil)

func (r *WebhookSubscriptionRepo) Create(ctx context.Context, sub *domain.WebhookSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	cp.EventKinds = append([]domain.WebhookEventKind(nil), sub.EventKinds...)
	r.subs[sub.ID] = cp
	return nil
}

func (r *WebhookSubscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (r *WebhookSubscriptionRepo) List(ctx context.Context, activeOnly bool) ([]domain.WebhookSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.WebhookSubscription, 0, len(r.subs))
	for _, sub := range r.subs {
		if activeOnly && !sub.Active {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *WebhookSubscriptionRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[id]; !ok {
		return false, nil
	}
	delete(r.subs, id)
	return true, nil
}

// WebhookDeliveryRepo keeps delivery logs per order.
type WebhookDeliveryRepo struct {
	mu   sync.RWMutex
	logs map[uuid.UUID]domain.WebhookDeliveryLog
}

func NewWebhookDeliveryRepo() *WebhookDeliveryRepo {
	return &WebhookDeliveryRepo{logs: make(map[uuid.UUID]domain.WebhookDeliveryLog)}
}

var _ ports.WebhookDeliveryRepository = (*WebhookDeliveryRepo)(nil)

func (r *WebhookDeliveryRepo) Create(ctx context.Context, log *domain.WebhookDeliveryLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[log.ID] = *log
	return nil
}

func (r *WebhookDeliveryRepo) Update(ctx context.Context, log *domain.WebhookDeliveryLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.logs[log.ID]; !ok {
		return fmt.Errorf("webhook delivery log not found: %s", log.ID)
	}
	log.UpdatedAt = time.Now().UTC()
	r.logs[log.ID] = *log
	return nil
}

func (r *WebhookDeliveryRepo) ListByOrderID(ctx context.Context, orderID string) ([]domain.WebhookDeliveryLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WebhookDeliveryLog
	for _, l := range r.logs {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ProcessingLock is a process-local ports.ProcessingLock with expiry.
type ProcessingLock struct {
	mu    sync.Mutex
	held  map[string]lease
	clock func() time.Time
}

type lease struct {
	token   string
	expires time.Time
}

func NewProcessingLock() *ProcessingLock {
	return &ProcessingLock{held: make(map[string]lease), clock: time.Now}
}

var _ ports.ProcessingLock = (*ProcessingLock)(nil)

func (l *ProcessingLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return "", nil
	}
	token := uuid.NewString()
	l.held[key] = lease{token: token, expires: now.Add(ttl)}
	return token, nil
}

func (l *ProcessingLock) Release(ctx context.Context, key string, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.held[key]; ok && cur.token == token {
		delete(l.held, key)
	}
	return nil
}
