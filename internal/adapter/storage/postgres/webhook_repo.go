package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-sync-gateway/internal/core/domain"
	"order-sync-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WebhookDeliveryRepo implements ports.WebhookDeliveryRepository.
type WebhookDeliveryRepo struct {
	pool Pool
}

func NewWebhookDeliveryRepo(pool Pool) *WebhookDeliveryRepo {
	return &WebhookDeliveryRepo{pool: pool}
}

var _ ports.WebhookDeliveryRepository = (*WebhookDeliveryRepo)(nil)

func (r *WebhookDeliveryRepo) Create(ctx context.Context, log *domain.WebhookDeliveryLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO webhook_delivery_logs
		(id, event_id, event_kind, subscription_id, order_id, webhook_url, payload, http_status,
		 attempt, status, next_retry_at, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		log.ID, log.EventID, string(log.EventKind), log.SubscriptionID, log.OrderID, log.WebhookURL,
		log.Payload, log.HTTPStatus, log.Attempt, string(log.Status),
		log.NextRetryAt, log.LastError, log.CreatedAt, log.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook delivery log: %w", err)
	}
	return nil
}

func (r *WebhookDeliveryRepo) Update(ctx context.Context, log *domain.WebhookDeliveryLog) error {
	log.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`UPDATE webhook_delivery_logs
		SET http_status = $1, attempt = $2, status = $3, next_retry_at = $4, last_error = $5, updated_at = $6
		WHERE id = $7`,
		log.HTTPStatus, log.Attempt, string(log.Status),
		log.NextRetryAt, log.LastError, log.UpdatedAt, log.ID,
	)
	if err != nil {
		return fmt.Errorf("update webhook delivery log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("webhook delivery log not found: %s", log.ID)
	}
	return nil
}

// ListByOrderID returns an order's delivery attempts, newest first.
func (r *WebhookDeliveryRepo) ListByOrderID(ctx context.Context, orderID string) ([]domain.WebhookDeliveryLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, event_kind, subscription_id, order_id, webhook_url, payload,
		http_status, attempt, status, next_retry_at, last_error, created_at, updated_at
		FROM webhook_delivery_logs
		WHERE order_id = $1
		ORDER BY created_at DESC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list webhook delivery logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.WebhookDeliveryLog
	for rows.Next() {
		var (
			l            domain.WebhookDeliveryLog
			kind, status string
		)
		if err := rows.Scan(
			&l.ID, &l.EventID, &kind, &l.SubscriptionID, &l.OrderID, &l.WebhookURL, &l.Payload,
			&l.HTTPStatus, &l.Attempt, &status, &l.NextRetryAt, &l.LastError,
			&l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan webhook delivery log: %w", err)
		}
		l.EventKind = domain.WebhookEventKind(kind)
		l.Status = domain.WebhookStatus(status)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// WebhookSubscriptionRepo implements ports.WebhookSubscriptionRepository.
type WebhookSubscriptionRepo struct {
	pool Pool
}

func NewWebhookSubscriptionRepo(pool Pool) *WebhookSubscriptionRepo {
	return &WebhookSubscriptionRepo{pool: pool}
}

var _ ports.WebhookSubscriptionRepository = (*WebhookSubscriptionRepo)(nil)

func (r *WebhookSubscriptionRepo) Create(ctx context.Context, sub *domain.WebhookSubscription) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO webhook_subscriptions (id, url, secret, event_kinds, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.URL, sub.Secret, kindStrings(sub.EventKinds), sub.Active, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook subscription: %w", err)
	}
	return nil
}

func (r *WebhookSubscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookSubscription, error) {
	sub, err := scanSubscription(r.pool.QueryRow(ctx,
		`SELECT id, url, secret, event_kinds, active, created_at FROM webhook_subscriptions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return sub, err
}

func (r *WebhookSubscriptionRepo) List(ctx context.Context, activeOnly bool) ([]domain.WebhookSubscription, error) {
	query := `SELECT id, url, secret, event_kinds, active, created_at FROM webhook_subscriptions`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list webhook subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.WebhookSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (r *WebhookSubscriptionRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webhook_subscriptions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete webhook subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanSubscription(row pgx.Row) (*domain.WebhookSubscription, error) {
	var (
		sub   domain.WebhookSubscription
		kinds []string
	)
	if err := row.Scan(&sub.ID, &sub.URL, &sub.Secret, &kinds, &sub.Active, &sub.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan webhook subscription: %w", err)
	}
	for _, k := range kinds {
		sub.EventKinds = append(sub.EventKinds, domain.WebhookEventKind(k))
	}
	return &sub, nil
}

func kindStrings(kinds []domain.WebhookEventKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
