package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"order-sync-gateway/internal/core/domain"
	"order-sync-gateway/internal/core/ports"
	"order-sync-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const defaultListLimit = 100

const syncRecordColumns = `id, order_id, fulfillment_order_id, provider_status, status, attempt, tracking_attempts, version,
	order_data, tracking, last_error, transitions, created_at, updated_at`

// SyncRecordRepo implements ports.SyncRecordRepository. The order, tracking,
// last error and audit trail are stored as JSONB.
type SyncRecordRepo struct {
	pool Pool
}

// NewSyncRecordRepo creates a new SyncRecordRepo.
func NewSyncRecordRepo(pool Pool) *SyncRecordRepo {
	return &SyncRecordRepo{pool: pool}
}

var _ ports.SyncRecordRepository = (*SyncRecordRepo)(nil)

// Create inserts a record. The unique order_id column turns a concurrent
// duplicate submission into ports.ErrDuplicateOrder.
func (r *SyncRecordRepo) Create(ctx context.Context, rec *domain.SyncRecord) error {
	cols, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	query := `INSERT INTO sync_records (` + syncRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.OrderID, cols.fulfillmentOrderID, cols.providerStatus, string(rec.Status),
		rec.Attempt, rec.TrackingAttempts, rec.Version, cols.order, cols.tracking, cols.lastError, cols.transitions,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "sync_records_order_id_key" {
			return ports.ErrDuplicateOrder
		}
		return fmt.Errorf("insert sync record: %w", err)
	}
	return nil
}

func (r *SyncRecordRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncRecord, error) {
	query := `SELECT ` + syncRecordColumns + ` FROM sync_records WHERE id = $1`
	return scanRecord(r.pool.QueryRow(ctx, query, id))
}

func (r *SyncRecordRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.SyncRecord, error) {
	query := `SELECT ` + syncRecordColumns + ` FROM sync_records WHERE order_id = $1`
	return scanRecord(r.pool.QueryRow(ctx, query, orderID))
}

func (r *SyncRecordRepo) GetByFulfillmentOrderID(ctx context.Context, fulfillmentOrderID string) (*domain.SyncRecord, error) {
	query := `SELECT ` + syncRecordColumns + ` FROM sync_records WHERE fulfillment_order_id = $1`
	return scanRecord(r.pool.QueryRow(ctx, query, fulfillmentOrderID))
}

// Update writes rec when the stored version still equals expectedVersion.
func (r *SyncRecordRepo) Update(ctx context.Context, rec *domain.SyncRecord, expectedVersion int64) error {
	cols, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	query := `UPDATE sync_records
		SET fulfillment_order_id = $1, provider_status = $2, status = $3, attempt = $4, tracking_attempts = $5,
			version = $6, order_data = $7, tracking = $8, last_error = $9, transitions = $10, updated_at = $11
		WHERE id = $12 AND version = $13`

	tag, err := r.pool.Exec(ctx, query,
		cols.fulfillmentOrderID, cols.providerStatus, string(rec.Status), rec.Attempt, rec.TrackingAttempts,
		rec.Version, cols.order, cols.tracking, cols.lastError, cols.transitions, rec.UpdatedAt,
		rec.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update sync record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrVersionConflict
	}
	return nil
}

// List returns records oldest-updated first, optionally filtered by status.
func (r *SyncRecordRepo) List(ctx context.Context, filter ports.SyncRecordFilter) ([]domain.SyncRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	query := `SELECT ` + syncRecordColumns + ` FROM sync_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY updated_at ASC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sync records: %w", err)
	}
	defer rows.Close()

	var records []domain.SyncRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

type encodedRecord struct {
	fulfillmentOrderID *string
	providerStatus     *string
	order              []byte
	tracking           []byte
	lastError          []byte
	transitions        []byte
}

func encodeRecord(rec *domain.SyncRecord) (encodedRecord, error) {
	var (
		out encodedRecord
		err error
	)
	if rec.FulfillmentOrderID != "" {
		out.fulfillmentOrderID = &rec.FulfillmentOrderID
	}
	if rec.ProviderStatus != "" {
		s := string(rec.ProviderStatus)
		out.providerStatus = &s
	}
	if out.order, err = json.Marshal(rec.Order); err != nil {
		return out, fmt.Errorf("encode order: %w", err)
	}
	if rec.Tracking != nil {
		if out.tracking, err = json.Marshal(rec.Tracking); err != nil {
			return out, fmt.Errorf("encode tracking: %w", err)
		}
	}
	if rec.LastError != nil {
		if out.lastError, err = json.Marshal(rec.LastError); err != nil {
			return out, fmt.Errorf("encode last error: %w", err)
		}
	}
	if out.transitions, err = json.Marshal(rec.Transitions); err != nil {
		return out, fmt.Errorf("encode transitions: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (*domain.SyncRecord, error) {
	var (
		rec                 domain.SyncRecord
		fulfillmentOrderID  *string
		providerStatus      *string
		status              string
		order, transitions  []byte
		tracking, lastError []byte
	)
	err := row.Scan(
		&rec.ID, &rec.OrderID, &fulfillmentOrderID, &providerStatus, &status, &rec.Attempt, &rec.TrackingAttempts, &rec.Version,
		&order, &tracking, &lastError, &transitions, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan sync record: %w", err)
	}

	rec.Status = domain.ProcessingStatus(status)
	if fulfillmentOrderID != nil {
		rec.FulfillmentOrderID = *fulfillmentOrderID
	}
	if providerStatus != nil {
		rec.ProviderStatus = domain.ProviderStatus(*providerStatus)
	}
	if err := json.Unmarshal(order, &rec.Order); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	if err := json.Unmarshal(transitions, &rec.Transitions); err != nil {
		return nil, fmt.Errorf("decode transitions: %w", err)
	}
	if len(tracking) > 0 {
		rec.Tracking = &domain.TrackingInfo{}
		if err := json.Unmarshal(tracking, rec.Tracking); err != nil {
			return nil, fmt.Errorf("decode tracking: %w", err)
		}
	}
	if len(lastError) > 0 {
		rec.LastError = &apperror.ConnectorError{}
		if err := json.Unmarshal(lastError, rec.LastError); err != nil {
			return nil, fmt.Errorf("decode last error: %w", err)
		}
	}
	return &rec, nil
}
