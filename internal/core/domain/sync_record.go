package domain

import (
	"fmt"
	"time"

	"order-sync-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// ProcessingStatus is the pipeline's own state for a SyncRecord.
type ProcessingStatus string

const (
	StatusPending                  ProcessingStatus = "PENDING"
	StatusValidating               ProcessingStatus = "VALIDATING"
	StatusValidated                ProcessingStatus = "VALIDATED"
	StatusTransforming             ProcessingStatus = "TRANSFORMING"
	StatusCreatingFulfillmentOrder ProcessingStatus = "CREATING_FULFILLMENT_ORDER"
	StatusFulfillmentOrderCreated  ProcessingStatus = "FULFILLMENT_ORDER_CREATED"
	StatusSyncingTracking          ProcessingStatus = "SYNCING_TRACKING"
	StatusCompleted                ProcessingStatus = "COMPLETED"
	StatusPartiallyCompleted       ProcessingStatus = "PARTIALLY_COMPLETED"
	StatusFailed                   ProcessingStatus = "FAILED"
)

// forward lists the single successor of each state on the happy path.
var forward = map[ProcessingStatus][]ProcessingStatus{
	StatusPending:                  {StatusValidating},
	StatusValidating:               {StatusValidated},
	StatusValidated:                {StatusTransforming},
	StatusTransforming:             {StatusCreatingFulfillmentOrder},
	StatusCreatingFulfillmentOrder: {StatusFulfillmentOrderCreated},
	StatusFulfillmentOrderCreated:  {StatusSyncingTracking},
	StatusSyncingTracking:          {StatusCompleted, StatusPartiallyCompleted},
}

// IsValid returns true if s is a known processing status.
func (s ProcessingStatus) IsValid() bool {
	_, ok := forward[s]
	return ok || s.IsTerminal()
}

// IsTerminal returns true for states automatic processing never leaves.
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusPartiallyCompleted || s == StatusFailed
}

// IsActive returns true while a record is owned by the pipeline. Active
// records make resubmission a no-op.
func (s ProcessingStatus) IsActive() bool {
	return !s.IsTerminal()
}

// AwaitsTracking returns true for records the tracking poller should visit.
func (s ProcessingStatus) AwaitsTracking() bool {
	return s == StatusFulfillmentOrderCreated || s == StatusSyncingTracking
}

// CanTransition reports whether from -> to is an edge of the state machine.
// FAILED -> PENDING is the manual reprocessing edge.
func CanTransition(from, to ProcessingStatus) bool {
	if to == StatusFailed {
		return !from.IsTerminal()
	}
	if from == StatusFailed {
		return to == StatusPending
	}
	for _, next := range forward[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition is one audit trail entry.
type Transition struct {
	From    ProcessingStatus         `json:"from,omitempty"`
	To      ProcessingStatus         `json:"to"`
	At      time.Time                `json:"at"`
	Attempt int                      `json:"attempt"`
	Error   *apperror.ConnectorError `json:"error,omitempty"`
}

// SyncRecord ties one marketplace Order to at most one FulfillmentOrder.
type SyncRecord struct {
	ID                 uuid.UUID                `json:"id"`
	OrderID            string                   `json:"order_id"`
	Order              Order                    `json:"order"`
	FulfillmentOrderID string                   `json:"fulfillment_order_id,omitempty"`
	ProviderStatus     ProviderStatus           `json:"provider_status,omitempty"`
	Status             ProcessingStatus         `json:"status"`
	Attempt            int                      `json:"attempt"`
	TrackingAttempts   int                      `json:"tracking_attempts"`
	Version            int64                    `json:"version"`
	Tracking           *TrackingInfo            `json:"tracking,omitempty"`
	LastError          *apperror.ConnectorError `json:"last_error,omitempty"`
	Transitions        []Transition             `json:"transitions"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// NewSyncRecord creates a PENDING record for order on its first attempt.
func NewSyncRecord(order Order, now time.Time) *SyncRecord {
	now = now.UTC()
	return &SyncRecord{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Order:       order,
		Status:      StatusPending,
		Attempt:     1,
		Version:     1,
		Transitions: []Transition{{To: StatusPending, At: now, Attempt: 1}},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Advance moves the record to next, recording cause in the audit trail.
// Version is bumped on every transition.
func (r *SyncRecord) Advance(next ProcessingStatus, cause *apperror.ConnectorError, now time.Time) error {
	if !CanTransition(r.Status, next) {
		return fmt.Errorf("illegal transition %s -> %s", r.Status, next)
	}
	now = now.UTC()
	if next == StatusPending {
		r.Attempt++
		r.TrackingAttempts = 0
	}
	r.Transitions = append(r.Transitions, Transition{
		From:    r.Status,
		To:      next,
		At:      now,
		Attempt: r.Attempt,
		Error:   cause,
	})
	r.Status = next
	r.Version++
	r.UpdatedAt = now
	if cause != nil {
		r.LastError = cause
	} else if next == StatusPending {
		r.LastError = nil
	}
	return nil
}

// Fail moves the record to FAILED.
func (r *SyncRecord) Fail(cause *apperror.ConnectorError, now time.Time) error {
	return r.Advance(StatusFailed, cause, now)
}

// Touch records a non-transition change (e.g. a tracking sync failure) and
// bumps the version.
func (r *SyncRecord) Touch(cause *apperror.ConnectorError, now time.Time) {
	r.LastError = cause
	r.Version++
	r.UpdatedAt = now.UTC()
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r *SyncRecord) Clone() *SyncRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Order.Items = append([]OrderItem(nil), r.Order.Items...)
	c.Transitions = make([]Transition, len(r.Transitions))
	for i, t := range r.Transitions {
		t.Error = t.Error.Clone()
		c.Transitions[i] = t
	}
	c.LastError = r.LastError.Clone()
	if r.Tracking != nil {
		t := r.Tracking.Clone()
		c.Tracking = &t
	}
	return &c
}

// Statuses returns the sequence of states the record has been in.
func (r *SyncRecord) Statuses() []ProcessingStatus {
	out := make([]ProcessingStatus, 0, len(r.Transitions))
	for _, t := range r.Transitions {
		out = append(out, t.To)
	}
	return out
}
