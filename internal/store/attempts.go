package store

import (
	"context"
	"time"

	"github.com/alextreichler/shopfront/internal/checkout"
)

var _ checkout.Journal = (*Store)(nil)

// Record upserts the attempt row keyed by attempt id.
func (s *Store) Record(ctx context.Context, a checkout.Attempt) error {
	var kind, message string
	if a.Failure != nil {
		kind = a.Failure.Kind.String()
		message = a.Failure.Message
	}
	started, updated := a.StartedAt, a.UpdatedAt
	if started.IsZero() {
		started = time.Now()
	}
	if updated.IsZero() {
		updated = started
	}

	query := `
		INSERT INTO checkout_attempts (id, session_id, phase, order_id, provider_order_id, payment_id, amount, failure_kind, failure_message, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phase = excluded.phase,
			order_id = excluded.order_id,
			provider_order_id = excluded.provider_order_id,
			payment_id = excluded.payment_id,
			amount = excluded.amount,
			failure_kind = excluded.failure_kind,
			failure_message = excluded.failure_message,
			updated_at = excluded.updated_at
	`
	_, err := s.DB.ExecContext(ctx, query, a.ID, a.SessionID, a.Phase.String(), a.OrderID, a.ProviderOrderID, a.PaymentID, a.Amount, kind, message, started.UTC(), updated.UTC())
	return err
}

// AttemptRecord is a journal row.
type AttemptRecord struct {
	ID              string
	SessionID       string
	Phase           string
	OrderID         string
	ProviderOrderID string
	PaymentID       string
	Amount          float64
	FailureKind     string
	FailureMessage  string
	StartedAt       time.Time
	UpdatedAt       time.Time
}

func (s *Store) GetAttempt(ctx context.Context, id string) (*AttemptRecord, error) {
	query := `
		SELECT id, session_id, phase, order_id, provider_order_id, payment_id, amount, failure_kind, failure_message, started_at, updated_at
		FROM checkout_attempts WHERE id = ?
	`
	var r AttemptRecord
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.SessionID, &r.Phase, &r.OrderID, &r.ProviderOrderID, &r.PaymentID, &r.Amount, &r.FailureKind, &r.FailureMessage, &r.StartedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetRecentAttempts(ctx context.Context, limit int) ([]AttemptRecord, error) {
	query := `
		SELECT id, session_id, phase, order_id, provider_order_id, payment_id, amount, failure_kind, failure_message, started_at, updated_at
		FROM checkout_attempts
		ORDER BY updated_at DESC
		LIMIT ?
	`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AttemptRecord
	for rows.Next() {
		var r AttemptRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Phase, &r.OrderID, &r.ProviderOrderID, &r.PaymentID, &r.Amount, &r.FailureKind, &r.FailureMessage, &r.StartedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
