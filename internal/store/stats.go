package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

type CheckoutStats struct {
	TotalAttempts   int
	AttemptsByPhase map[string]int
	FailuresByKind  map[string]int
	CapturedRevenue decimal.Decimal
}

func (s *Store) GetCheckoutStats(ctx context.Context) (*CheckoutStats, error) {
	stats := &CheckoutStats{
		AttemptsByPhase: make(map[string]int),
		FailuresByKind:  make(map[string]int),
		CapturedRevenue: decimal.Zero,
	}

	err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM checkout_attempts").Scan(&stats.TotalAttempts)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if err := s.countBy(ctx, "SELECT phase, COUNT(*) FROM checkout_attempts GROUP BY phase", stats.AttemptsByPhase); err != nil {
		return nil, err
	}
	if err := s.countBy(ctx, "SELECT failure_kind, COUNT(*) FROM checkout_attempts WHERE failure_kind != '' GROUP BY failure_kind", stats.FailuresByKind); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, "SELECT amount FROM checkout_attempts WHERE phase = 'captured'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var amount float64
		if err := rows.Scan(&amount); err != nil {
			return nil, err
		}
		stats.CapturedRevenue = stats.CapturedRevenue.Add(decimal.NewFromFloat(amount))
	}

	return stats, rows.Err()
}

func (s *Store) countBy(ctx context.Context, query string, into map[string]int) error {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		into[key] = count
	}
	return rows.Err()
}
