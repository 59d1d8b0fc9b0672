package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alextreichler/shopfront/internal/checkout"
	"github.com/alextreichler/shopfront/internal/session"
	"github.com/alextreichler/shopfront/internal/state"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

func TestMigrateIsRepeatable(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate())

	var n int
	require.NoError(t, s.DB.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 4, n)
}

func TestSessionValues(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, "sid", session.CurrentOrderKey)
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, s.Put(ctx, "sid", session.CurrentOrderKey, "order-1"))
	require.NoError(t, s.Put(ctx, "sid", session.CurrentOrderKey, "order-2"))

	v, err := s.Get(ctx, "sid", session.CurrentOrderKey)
	require.NoError(t, err)
	assert.Equal(t, "order-2", v, "put overwrites")

	_, err = s.Get(ctx, "other", session.CurrentOrderKey)
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "sid", session.CurrentOrderKey))
	_, err = s.Get(ctx, "sid", session.CurrentOrderKey)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSessionValuesExpire(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, "live", "k", "v"))
	_, err := s.DB.Exec(`INSERT INTO session_values (session_id, key, value, expires_at) VALUES ('dead', 'k', 'v', datetime('now', '-1 minute'))`)
	require.NoError(t, err)

	_, err = s.Get(ctx, "dead", "k")
	assert.ErrorIs(t, err, session.ErrNotFound, "expired values are invisible before purge")

	n, err := s.PurgeExpiredSessionValues(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	v, err := s.Get(ctx, "live", "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestTokenOverStore(t *testing.T) {
	ctx := context.Background()
	tok := session.NewToken(newTestStore(t), "sid")

	require.NoError(t, tok.Set(ctx, "order-9"))
	got, err := tok.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "order-9", got)
	require.NoError(t, tok.Erase(ctx))
	_, err = tok.Get(ctx)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRecordUpsertsAttempt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	a := checkout.Attempt{ID: "att-1", SessionID: "sid", Phase: checkout.OrderCreating, Amount: 210, StartedAt: start, UpdatedAt: start}
	require.NoError(t, s.Record(ctx, a))

	a.Phase = checkout.Failed
	a.OrderID = "order-1"
	a.Failure = state.Provider("declined")
	a.UpdatedAt = start.Add(time.Minute)
	require.NoError(t, s.Record(ctx, a))

	got, err := s.GetAttempt(ctx, "att-1")
	require.NoError(t, err)
	assert.Equal(t, "failed", got.Phase)
	assert.Equal(t, "order-1", got.OrderID)
	assert.Equal(t, "provider", got.FailureKind)
	assert.Equal(t, "declined", got.FailureMessage)
	assert.Equal(t, 210.0, got.Amount)
	assert.True(t, got.StartedAt.Equal(start))
}

func TestCheckoutStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	attempts := []checkout.Attempt{
		{ID: "a", Phase: checkout.Captured, Amount: 100.10},
		{ID: "b", Phase: checkout.Captured, Amount: 0.20},
		{ID: "c", Phase: checkout.Failed, Amount: 50, Failure: state.Provider("declined")},
		{ID: "d", Phase: checkout.Idle, Failure: state.Validation("Cart is empty")},
		{ID: "e", Phase: checkout.AwaitingExternalPayment, Amount: 75},
	}
	for i, a := range attempts {
		a.SessionID = "sid"
		a.StartedAt = base.Add(time.Duration(i) * time.Minute)
		a.UpdatedAt = a.StartedAt
		require.NoError(t, s.Record(ctx, a))
	}

	stats, err := s.GetCheckoutStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalAttempts)
	assert.Equal(t, map[string]int{"captured": 2, "failed": 1, "idle": 1, "awaiting_payment": 1}, stats.AttemptsByPhase)
	assert.Equal(t, map[string]int{"provider": 1, "validation": 1}, stats.FailuresByKind)
	assert.Equal(t, "100.30", stats.CapturedRevenue.StringFixed(2))

	recent, err := s.GetRecentAttempts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "e", recent[0].ID)
	assert.Equal(t, "d", recent[1].ID)
}

func TestCheckoutStatsEmpty(t *testing.T) {
	stats, err := newTestStore(t).GetCheckoutStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalAttempts)
	assert.True(t, stats.CapturedRevenue.IsZero())
}
