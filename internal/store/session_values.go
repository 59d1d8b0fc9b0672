package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alextreichler/shopfront/internal/session"
)

var _ session.Store = (*Store)(nil)

func (s *Store) ttlModifier() string {
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return fmt.Sprintf("+%d seconds", int64(ttl.Seconds()))
}

// Put stores value under (sessionID, key) and restarts its expiry.
func (s *Store) Put(ctx context.Context, sessionID, key, value string) error {
	query := `
		INSERT INTO session_values (session_id, key, value, expires_at, updated_at)
		VALUES (?, ?, ?, datetime('now', ?), CURRENT_TIMESTAMP)
		ON CONFLICT(session_id, key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.DB.ExecContext(ctx, query, sessionID, key, value, s.ttlModifier())
	return err
}

func (s *Store) Get(ctx context.Context, sessionID, key string) (string, error) {
	var value string
	query := `SELECT value FROM session_values WHERE session_id = ? AND key = ? AND expires_at > datetime('now')`
	err := s.DB.QueryRowContext(ctx, query, sessionID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", session.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *Store) Delete(ctx context.Context, sessionID, key string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM session_values WHERE session_id = ? AND key = ?`, sessionID, key)
	return err
}

// PurgeExpiredSessionValues removes expired rows and reports how many went.
func (s *Store) PurgeExpiredSessionValues(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM session_values WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
