package store

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const DefaultSessionTTL = 24 * time.Hour

type Store struct {
	DB *sql.DB
	// SessionTTL bounds how long a session value survives without being
	// rewritten.
	SessionTTL time.Duration
}

func NewStore(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{DB: db, SessionTTL: DefaultSessionTTL}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}
