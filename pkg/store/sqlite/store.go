// Package sqlite persists access tokens and cached API responses in a local
// SQLite file, for single-host deployments that restart often.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	dsn string
	now func() time.Time
}

// NewStore opens the database at dsn. Call ApplyMigrations before use.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Concurrent writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		dsn: dsn,
		now: time.Now,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tokens returns the token store scoped to key, usually Config.TokenStoreKey.
func (s *Store) Tokens(key string) *TokenStore { return &TokenStore{db: s.db, key: key, now: s.now} }

// Cache returns a response cache backend.
func (s *Store) Cache() *CacheStore { return &CacheStore{db: s.db, now: s.now} }
