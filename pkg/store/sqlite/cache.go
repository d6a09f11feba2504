package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/maresidence/pkg/respcache"
)

// CacheStore implements respcache.Store. Expired rows are ignored on read and
// removed by DeleteExpired.
type CacheStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ respcache.Store = (*CacheStore)(nil)

func (c *CacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.QueryRowContext(ctx, `
		SELECT value FROM response_cache
		WHERE cache_key = ? AND expires_at > ?`, key, c.now().UnixMilli(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (c *CacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO response_cache (cache_key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET
			value      = excluded.value,
			expires_at = excluded.expires_at`,
		key, value, c.now().Add(ttl).UnixMilli(),
	)
	return err
}

func (c *CacheStore) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM response_cache WHERE cache_key = ?`, key)
	return err
}

// DeleteExpired removes every expired entry and returns how many were dropped.
func (c *CacheStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM response_cache WHERE expires_at <= ?`, c.now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
