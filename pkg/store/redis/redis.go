// Package redis stores access tokens and cached API responses in Redis so
// several processes sharing one credential set also share one token.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/maresidence/pkg/mrsdk"
	"github.com/aussiebroadwan/maresidence/pkg/respcache"
)

// cacheKeyPrefix namespaces response cache entries inside the database.
const cacheKeyPrefix = "mr:cache:"

// Options configures the connection.
type Options struct {
	Addr     string
	Password string
	DB       int

	// DialTimeout also bounds reads and writes (default: 5s).
	DialTimeout time.Duration

	// Now is the clock token key TTLs are measured against. It must be the
	// clock the client stamps tokens with (default: time.Now).
	Now func() time.Time
}

// Store owns a Redis connection pool and hands out the token and cache views
// built on it.
type Store struct {
	rdb goredis.UniversalClient
	now func() time.Time
}

// NewStore connects to Redis and verifies the connection with a PING.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return NewFromClient(rdb, opts.Now), nil
}

// NewFromClient wraps an existing client. The caller keeps ownership of rdb.
// now defaults to time.Now.
func NewFromClient(rdb goredis.UniversalClient, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{rdb: rdb, now: now}
}

func (s *Store) Close() error { return s.rdb.Close() }

// Ping verifies the connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Tokens returns the token store scoped to key, usually Config.TokenStoreKey.
func (s *Store) Tokens(key string) *TokenStore {
	return &TokenStore{rdb: s.rdb, key: key, now: s.now}
}

// Cache returns a response cache backend.
func (s *Store) Cache() *CacheStore {
	return &CacheStore{rdb: s.rdb}
}

// ============================================================================
// Token store
// ============================================================================

// TokenStore keeps one token under a single key. The key expires together with
// the token, so a stale slot disappears on its own.
type TokenStore struct {
	rdb goredis.UniversalClient
	key string
	now func() time.Time
}

var _ mrsdk.TokenStore = (*TokenStore)(nil)

// Key returns the Redis key holding the token.
func (s *TokenStore) Key() string { return s.key }

func (s *TokenStore) Token(ctx context.Context) (*mrsdk.Token, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token %q: %w", s.key, err)
	}

	var tok mrsdk.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token %q: %w", s.key, err)
	}
	return &tok, nil
}

func (s *TokenStore) SetToken(ctx context.Context, tok mrsdk.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	// Tokens already past their expiry (or without one) are kept until
	// replaced; IsExpired still reports them as expired.
	ttl := tok.ExpiresAt().Sub(s.now())
	if !tok.Present() || ttl <= 0 {
		ttl = 0
	}

	if err := s.rdb.Set(ctx, s.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token %q: %w", s.key, err)
	}
	return nil
}

func (s *TokenStore) IsExpired(ctx context.Context, now time.Time) (bool, error) {
	return mrsdk.ExpiredAt(ctx, s, now)
}

// ============================================================================
// Response cache
// ============================================================================

// CacheStore implements respcache.Store with Redis key expiry.
type CacheStore struct {
	rdb goredis.UniversalClient
}

var _ respcache.Store = (*CacheStore)(nil)

func (c *CacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, cacheKeyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *CacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, cacheKeyPrefix+key, value, ttl).Err()
}

func (c *CacheStore) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, cacheKeyPrefix+key).Err()
}
