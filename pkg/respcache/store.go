// Package respcache caches GET responses of the ma-residence API behind an
// http.RoundTripper so repeated reads within the TTL never reach the network.
package respcache

import (
	"context"
	"sync"
	"time"
)

// Store is a key-value store with per-entry TTL.
type Store interface {
	// Get returns the value for key. The bool is false on a miss or when the
	// entry expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// MemoryStore is an in-process Store. Expired entries are dropped lazily on
// read and by Sweep.
type MemoryStore struct {
	sync.RWMutex
	items map[string]item
	now   func() time.Time
}

type item struct {
	value      []byte
	expiration int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]item),
		now:   time.Now,
	}
}

func (c *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.Lock()
	defer c.Unlock()

	buf := make([]byte, len(value))
	copy(buf, value)

	c.items[key] = item{
		value:      buf,
		expiration: c.now().Add(ttl).UnixNano(),
	}
	return nil
}

func (c *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.RLock()
	it, exists := c.items[key]
	c.RUnlock()

	if !exists {
		return nil, false, nil
	}

	if c.now().UnixNano() >= it.expiration {
		c.Lock()
		if cur, ok := c.items[key]; ok && cur.expiration == it.expiration {
			delete(c.items, key)
		}
		c.Unlock()
		return nil, false, nil
	}

	return it.value, true, nil
}

func (c *MemoryStore) Delete(_ context.Context, key string) error {
	c.Lock()
	defer c.Unlock()
	delete(c.items, key)
	return nil
}

// Sweep drops every expired entry and returns how many were removed.
func (c *MemoryStore) Sweep() int {
	c.Lock()
	defer c.Unlock()

	now := c.now().UnixNano()
	removed := 0
	for key, it := range c.items {
		if now >= it.expiration {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryStore) Len() int {
	c.RLock()
	defer c.RUnlock()
	return len(c.items)
}
