package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/maresidence/pkg/mrsdk"
)

// setupRedis starts a throwaway Redis container and returns a connected Store.
func setupRedis(t *testing.T) *Store {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	store, err := NewStore(ctx, Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestRedis(t *testing.T) {
	store := setupRedis(t)
	ctx := t.Context()

	t.Run("empty token slot", func(t *testing.T) {
		tokens := store.Tokens("empty.oauth_token")

		tok, err := tokens.Token(ctx)
		require.NoError(t, err)
		require.Nil(t, tok)

		expired, err := tokens.IsExpired(ctx, time.Now())
		require.NoError(t, err)
		require.True(t, expired)
	})

	t.Run("token roundtrip and expiry", func(t *testing.T) {
		tokens := store.Tokens(mrsdk.ProductionTokenStoreKey)
		now := time.Now()

		want := mrsdk.Token{
			AccessToken: "abc",
			TokenType:   "bearer",
			ExpiresIn:   3600,
			CreatedAt:   now.Unix(),
		}
		require.NoError(t, tokens.SetToken(ctx, want))

		got, err := tokens.Token(ctx)
		require.NoError(t, err)
		require.Equal(t, want, *got)

		expired, err := tokens.IsExpired(ctx, now)
		require.NoError(t, err)
		require.False(t, expired)

		expired, err = tokens.IsExpired(ctx, now.Add(3600*time.Second))
		require.NoError(t, err)
		require.True(t, expired, "boundary is closed")

		ttl, err := store.rdb.TTL(ctx, tokens.Key()).Result()
		require.NoError(t, err)
		require.Greater(t, ttl, time.Duration(0))
	})

	t.Run("key ttl follows the store clock", func(t *testing.T) {
		for _, skew := range []time.Duration{-2 * time.Hour, 2 * time.Hour} {
			now := time.Now().Add(skew)
			tokens := NewFromClient(store.rdb, func() time.Time { return now }).
				Tokens(fmt.Sprintf("skew.%s", skew))

			require.NoError(t, tokens.SetToken(ctx, mrsdk.Token{
				AccessToken: "abc",
				ExpiresIn:   3600,
				CreatedAt:   now.Unix(),
			}))

			ttl, err := store.rdb.TTL(ctx, tokens.Key()).Result()
			require.NoError(t, err)
			require.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5, "skew %s", skew)
		}
	})

	t.Run("keys are isolated", func(t *testing.T) {
		prod := store.Tokens("iso.prod")
		sandbox := store.Tokens("iso.sandbox")

		require.NoError(t, prod.SetToken(ctx, mrsdk.Token{AccessToken: "p", ExpiresIn: 60, CreatedAt: time.Now().Unix()}))

		tok, err := sandbox.Token(ctx)
		require.NoError(t, err)
		require.Nil(t, tok)
	})

	t.Run("cache", func(t *testing.T) {
		cache := store.Cache()

		_, ok, err := cache.Get(ctx, "k")
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, cache.Set(ctx, "k", []byte("v"), time.Minute))
		v, ok, err := cache.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte("v"), v)

		require.NoError(t, cache.Delete(ctx, "k"))
		_, ok, err = cache.Get(ctx, "k")
		require.NoError(t, err)
		require.False(t, ok)
	})
}
