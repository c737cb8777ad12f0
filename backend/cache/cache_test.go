package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestStores(t *testing.T) {
	redisStore, _ := newRedisStore(t)
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := store.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
			v, ok, err := store.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v", v)

			n, err := store.Incr(ctx, "counter")
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
			n, err = store.Incr(ctx, "counter")
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)
		})
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	now = now.Add(59 * time.Second)
	_, ok, _ := store.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, RevokeToken(ctx, store, "jti-1", time.Minute))
	revoked, err := IsRevoked(ctx, store, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = IsRevoked(ctx, store, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeTokenIgnoresExpiredTokens(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, RevokeToken(ctx, store, "old", -time.Second))
	revoked, err := IsRevoked(ctx, store, "old")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestCatalogInvalidation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := CatalogKey(ctx, store, "q=go")
	require.NoError(t, err)
	assert.Equal(t, "catalog:v0:q=go", first)

	require.NoError(t, InvalidateCatalog(ctx, store))
	second, err := CatalogKey(ctx, store, "q=go")
	require.NoError(t, err)
	assert.Equal(t, "catalog:v1:q=go", second)
}
