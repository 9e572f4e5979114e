package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
)

func TestMemoryCacheTTL(t *testing.T) {
	now := time.Now()
	cache := NewMemoryCache()
	cache.clock = func() time.Time { return now }

	ctx := context.Background()
	resp := &models.QueryResponse{RequestID: "r1", SQL: "SELECT 1"}

	require.NoError(t, cache.Set(ctx, "k1", resp, time.Minute))

	got, ok := cache.Get(ctx, "k1")
	require.True(t, ok)
	assert.Same(t, resp, got, "cached responses come back unchanged")

	// One second before expiry it is still served.
	now = now.Add(59 * time.Second)
	_, ok = cache.Get(ctx, "k1")
	assert.True(t, ok)

	// At expiry it is gone and the entry is dropped.
	now = now.Add(time.Second)
	_, ok = cache.Get(ctx, "k1")
	assert.False(t, ok)
	assert.Zero(t, cache.Len())
}

func TestMemoryCacheSweepOnWrite(t *testing.T) {
	now := time.Now()
	cache := NewMemoryCache()
	cache.clock = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "old", &models.QueryResponse{}, time.Second))
	require.NoError(t, cache.Set(ctx, "older", &models.QueryResponse{}, time.Second))

	now = now.Add(2 * time.Second)
	require.NoError(t, cache.Set(ctx, "fresh", &models.QueryResponse{}, time.Minute))

	assert.Equal(t, 1, cache.Len(), "expired entries are swept on write")
}

func TestMemoryCacheClear(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", &models.QueryResponse{}, time.Minute))
	require.NoError(t, cache.Set(ctx, "b", &models.QueryResponse{}, time.Minute))
	require.NoError(t, cache.Clear(ctx))

	assert.Zero(t, cache.Len())
	_, ok := cache.Get(ctx, "a")
	assert.False(t, ok)
}

func TestCacheKey(t *testing.T) {
	audit := &models.QueryRequest{TenantID: "t1", EntityName: "ABC", Query: "q"}
	lending := &models.QueryRequest{TenantID: "t1", Portfolio: "P9", Query: "q"}

	assert.Equal(t, "t1:ABC:q", cacheKey(audit))
	assert.Equal(t, "t1:P9:q", cacheKey(lending))
	assert.NotEqual(t, cacheKey(audit), cacheKey(lending))
}
