package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/investor-coach/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	client, err := New(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")
	cfg := ProviderRateLimit("yahoo", 5)

	allowed, remaining, err := limiter.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 5, remaining)
	assert.NoError(t, limiter.Wait(context.Background(), cfg))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Set(ctx, "key", "v", time.Minute))
	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestCache_GetOrSetDisabledCallsFn(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	calls := 0

	var out map[string]float64
	err := cache.GetOrSet(context.Background(), "k", &out, time.Minute, func() (interface{}, error) {
		calls++
		return map[string]float64{"yield_pct": 0.013}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.InDelta(t, 0.013, out["yield_pct"], 1e-12)

	boom := errors.New("boom")
	err = cache.GetOrSet(context.Background(), "k", &out, time.Minute, func() (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "fundamentals:VTI", FundamentalsKey("VTI"))
	assert.Equal(t, "compare:abc123", CompareKey("abc123"))
	assert.Equal(t, "coach:cache:fundamentals:VTI", NewCache(Disabled(), "coach").fullKey(FundamentalsKey("VTI")))
}

func TestCache_Integration(t *testing.T) {
	if os.Getenv("REDIS_ENABLED") != "true" {
		t.Skip("REDIS_ENABLED not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx := context.Background()
	client, err := New(ctx, cfg)
	require.NoError(t, err)
	defer client.Close()

	cache := NewCache(client, "coach-test")
	require.NoError(t, cache.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))

	var got map[string]int
	found, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, got["a"])
	require.NoError(t, cache.Delete(ctx, "k"))
}
