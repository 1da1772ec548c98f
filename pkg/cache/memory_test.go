package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	Stock string  `json:"stock"`
	Score int     `json:"score"`
	Move  float64 `json:"move"`
}

func TestMemoryCacheTypedRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "dashboard:stock:TCS", report{Stock: "TCS", Score: 85, Move: 1.42}, time.Minute))

	var got report
	require.NoError(t, mc.Get(ctx, "dashboard:stock:TCS", &got))
	assert.Equal(t, report{Stock: "TCS", Score: 85, Move: 1.42}, got)

	var s string
	require.NoError(t, mc.Set(ctx, "plain", "value", 0))
	require.NoError(t, mc.Get(ctx, "plain", &s))
	assert.Equal(t, "value", s)
}

func TestMemoryCacheMissAndExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	var got report
	assert.ErrorIs(t, mc.Get(ctx, "absent", &got), ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "short", report{}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	assert.ErrorIs(t, mc.Get(ctx, "short", &got), ErrCacheMiss)
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "dashboard:overview", 1, 0))
	require.NoError(t, mc.Set(ctx, "dashboard:stock:INFY", 2, 0))
	require.NoError(t, mc.Set(ctx, "lock:pipeline", 3, 0))

	require.NoError(t, mc.DeleteByPattern(ctx, "dashboard:*"))

	var v int
	assert.ErrorIs(t, mc.Get(ctx, "dashboard:overview", &v), ErrCacheMiss)
	assert.ErrorIs(t, mc.Get(ctx, "dashboard:stock:INFY", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "lock:pipeline", &v))
	assert.Equal(t, 3, v)
}

func TestMemoryCacheTryLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "lock:pipeline", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "lock:pipeline", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "lock:pipeline"))
	ok, err = mc.TryLock(ctx, "lock:pipeline", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	time.Sleep(time.Millisecond)

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &v))
	assert.NoError(t, mc.Get(ctx, "c", &v))
}
