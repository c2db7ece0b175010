package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchbot/internal/cache"
)

func setupCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return cache.New(rdb), mr
}

type record struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestCacheAside(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	calls := 0
	fetch := func(dst *record) func() error {
		return func() error {
			calls++
			*dst = record{Name: "Alice", Age: 21}
			return nil
		}
	}

	var first record
	require.NoError(t, c.CacheAside(ctx, "k", &first, time.Minute, fetch(&first)))
	assert.Equal(t, "Alice", first.Name)

	var second record
	require.NoError(t, c.CacheAside(ctx, "k", &second, time.Minute, fetch(&second)))
	assert.Equal(t, 21, second.Age)
	assert.Equal(t, 1, calls, "second read must be served from redis")

	mr.FastForward(2 * time.Minute)
	var third record
	require.NoError(t, c.CacheAside(ctx, "k", &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, calls)

	boom := errors.New("boom")
	err := c.CacheAside(ctx, "other", &third, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestAdmirerCount(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	_, found, err := c.GetAdmirerCount(ctx, 7)
	assert.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.UpdateAdmirerCount(ctx, 7, 3))
	n, found, err := c.GetAdmirerCount(ctx, 7)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, cache.AdmirerCountTTL, mr.TTL(c.KeyForAdmirerCount(7)))

	require.NoError(t, c.Del(ctx, c.KeyForAdmirerCount(7)))
	_, found, _ = c.GetAdmirerCount(ctx, 7)
	assert.False(t, found)
}

func TestThrottle(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	ok, err := c.Throttle(ctx, "t", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = c.Throttle(ctx, "t", time.Minute)
	assert.False(t, ok)

	mr.FastForward(time.Minute + time.Second)
	ok, _ = c.Throttle(ctx, "t", time.Minute)
	assert.True(t, ok)
}

func TestSession(t *testing.T) {
	ctx := context.Background()
	c, _ := setupCache(t)

	state, err := c.GetSession(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, state)

	require.NoError(t, c.SetSession(ctx, 1, "edit_bio", time.Minute))
	state, _ = c.GetSession(ctx, 1)
	assert.Equal(t, "edit_bio", state)

	require.NoError(t, c.ClearSession(ctx, 1))
	state, _ = c.GetSession(ctx, 1)
	assert.Empty(t, state)
}
