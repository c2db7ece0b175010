package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchbot/internal/clock"
	"github.com/oggyb/matchbot/internal/ratelimit"
)

func setup(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestAllowSlidesWindow(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	l := ratelimit.New(setup(t), clk, "browse", 10*time.Second, 3)

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, 1)
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i)
		clk.Advance(time.Second)
	}

	ok, err := l.Allow(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	// other users have their own window
	ok, _ = l.Allow(ctx, 2)
	assert.True(t, ok)

	// first hit (t=0) leaves the window at t=10s
	clk.Set(time.Date(2026, 1, 1, 0, 0, 10, 0, time.UTC))
	ok, _ = l.Allow(ctx, 1)
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, 1)
	assert.False(t, ok)
}

func TestRejectedHitsDoNotCount(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	l := ratelimit.New(setup(t), clk, "browse", 10*time.Second, 1)

	ok, _ := l.Allow(ctx, 1)
	assert.True(t, ok)
	for i := 0; i < 5; i++ {
		clk.Advance(time.Second)
		ok, _ = l.Allow(ctx, 1)
		assert.False(t, ok)
	}
	clk.Advance(5 * time.Second)
	ok, _ = l.Allow(ctx, 1)
	assert.True(t, ok)
}

func TestDisabledAndReset(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Now())

	off := ratelimit.New(nil, clk, "x", time.Second, 1)
	for i := 0; i < 3; i++ {
		ok, err := off.Allow(ctx, 1)
		assert.NoError(t, err)
		assert.True(t, ok)
	}

	l := ratelimit.New(setup(t), clk, "x", time.Minute, 1)
	ok, _ := l.Allow(ctx, 1)
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, 1)
	assert.False(t, ok)
	require.NoError(t, l.Reset(ctx, 1))
	ok, _ = l.Allow(ctx, 1)
	assert.True(t, ok)
}

func TestFailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	l := ratelimit.New(rdb, clock.Real{}, "x", time.Minute, 1)
	ok, err := l.Allow(context.Background(), 1)
	assert.Error(t, err)
	assert.True(t, ok)
}
