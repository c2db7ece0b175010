package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/matchbot/internal/cache"
	"github.com/oggyb/matchbot/internal/clock"
	"github.com/oggyb/matchbot/internal/config"
	"github.com/oggyb/matchbot/internal/db"
	"github.com/oggyb/matchbot/internal/repository"
	"github.com/oggyb/matchbot/internal/store"
)

var start = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type env struct {
	store *store.Store
	db    *gorm.DB
	clock *clock.Fake
	cache *cache.RedisCache
	redis *miniredis.Miniredis
}

func setup(t *testing.T) *env {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(database))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	clk := clock.NewFake(start)
	c := cache.New(rdb)
	s := store.New(repository.New(database), c, clk, config.DefaultRules(), nil)
	return &env{store: s, db: database, clock: clk, cache: c, redis: mr}
}

// register walks id through every registration step.
func (e *env) register(t *testing.T, id int64) {
	t.Helper()
	ctx := context.Background()
	_, err := e.store.CreateIfMissing(ctx, id, fmt.Sprintf("h%d", id), nil)
	require.NoError(t, err)
	for _, in := range []store.StepInput{
		{Name: fmt.Sprintf("User %d", id)},
		{Age: 20},
		{Bio: "hello"},
		{PhotoID: fmt.Sprintf("photo-%d", id)},
	} {
		out, err := e.store.AdvanceStep(ctx, id, in)
		require.NoError(t, err)
		require.True(t, out.Accepted, out.Reason)
	}
}

func (e *env) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func TestRegistrationSteps(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	created, err := e.store.CreateIfMissing(ctx, 1, "alice", nil)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = e.store.CreateIfMissing(ctx, 1, "alice", nil)
	require.NoError(t, err)
	assert.False(t, created)

	// name: 3..50 characters, counted as runes
	out, err := e.store.AdvanceStep(ctx, 1, store.StepInput{Name: "Al"})
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, store.ReasonInvalidName, out.Reason)
	assert.Equal(t, db.StepName, out.Step)

	out, _ = e.store.AdvanceStep(ctx, 1, store.StepInput{Name: "Алиса"})
	assert.True(t, out.Accepted)
	assert.Equal(t, db.StepAge, out.Step)

	// age is clamped, never rejected
	out, _ = e.store.AdvanceStep(ctx, 1, store.StepInput{Age: 10})
	assert.True(t, out.Accepted)

	long := make([]rune, 1500)
	for i := range long {
		long[i] = 'ж'
	}
	out, _ = e.store.AdvanceStep(ctx, 1, store.StepInput{Bio: string(long)})
	assert.True(t, out.Accepted)

	// photo is required
	out, _ = e.store.AdvanceStep(ctx, 1, store.StepInput{})
	assert.False(t, out.Accepted)
	assert.Equal(t, store.ReasonPhotoRequired, out.Reason)
	assert.Equal(t, db.StepPhoto, out.Step)

	out, _ = e.store.AdvanceStep(ctx, 1, store.StepInput{PhotoID: "file-1"})
	assert.True(t, out.Accepted)
	assert.Equal(t, db.StepDone, out.Step)

	p, err := e.store.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.True(t, p.Complete())
	assert.Equal(t, "Алиса", p.Name)
	assert.Equal(t, 16, p.Age)
	assert.Equal(t, 1200, len([]rune(p.Bio)))
	assert.Equal(t, "file-1", p.PhotoID)

	// done profiles do not advance
	out, _ = e.store.AdvanceStep(ctx, 1, store.StepInput{Name: "Another"})
	assert.False(t, out.Accepted)
	assert.Equal(t, store.ReasonComplete, out.Reason)

	_, err = e.store.AdvanceStep(ctx, 404, store.StepInput{Name: "Nobody"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEditAndRedoProfile(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	e.register(t, 1)

	// warm the cache, then make sure edits are visible
	_, err := e.store.GetProfile(ctx, 1)
	require.NoError(t, err)

	out, err := e.store.EditField(ctx, 1, db.StepAge, store.StepInput{Age: 99})
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	p, _ := e.store.GetProfile(ctx, 1)
	assert.Equal(t, 30, p.Age)

	out, _ = e.store.EditField(ctx, 1, db.StepName, store.StepInput{Name: " x "})
	assert.False(t, out.Accepted)
	assert.Equal(t, store.ReasonInvalidName, out.Reason)

	require.NoError(t, e.store.RedoProfile(ctx, 1))
	p, _ = e.store.GetProfile(ctx, 1)
	assert.Equal(t, db.StepName, p.Step)
	assert.False(t, p.Complete())

	out, _ = e.store.EditField(ctx, 1, db.StepBio, store.StepInput{Bio: "new"})
	assert.False(t, out.Accepted)
	assert.Equal(t, store.ReasonIncomplete, out.Reason)

	assert.ErrorIs(t, e.store.RedoProfile(ctx, 404), store.ErrNotFound)
	_, err = e.store.GetProfile(ctx, 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetProfileIsCached(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	e.register(t, 1)

	_, err := e.store.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.True(t, e.redis.Exists(e.cache.KeyForProfile(1)))

	// a write behind the store's back is not seen until the entry expires
	require.NoError(t, e.db.Model(&db.User{}).Where("user_id = ?", 1).Update("name", "Changed").Error)
	p, _ := e.store.GetProfile(ctx, 1)
	assert.Equal(t, "User 1", p.Name)

	e.redis.FastForward(config.DefaultRules().ProfileCacheTTL + time.Second)
	p, _ = e.store.GetProfile(ctx, 1)
	assert.Equal(t, "Changed", p.Name)
}

func TestTouchIsThrottled(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	e.register(t, 1)

	e.clock.Advance(time.Minute)
	require.NoError(t, e.store.Touch(ctx, 1, "newhandle"))
	p, _ := e.store.GetProfile(ctx, 1)
	assert.True(t, p.LastActive.Equal(start.Add(time.Minute)))
	assert.Equal(t, "newhandle", p.Handle)

	e.clock.Advance(time.Minute)
	require.NoError(t, e.store.Touch(ctx, 1, ""))
	p, _ = e.store.GetProfile(ctx, 1)
	assert.True(t, p.LastActive.Equal(start.Add(time.Minute)), "second touch inside the interval is skipped")

	e.redis.FastForward(config.DefaultRules().LastActiveInterval)
	require.NoError(t, e.store.Touch(ctx, 1, ""))
	p, _ = e.store.GetProfile(ctx, 1)
	assert.True(t, p.LastActive.Equal(start.Add(2*time.Minute)))
	assert.Equal(t, "newhandle", p.Handle)
}

func TestBrowseExhaustClearRetry(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	for _, id := range []int64{1, 2, 3} {
		e.register(t, id)
	}
	// incomplete profiles are never offered
	_, err := e.store.CreateIfMissing(ctx, 4, "", nil)
	require.NoError(t, err)

	seen := map[int64]bool{}
	for i := 0; i < 2; i++ {
		p, ok, err := e.store.Browse(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.NotEqual(t, int64(1), p.ID)
		assert.False(t, seen[p.ID], "no candidate is offered twice before the pool is cleared")
		seen[p.ID] = true
		_, err = e.store.RecordReaction(ctx, 1, p.ID, store.ReactionSkip)
		require.NoError(t, err)
	}
	assert.Equal(t, map[int64]bool{2: true, 3: true}, seen)

	c, err := e.store.NextCandidate(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, c, "pool is exhausted")

	// Browse clears the views and offers a known candidate again
	p, ok, err := e.store.Browse(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, seen[p.ID])
	assert.Equal(t, int64(0), e.count(t, &db.View{}, "viewer_id = ?", 1))

	// matched users never come back
	_, err = e.store.RecordReaction(ctx, 1, 2, store.ReactionLike)
	require.NoError(t, err)
	_, err = e.store.RecordReaction(ctx, 2, 1, store.ReactionLike)
	require.NoError(t, err)
	_, err = e.store.ClearViews(ctx, 1)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		p, ok, err = e.store.Browse(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int64(3), p.ID)
	}
}

func TestBrowseEmptyPool(t *testing.T) {
	e := setup(t)
	e.register(t, 1)

	p, ok, err := e.store.Browse(context.Background(), 1)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, p)
}
