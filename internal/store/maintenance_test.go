package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchbot/internal/db"
	"github.com/oggyb/matchbot/internal/store"
	"github.com/oggyb/matchbot/internal/utils/pagination"
)

func match(t *testing.T, e *env, a, b int64) uint64 {
	t.Helper()
	ctx := context.Background()
	_, err := e.store.RecordReaction(ctx, a, b, store.ReactionLike)
	require.NoError(t, err)
	res, err := e.store.RecordReaction(ctx, b, a, store.ReactionLike)
	require.NoError(t, err)
	require.True(t, res.Matched)
	return res.MatchID
}

func TestMarkShownFlipsOnlyOwnFlag(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	for _, id := range []int64{1, 2, 3} {
		e.register(t, id)
	}

	first := match(t, e, 1, 2)
	e.clock.Advance(time.Minute)
	second := match(t, e, 3, 1)

	unseen, err := e.store.UnseenMatches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, unseen, 2)
	assert.Equal(t, first, unseen[0].ID, "oldest first")
	assert.Equal(t, int64(2), unseen[0].OtherID)
	assert.Equal(t, second, unseen[1].ID)
	assert.Equal(t, int64(3), unseen[1].OtherID)

	require.NoError(t, e.store.MarkShown(ctx, first, 1))

	unseen, _ = e.store.UnseenMatches(ctx, 1)
	require.Len(t, unseen, 1)
	assert.Equal(t, second, unseen[0].ID)
	unseen, _ = e.store.UnseenMatches(ctx, 2)
	require.Len(t, unseen, 1, "the other side is untouched")

	require.NoError(t, e.store.MarkShown(ctx, first, 2))
	unseen, _ = e.store.UnseenMatches(ctx, 2)
	assert.Empty(t, unseen)

	// fully acknowledged matches stay as history
	m, err := e.store.Match(ctx, first, 2)
	require.NoError(t, err)
	assert.True(t, m.ShownToA)
	assert.True(t, m.ShownToB)

	assert.ErrorIs(t, e.store.MarkShown(ctx, first, 3), store.ErrNotFound)
	assert.ErrorIs(t, e.store.MarkShown(ctx, 999, 1), store.ErrNotFound)
	_, err = e.store.Match(ctx, first, 3)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPurgeLeavesNoEdges(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	for _, id := range []int64{1, 2, 3} {
		e.register(t, id)
	}
	match(t, e, 1, 2)
	_, err := e.store.RecordReaction(ctx, 3, 1, store.ReactionSkip)
	require.NoError(t, err)
	_, err = e.store.RecordReaction(ctx, 1, 3, store.ReactionLike)
	require.NoError(t, err)

	// warm the admirer count of 3, which 1 liked
	n, err := e.store.CountAdmirers(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	removed, err := e.store.Purge(ctx, 1)
	require.NoError(t, err)
	assert.True(t, removed)

	assert.Equal(t, int64(0), e.count(t, &db.Like{}, "liker_id = ? OR liked_id = ?", 1, 1))
	assert.Equal(t, int64(0), e.count(t, &db.View{}, "viewer_id = ? OR viewed_id = ?", 1, 1))
	assert.Equal(t, int64(0), e.count(t, &db.Match{}, "user_a = ? OR user_b = ?", 1, 1))
	_, err = e.store.GetProfile(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, _ = e.store.CountAdmirers(ctx, 3)
	assert.Equal(t, int64(0), n)

	removed, err = e.store.Purge(ctx, 1)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestAdmirers(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	for _, id := range []int64{1, 2, 3, 4} {
		e.register(t, id)
	}

	for _, from := range []int64{2, 3, 4} {
		e.clock.Advance(time.Minute)
		_, err := e.store.RecordReaction(ctx, from, 1, store.ReactionLike)
		require.NoError(t, err)
	}

	n, err := e.store.CountAdmirers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.True(t, e.redis.Exists(e.cache.KeyForAdmirerCount(1)))

	// matching with 3 removes it from the list and refreshes the count
	_, err = e.store.RecordReaction(ctx, 1, 3, store.ReactionLike)
	require.NoError(t, err)
	n, _ = e.store.CountAdmirers(ctx, 1)
	assert.Equal(t, int64(2), n)

	page, next, err := e.store.ListAdmirers(ctx, 1, "", 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(4), page[0].UserID)
	assert.Equal(t, db.KindLike, page[0].Kind)
	require.NotEmpty(t, next)

	page, next, err = e.store.ListAdmirers(ctx, 1, next, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(2), page[0].UserID)
	assert.Empty(t, next)

	_, _, err = e.store.ListAdmirers(ctx, 1, "not base64!", 10)
	assert.ErrorIs(t, err, pagination.ErrInvalidToken)
}

func TestStatsAndActiveIDs(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	e.register(t, 1)
	e.register(t, 2)
	_, err := e.store.CreateIfMissing(ctx, 3, "", nil)
	require.NoError(t, err)

	e.clock.Advance(2 * time.Hour)
	require.NoError(t, e.store.Touch(ctx, 2, ""))

	st, err := e.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Total)
	assert.Equal(t, int64(1), st.ActiveHour)

	ids, err := e.store.ActiveProfileIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	require.NoError(t, e.store.SetAdmin(ctx, 2))
	p, _ := e.store.GetProfile(ctx, 2)
	assert.True(t, p.IsAdmin)
}

func TestCleanupInactive(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	e.register(t, 1)
	e.register(t, 2)
	match(t, e, 1, 2)

	e.clock.Advance(31 * 24 * time.Hour)
	require.NoError(t, e.store.Touch(ctx, 2, ""))

	n, err := e.store.CleanupInactive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = e.store.GetProfile(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = e.store.GetProfile(ctx, 2)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), e.count(t, &db.Match{}, "1 = 1"))
	assert.Equal(t, int64(0), e.count(t, &db.Like{}, "1 = 1"))
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	e.register(t, 1)
	e.register(t, 2)
	_, err := e.store.CreateIfMissing(ctx, 3, "", nil)
	require.NoError(t, err)
	match(t, e, 1, 2)

	var last store.BackupResult
	for i := 0; i < 3; i++ {
		e.clock.Advance(time.Hour)
		last, err = e.store.Backup(ctx, 2)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, last.Users, "only completed profiles are kept")
	assert.Equal(t, 2, last.Likes)
	assert.Equal(t, 2, last.Views)
	assert.Equal(t, 1, last.Matches)
	assert.Equal(t, int64(1), last.Pruned)
	assert.Equal(t, int64(2), e.count(t, &db.Backup{}, "1 = 1"))

	var row db.Backup
	require.NoError(t, e.db.Where("id = ?", last.ID).First(&row).Error)
	var users []db.User
	require.NoError(t, json.Unmarshal([]byte(row.UsersJSON), &users))
	assert.Len(t, users, 2)
}
