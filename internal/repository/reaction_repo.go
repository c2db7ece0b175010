package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchbot/internal/db"
	"github.com/oggyb/matchbot/internal/utils/pagination"
)

// ReactionRepository encapsulates Like and View edges.
type ReactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new repository bound to the given DB connection.
func NewReactionRepository(database *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: database}
}

// InsertLike records liker -> liked unless an edge for the pair exists.
//
// Behavior:
//   - Composite PK (liker_id, liked_id) + ON CONFLICT DO NOTHING: a second
//     like (of any kind) for the same ordered pair is a no-op.
//   - Returns true only when a new edge was written.
//
// Example:
//
//	repo.InsertLike(ctx, 1, 2, db.KindLike, now) // user 1 liked user 2
func (r *ReactionRepository) InsertLike(ctx context.Context, likerID, likedID int64, kind db.LikeKind, now time.Time) (bool, error) {
	like := db.Like{
		LikerID:   likerID,
		LikedID:   likedID,
		Kind:      kind,
		CreatedAt: now,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "liker_id"}, {Name: "liked_id"}},
			DoNothing: true,
		}).
		Create(&like)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// InsertView marks viewed as already shown to viewer. Idempotent.
func (r *ReactionRepository) InsertView(ctx context.Context, viewerID, viewedID int64, now time.Time) (bool, error) {
	view := db.View{
		ViewerID:  viewerID,
		ViewedID:  viewedID,
		CreatedAt: now,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "viewer_id"}, {Name: "viewed_id"}},
			DoNothing: true,
		}).
		Create(&view)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// HasLike checks whether liker has liked (or superliked) liked.
//
// Used for mutual interest detection: after a -> b is written,
// HasLike(b, a) decides whether the pair matches.
func (r *ReactionRepository) HasLike(ctx context.Context, likerID, likedID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("liker_id = ? AND liked_id = ?", likerID, likedID).
		Count(&count).Error
	return count > 0, err
}

// GetLike loads one edge. Returns gorm.ErrRecordNotFound when absent.
func (r *ReactionRepository) GetLike(ctx context.Context, likerID, likedID int64) (*db.Like, error) {
	var like db.Like
	err := r.db.WithContext(ctx).
		Where("liker_id = ? AND liked_id = ?", likerID, likedID).
		First(&like).Error
	if err != nil {
		return nil, err
	}
	return &like, nil
}

// LikedIDs lists the users likerID has liked.
func (r *ReactionRepository) LikedIDs(ctx context.Context, likerID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("liker_id = ?", likerID).
		Pluck("liked_id", &ids).Error
	return ids, err
}

// HasView reports whether viewed was already shown to viewer.
func (r *ReactionRepository) HasView(ctx context.Context, viewerID, viewedID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.View{}).
		Where("viewer_id = ? AND viewed_id = ?", viewerID, viewedID).
		Count(&count).Error
	return count > 0, err
}

// ClearViews forgets everything the viewer has been shown,
// returning the number of removed edges.
func (r *ReactionRepository) ClearViews(ctx context.Context, viewerID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("viewer_id = ?", viewerID).Delete(&db.View{})
	return res.RowsAffected, res.Error
}

// admirersQuery selects likes received by recipient from users who are not
// matched with the recipient yet.
func (r *ReactionRepository) admirersQuery(ctx context.Context, recipientID int64) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("likes l").
		Where("l.liked_id = ?", recipientID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM matches m
				WHERE (m.user_a = l.liker_id AND m.user_b = l.liked_id)
				   OR (m.user_a = l.liked_id AND m.user_b = l.liker_id)
			)`)
}

// ListAdmirers returns users who liked the recipient and are not matched with them.
//
// Behavior:
//   - Ordered by created_at DESC, liker_id DESC (newest first).
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.ListAdmirers(ctx, 42, nil, 20) // first 20 pending admirers of user 42
func (r *ReactionRepository) ListAdmirers(
	ctx context.Context,
	recipientID int64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	var likes []db.Like

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.admirersQuery(ctx, recipientID).
		Select("l.*").
		Order("l.created_at DESC, l.liker_id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := time.UnixMilli(cursor.CreatedUnix).UTC()
		query = query.Where(
			"(l.created_at < ? OR (l.created_at = ? AND l.liker_id < ?))",
			ts, ts, cursor.UserID,
		)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, err := pagination.Encode(pagination.Cursor{
			UserID:      last.LikerID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		if err != nil {
			return nil, nil, err
		}
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// CountAdmirers returns how many unmatched users liked the recipient.
// Used in conjunction with the Redis cache (DB is fallback).
func (r *ReactionRepository) CountAdmirers(ctx context.Context, recipientID int64) (int64, error) {
	var count int64
	if err := r.admirersQuery(ctx, recipientID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
