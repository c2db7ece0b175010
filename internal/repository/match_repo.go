package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchbot/internal/db"
)

// MatchRepository provides access to materialized matches.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// orderedPair normalizes an unordered pair so that a < b.
func orderedPair(x, y int64) (int64, int64) {
	if x > y {
		return y, x
	}
	return x, y
}

// CreateOrGet materializes the match for {x, y} or returns the existing one.
//
// Behavior:
//   - The pair is stored normalized (user_a < user_b) under a unique index.
//   - INSERT ... ON CONFLICT DO NOTHING followed by a read, so concurrent
//     creators of the same pair observe one row.
//   - created reports whether this call inserted it.
func (r *MatchRepository) CreateOrGet(ctx context.Context, x, y int64, now time.Time) (*db.Match, bool, error) {
	a, b := orderedPair(x, y)
	m := db.Match{UserA: a, UserB: b, CreatedAt: now}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_a"}, {Name: "user_b"}},
			DoNothing: true,
		}).
		Create(&m)
	if res.Error != nil {
		return nil, false, res.Error
	}

	existing, err := r.Between(ctx, a, b)
	if err != nil {
		return nil, false, err
	}
	return existing, res.RowsAffected == 1, nil
}

// Between returns the match for the unordered pair {x, y}.
// Returns gorm.ErrRecordNotFound when the pair is not matched.
func (r *MatchRepository) Between(ctx context.Context, x, y int64) (*db.Match, error) {
	a, b := orderedPair(x, y)
	var m db.Match
	if err := r.db.WithContext(ctx).Where("user_a = ? AND user_b = ?", a, b).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// Get loads a match by id.
func (r *MatchRepository) Get(ctx context.Context, id uint64) (*db.Match, error) {
	var m db.Match
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// Unseen returns the matches userID has not been shown yet, oldest first.
func (r *MatchRepository) Unseen(ctx context.Context, userID int64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("(user_a = ? AND shown_to_a = ?) OR (user_b = ? AND shown_to_b = ?)", userID, false, userID, false).
		Order("created_at ASC, id ASC").
		Find(&matches).Error
	return matches, err
}

// ListForUser returns every match involving userID, oldest first.
func (r *MatchRepository) ListForUser(ctx context.Context, userID int64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_a = ? OR user_b = ?", userID, userID).
		Order("created_at ASC, id ASC").
		Find(&matches).Error
	return matches, err
}

// MarkShown flips only the flag of the side userID is on.
//
// Returns gorm.ErrRecordNotFound when the match does not exist or
// userID does not participate in it.
func (r *MatchRepository) MarkShown(ctx context.Context, id uint64, userID int64) error {
	m, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	var column string
	switch userID {
	case m.UserA:
		column = "shown_to_a"
	case m.UserB:
		column = "shown_to_b"
	default:
		return gorm.ErrRecordNotFound
	}

	return r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ?", id).
		UpdateColumn(column, true).Error
}
