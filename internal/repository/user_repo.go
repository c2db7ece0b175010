package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchbot/internal/db"
)

// UserRepository provides data access methods for the User model:
// profile lifecycle, superlike credits and candidate selection.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Get loads a user by id. Returns gorm.ErrRecordNotFound when absent.
func (r *UserRepository) Get(ctx context.Context, id int64) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Where("user_id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Exists reports whether a row for id is present.
func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Where("user_id = ?", id).Count(&count).Error
	return count > 0, err
}

// CreateIfMissing inserts the user unless the identity already exists.
//
// Behavior:
//   - ON CONFLICT(user_id) DO NOTHING, so concurrent first contacts collapse
//     into a single row.
//   - Returns true only for the call that actually inserted the row.
func (r *UserRepository) CreateIfMissing(ctx context.Context, u *db.User) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(u)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// GrantBonusSuperlike adds one superlike credit and moves its expiry to expires.
// Credits stack; the latest grant decides the expiry.
func (r *UserRepository) GrantBonusSuperlike(ctx context.Context, id int64, expires time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("user_id = ?", id).
		UpdateColumns(map[string]any{
			"superlike_extra":         gorm.Expr("superlike_extra + 1"),
			"superlike_extra_expires": expires,
		})
	return res.RowsAffected == 1, res.Error
}

// AdvanceStep writes fields and moves the user from `from` to from.Next().
//
// The update is conditional on step = from, so two concurrent submissions
// for the same step advance the profile once. Returns false when the user
// is no longer at `from` (or does not exist).
func (r *UserRepository) AdvanceStep(ctx context.Context, id int64, from db.Step, fields map[string]any) (bool, error) {
	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["step"] = from.Next()

	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("user_id = ? AND step = ?", id, from).
		UpdateColumns(updates)
	return res.RowsAffected == 1, res.Error
}

// UpdateCompleted edits fields of a completed profile without touching step.
func (r *UserRepository) UpdateCompleted(ctx context.Context, id int64, fields map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("user_id = ? AND step = ?", id, db.StepDone).
		UpdateColumns(fields)
	return res.RowsAffected == 1, res.Error
}

// ResetStep sends the profile back to the first registration step.
func (r *UserRepository) ResetStep(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("user_id = ?", id).
		UpdateColumn("step", db.StepName)
	return res.RowsAffected == 1, res.Error
}

// Touch refreshes last_active and, when known, the display handle.
func (r *UserRepository) Touch(ctx context.Context, id int64, handle string, now time.Time) error {
	updates := map[string]any{"last_active": now}
	if handle != "" {
		updates["username"] = handle
	}
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("user_id = ?", id).
		UpdateColumns(updates).Error
}

// SetAdmin flags the user as an administrator.
func (r *UserRepository) SetAdmin(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("user_id = ?", id).
		UpdateColumn("is_admin", true).Error
}

// ConsumeBonusSuperlike spends one unexpired referral credit.
//
// A single conditional UPDATE decrements the counter only while it is
// positive and unexpired; the backend's row locking makes two concurrent
// spends of the last credit impossible.
func (r *UserRepository) ConsumeBonusSuperlike(ctx context.Context, id int64, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("user_id = ? AND superlike_extra > 0 AND superlike_extra_expires > ?", id, now).
		UpdateColumn("superlike_extra", gorm.Expr("superlike_extra - 1"))
	return res.RowsAffected == 1, res.Error
}

// ClaimSuperlikeCooldown takes the ordinary superlike slot if the cooldown
// since the previous one has elapsed, stamping last_superlike = now.
func (r *UserRepository) ClaimSuperlikeCooldown(ctx context.Context, id int64, now time.Time, cooldown time.Duration) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("user_id = ? AND (last_superlike IS NULL OR last_superlike <= ?)", id, now.Add(-cooldown)).
		UpdateColumn("last_superlike", now)
	return res.RowsAffected == 1, res.Error
}

// NextCandidate returns one random completed profile the viewer has not
// seen and is not matched with. Returns nil, nil when the pool is empty.
func (r *UserRepository) NextCandidate(ctx context.Context, viewerID int64) (*db.User, error) {
	viewed := r.db.Model(&db.View{}).Select("viewed_id").Where("viewer_id = ?", viewerID)
	matchedAsA := r.db.Model(&db.Match{}).Select("user_b").Where("user_a = ?", viewerID)
	matchedAsB := r.db.Model(&db.Match{}).Select("user_a").Where("user_b = ?", viewerID)

	var u db.User
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("step = ? AND user_id <> ?", db.StepDone, viewerID).
		Where("user_id NOT IN (?)", viewed).
		Where("user_id NOT IN (?)", matchedAsA).
		Where("user_id NOT IN (?)", matchedAsB).
		Order(db.RandomOrder(r.db)).
		Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CountCompleted returns how many profiles are visible to others.
func (r *UserRepository) CountCompleted(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Where("step = ?", db.StepDone).Count(&count).Error
	return count, err
}

// CountActiveSince counts completed profiles seen after since.
func (r *UserRepository) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("step = ? AND last_active > ?", db.StepDone, since).
		Count(&count).Error
	return count, err
}

// CompletedIDs lists ids of all completed profiles, ascending.
func (r *UserRepository) CompletedIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("step = ?", db.StepDone).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}
