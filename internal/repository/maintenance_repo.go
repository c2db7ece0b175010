package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchbot/internal/db"
)

// MaintenanceRepository groups bulk operations: account removal,
// inactive cleanup and backup snapshots.
type MaintenanceRepository struct {
	db *gorm.DB
}

// NewMaintenanceRepository creates a new repository bound to the given DB connection.
func NewMaintenanceRepository(database *gorm.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: database}
}

// Snapshot is the content of one backup.
type Snapshot struct {
	Users   []db.User
	Likes   []db.Like
	Views   []db.View
	Matches []db.Match
}

// Purge deletes the users and every edge or match that references them.
//
// Runs in one transaction (nested as a savepoint when already inside one),
// so a concurrent reader never sees a half-removed account.
func (r *MaintenanceRepository) Purge(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = purgeIDs(tx, ids)
		return err
	})
	return removed, err
}

// PurgeInactive removes every user whose last activity is older than cutoff
// and returns their ids. The candidates are selected and locked inside the
// deleting transaction, so a user who becomes active meanwhile is kept.
func (r *MaintenanceRepository) PurgeInactive(ctx context.Context, cutoff time.Time) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := inactiveQuery(tx, cutoff).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Pluck("user_id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		_, err := purgeIDs(tx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func purgeIDs(tx *gorm.DB, ids []int64) (int64, error) {
	if err := tx.Where("liker_id IN ? OR liked_id IN ?", ids, ids).Delete(&db.Like{}).Error; err != nil {
		return 0, err
	}
	if err := tx.Where("viewer_id IN ? OR viewed_id IN ?", ids, ids).Delete(&db.View{}).Error; err != nil {
		return 0, err
	}
	if err := tx.Where("user_a IN ? OR user_b IN ?", ids, ids).Delete(&db.Match{}).Error; err != nil {
		return 0, err
	}
	res := tx.Where("user_id IN ?", ids).Delete(&db.User{})
	return res.RowsAffected, res.Error
}

func inactiveQuery(q *gorm.DB, cutoff time.Time) *gorm.DB {
	return q.Model(&db.User{}).Where("last_active < ?", cutoff).Order("user_id")
}

// Snapshot reads completed profiles and all edges and matches.
func (r *MaintenanceRepository) Snapshot(ctx context.Context) (*Snapshot, error) {
	var s Snapshot
	q := r.db.WithContext(ctx)
	if err := q.Where("step = ?", db.StepDone).Order("user_id").Find(&s.Users).Error; err != nil {
		return nil, err
	}
	if err := q.Order("liker_id, liked_id").Find(&s.Likes).Error; err != nil {
		return nil, err
	}
	if err := q.Order("viewer_id, viewed_id").Find(&s.Views).Error; err != nil {
		return nil, err
	}
	if err := q.Order("id").Find(&s.Matches).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveBackup stores one snapshot row.
func (r *MaintenanceRepository) SaveBackup(ctx context.Context, b *db.Backup) error {
	return r.db.WithContext(ctx).Create(b).Error
}

// PruneBackups keeps the newest `keep` snapshots and deletes the rest.
func (r *MaintenanceRepository) PruneBackups(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Backup{}).
		Order("created_at DESC, id DESC").
		Pluck("id", &ids).Error
	if err != nil || len(ids) <= keep {
		return 0, err
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids[keep:]).Delete(&db.Backup{})
	return res.RowsAffected, res.Error
}

// LatestBackup returns the most recent snapshot row.
func (r *MaintenanceRepository) LatestBackup(ctx context.Context) (*db.Backup, error) {
	var b db.Backup
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}
