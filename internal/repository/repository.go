package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repos bundles every repository over one connection or one transaction.
type Repos struct {
	db *gorm.DB

	Users       *UserRepository
	Reactions   *ReactionRepository
	Matches     *MatchRepository
	Maintenance *MaintenanceRepository
}

// New creates the repositories bound to the given DB connection.
func New(database *gorm.DB) *Repos {
	return &Repos{
		db:          database,
		Users:       NewUserRepository(database),
		Reactions:   NewReactionRepository(database),
		Matches:     NewMatchRepository(database),
		Maintenance: NewMaintenanceRepository(database),
	}
}

// Transaction runs fn with repositories bound to a single database transaction.
// Returning an error from fn rolls everything back.
func (r *Repos) Transaction(ctx context.Context, fn func(tx *Repos) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// DB exposes the underlying handle for health checks.
func (r *Repos) DB() *gorm.DB {
	return r.db
}
