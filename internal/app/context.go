package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/matchbot/internal/cache"
	"github.com/oggyb/matchbot/internal/config"
	"github.com/oggyb/matchbot/internal/store"
)

// AppContext holds shared dependencies (DB, Redis, Store, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Store      *store.Store
	Logger     *slog.Logger
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, st *store.Store, logger *slog.Logger) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Store:      st,
		Logger:     logger,
	}
}
