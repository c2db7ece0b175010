// Package store is the matchmaking store: profile lifecycle, candidate
// selection, reactions, matches and account maintenance over the
// relational backend, with Redis as a read-through cache.
//
// All check-then-act operations are conditional updates, unique-key
// upserts or single transactions, so any number of handlers in any number
// of processes may share one backend.
package store

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/oggyb/matchbot/internal/cache"
	"github.com/oggyb/matchbot/internal/clock"
	"github.com/oggyb/matchbot/internal/config"
	"github.com/oggyb/matchbot/internal/repository"
)

var (
	// ErrNotFound is returned when a profile or match does not exist
	// (or the caller does not participate in the match).
	ErrNotFound = gorm.ErrRecordNotFound

	ErrSelfReaction    = errors.New("cannot react to own profile")
	ErrInvalidReaction = errors.New("unknown reaction kind")
)

// Store is safe for concurrent use.
type Store struct {
	repos    *repository.Repos
	cache    *cache.RedisCache
	clock    clock.Clock
	rules    config.Rules
	log      *slog.Logger
	validate *validator.Validate
}

// New builds a store. A nil cache disables caching and throttling;
// a nil logger discards.
func New(repos *repository.Repos, c *cache.RedisCache, clk clock.Clock, rules config.Rules, log *slog.Logger) *Store {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		repos:    repos,
		cache:    c,
		clock:    clk,
		rules:    rules,
		log:      log,
		validate: validator.New(),
	}
}

// Rules exposes the business rules the store runs with.
func (s *Store) Rules() config.Rules {
	return s.rules
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.repos.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// invalidate drops cache entries after a committed write.
// Cache failures only leave stale entries until their TTL, so they are logged.
func (s *Store) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil || len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.log.Warn("cache invalidation failed", "keys", keys, "err", err)
	}
}

func (s *Store) invalidateProfile(ctx context.Context, ids ...int64) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.cache.KeyForProfile(id))
	}
	s.invalidate(ctx, keys...)
}

func (s *Store) invalidateAdmirers(ctx context.Context, ids ...int64) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.cache.KeyForAdmirerCount(id))
	}
	s.invalidate(ctx, keys...)
}
