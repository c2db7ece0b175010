package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oggyb/matchbot/internal/db"
	"github.com/oggyb/matchbot/internal/metrics"
)

const (
	defaultAdmirersLimit = 20
	maxAdmirersLimit     = 100
)

// Admirer is someone who liked the user and is not matched with them yet.
type Admirer struct {
	UserID  int64
	Kind    db.LikeKind
	LikedAt time.Time
}

// Stats is the admin overview.
type Stats struct {
	Total      int64
	ActiveHour int64
}

// BackupResult summarizes a stored snapshot.
type BackupResult struct {
	ID      uint64
	Users   int
	Likes   int
	Views   int
	Matches int
	Pruned  int64
}

// Purge removes the account and every like, view and match that mentions
// it, atomically. removed is false when no user row existed.
func (s *Store) Purge(ctx context.Context, userID int64) (removed bool, err error) {
	liked, err := s.repos.Reactions.LikedIDs(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("purge %d: %w", userID, err)
	}

	n, err := s.repos.Maintenance.Purge(ctx, []int64{userID})
	if err != nil {
		return false, fmt.Errorf("purge %d: %w", userID, err)
	}

	s.invalidateProfile(ctx, userID)
	s.invalidateAdmirers(ctx, append(liked, userID)...)
	if n > 0 {
		metrics.UsersPurged.WithLabelValues("request").Inc()
		s.log.Info("user purged", "user_id", userID)
	}
	return n > 0, nil
}

// ListAdmirers pages through the user's admirers, newest first.
// An empty token starts at the first page; an empty next token means the end.
func (s *Store) ListAdmirers(ctx context.Context, userID int64, token string, limit int) ([]Admirer, string, error) {
	if limit <= 0 {
		limit = defaultAdmirersLimit
	}
	if limit > maxAdmirersLimit {
		limit = maxAdmirersLimit
	}

	var tokenPtr *string
	if token != "" {
		tokenPtr = &token
	}
	likes, next, err := s.repos.Reactions.ListAdmirers(ctx, userID, tokenPtr, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list admirers of %d: %w", userID, err)
	}

	out := make([]Admirer, 0, len(likes))
	for _, l := range likes {
		out = append(out, Admirer{UserID: l.LikerID, Kind: l.Kind, LikedAt: l.CreatedAt})
	}
	if next == nil {
		return out, "", nil
	}
	return out, *next, nil
}

// CountAdmirers returns the admirer count, from Redis when cached.
func (s *Store) CountAdmirers(ctx context.Context, userID int64) (int64, error) {
	if s.cache != nil {
		count, found, err := s.cache.GetAdmirerCount(ctx, userID)
		if err != nil {
			s.log.Warn("admirer count cache read failed", "user_id", userID, "err", err)
		} else if found {
			return count, nil
		}
	}

	count, err := s.repos.Reactions.CountAdmirers(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count admirers of %d: %w", userID, err)
	}

	if s.cache != nil {
		if err := s.cache.UpdateAdmirerCount(ctx, userID, count); err != nil {
			s.log.Warn("admirer count cache write failed", "user_id", userID, "err", err)
		}
	}
	return count, nil
}

// Stats counts completed profiles and those active within the last hour.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	total, err := s.repos.Users.CountCompleted(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count profiles: %w", err)
	}
	active, err := s.repos.Users.CountActiveSince(ctx, s.clock.Now().Add(-time.Hour))
	if err != nil {
		return Stats{}, fmt.Errorf("count active profiles: %w", err)
	}
	return Stats{Total: total, ActiveHour: active}, nil
}

// ActiveProfileIDs lists completed profiles, the audience of broadcasts.
func (s *Store) ActiveProfileIDs(ctx context.Context) ([]int64, error) {
	return s.repos.Users.CompletedIDs(ctx)
}

// CleanupInactive purges users idle for longer than InactiveDays,
// edges included. Returns how many accounts were removed.
func (s *Store) CleanupInactive(ctx context.Context) (int64, error) {
	if s.rules.InactiveDays <= 0 {
		return 0, nil
	}
	cutoff := s.clock.Now().AddDate(0, 0, -s.rules.InactiveDays)

	ids, err := s.repos.Maintenance.PurgeInactive(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge inactive users: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n := int64(len(ids))

	s.invalidateProfile(ctx, ids...)
	s.invalidateAdmirers(ctx, ids...)
	metrics.UsersPurged.WithLabelValues("inactive").Add(float64(n))
	s.log.Info("inactive users purged", "count", n, "cutoff", cutoff)
	return n, nil
}

// Backup stores a JSON snapshot of completed profiles, likes, views and
// matches, then keeps only the newest `keep` snapshots.
func (s *Store) Backup(ctx context.Context, keep int) (BackupResult, error) {
	snap, err := s.repos.Maintenance.Snapshot(ctx)
	if err != nil {
		return BackupResult{}, fmt.Errorf("snapshot: %w", err)
	}

	row := db.Backup{CreatedAt: s.clock.Now()}
	for _, part := range []struct {
		dst *string
		v   any
	}{
		{&row.UsersJSON, snap.Users},
		{&row.LikesJSON, snap.Likes},
		{&row.ViewsJSON, snap.Views},
		{&row.MatchesJSON, snap.Matches},
	} {
		b, err := json.Marshal(part.v)
		if err != nil {
			return BackupResult{}, fmt.Errorf("encode snapshot: %w", err)
		}
		*part.dst = string(b)
	}

	if err := s.repos.Maintenance.SaveBackup(ctx, &row); err != nil {
		return BackupResult{}, fmt.Errorf("save backup: %w", err)
	}
	pruned, err := s.repos.Maintenance.PruneBackups(ctx, keep)
	if err != nil {
		return BackupResult{}, fmt.Errorf("prune backups: %w", err)
	}

	return BackupResult{
		ID:      row.ID,
		Users:   len(snap.Users),
		Likes:   len(snap.Likes),
		Views:   len(snap.Views),
		Matches: len(snap.Matches),
		Pruned:  pruned,
	}, nil
}
