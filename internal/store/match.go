package store

import (
	"context"
	"fmt"
	"time"

	"github.com/oggyb/matchbot/internal/db"
	"github.com/oggyb/matchbot/internal/metrics"
)

// MatchRecord is a match seen from one participant.
type MatchRecord struct {
	ID        uint64
	UserA     int64
	UserB     int64
	OtherID   int64
	CreatedAt time.Time
	ShownToA  bool
	ShownToB  bool
}

func matchFor(m *db.Match, userID int64) MatchRecord {
	other := m.UserA
	if m.UserA == userID {
		other = m.UserB
	}
	return MatchRecord{
		ID:        m.ID,
		UserA:     m.UserA,
		UserB:     m.UserB,
		OtherID:   other,
		CreatedAt: m.CreatedAt,
		ShownToA:  m.ShownToA,
		ShownToB:  m.ShownToB,
	}
}

// NextCandidate picks one random completed profile the viewer has neither
// seen nor matched with. Returns nil when none qualify.
func (s *Store) NextCandidate(ctx context.Context, viewer int64) (*Profile, error) {
	u, err := s.repos.Users.NextCandidate(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("next candidate for %d: %w", viewer, err)
	}
	if u == nil {
		return nil, nil
	}
	return profileFromModel(u), nil
}

// ClearViews forgets which profiles were shown to the viewer.
func (s *Store) ClearViews(ctx context.Context, viewer int64) (int64, error) {
	n, err := s.repos.Reactions.ClearViews(ctx, viewer)
	if err != nil {
		return 0, fmt.Errorf("clear views of %d: %w", viewer, err)
	}
	return n, nil
}

// Browse returns the next candidate, clearing the viewer's views and
// retrying once when the pool is used up. ok is false when even the retry
// finds nobody; that is a normal outcome.
func (s *Store) Browse(ctx context.Context, viewer int64) (p *Profile, ok bool, err error) {
	if p, err = s.NextCandidate(ctx, viewer); err != nil || p != nil {
		return p, p != nil, err
	}

	cleared, err := s.ClearViews(ctx, viewer)
	if err != nil {
		return nil, false, err
	}
	s.log.Debug("candidate pool exhausted, views cleared", "viewer", viewer, "cleared", cleared)

	if p, err = s.NextCandidate(ctx, viewer); err != nil {
		return nil, false, err
	}
	if p == nil {
		metrics.CandidatesExhausted.Inc()
		return nil, false, nil
	}
	return p, true, nil
}

// UnseenMatches returns the matches the user has not been shown,
// oldest first.
func (s *Store) UnseenMatches(ctx context.Context, userID int64) ([]MatchRecord, error) {
	rows, err := s.repos.Matches.Unseen(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("unseen matches of %d: %w", userID, err)
	}
	out := make([]MatchRecord, 0, len(rows))
	for i := range rows {
		out = append(out, matchFor(&rows[i], userID))
	}
	return out, nil
}

// Match returns one match as seen by userID, or ErrNotFound when it does
// not exist or userID is not part of it.
func (s *Store) Match(ctx context.Context, matchID uint64, userID int64) (MatchRecord, error) {
	m, err := s.repos.Matches.Get(ctx, matchID)
	if err != nil {
		return MatchRecord{}, err
	}
	if m.UserA != userID && m.UserB != userID {
		return MatchRecord{}, ErrNotFound
	}
	return matchFor(m, userID), nil
}

// MarkShown sets the caller's shown flag on the match; the other side's
// flag is untouched. Matches are kept after both sides have seen them.
func (s *Store) MarkShown(ctx context.Context, matchID uint64, userID int64) error {
	return s.repos.Matches.MarkShown(ctx, matchID, userID)
}
