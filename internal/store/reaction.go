package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/oggyb/matchbot/internal/db"
	"github.com/oggyb/matchbot/internal/metrics"
	"github.com/oggyb/matchbot/internal/repository"
)

// ReactionKind is what a viewer did with a candidate.
type ReactionKind string

const (
	ReactionLike      ReactionKind = "like"
	ReactionSuperlike ReactionKind = "superlike"
	ReactionSkip      ReactionKind = "skip"
)

// ParseReaction maps a wire value to a ReactionKind.
func ParseReaction(s string) (ReactionKind, error) {
	switch k := ReactionKind(s); k {
	case ReactionLike, ReactionSuperlike, ReactionSkip:
		return k, nil
	default:
		return "", ErrInvalidReaction
	}
}

// Outcome classifies a recorded reaction.
type Outcome string

const (
	OutcomeRecorded    Outcome = "recorded"
	OutcomeMatched     Outcome = "matched"
	OutcomeNotEligible Outcome = "not_eligible"
)

// ReactionResult describes what RecordReaction did.
type ReactionResult struct {
	Outcome Outcome
	Matched bool
	MatchID uint64
	// NewMatch is true only for the call that created the match row.
	NewMatch bool
	// NewLike is false when the like edge already existed.
	NewLike bool
	// CreditUsed is true when a superlike was paid with a referral credit.
	CreditUsed bool
}

// RecordReaction records from's reaction to to's profile.
//
// Behavior:
//   - skip writes the View edge only.
//   - like/superlike insert-or-ignore the Like and View edges, then match the
//     pair if to already likes from.
//   - A superlike first spends an unexpired referral credit, otherwise claims
//     the cooldown slot. When neither is available the outcome is
//     OutcomeNotEligible and nothing is written.
//
// Both users must exist, otherwise ErrNotFound.
//
// Everything runs in one transaction. After commit the reverse edge is
// checked once more, so two users liking each other at the same moment
// still get their match even if neither transaction saw the other's edge.
func (s *Store) RecordReaction(ctx context.Context, from, to int64, kind ReactionKind) (ReactionResult, error) {
	if from == to {
		return ReactionResult{}, ErrSelfReaction
	}
	if _, err := ParseReaction(string(kind)); err != nil {
		return ReactionResult{}, err
	}

	now := s.clock.Now()
	var res ReactionResult

	err := s.repos.Transaction(ctx, func(tx *repository.Repos) error {
		// a purged viewer must not leave edges behind through a stale button
		for _, id := range []int64{from, to} {
			exists, err := tx.Users.Exists(ctx, id)
			if err != nil {
				return err
			}
			if !exists {
				return ErrNotFound
			}
		}

		if kind == ReactionSkip {
			res.Outcome = OutcomeRecorded
			_, err := tx.Reactions.InsertView(ctx, from, to, now)
			return err
		}

		if kind == ReactionSuperlike {
			paid, err := tx.Users.ConsumeBonusSuperlike(ctx, from, now)
			if err != nil {
				return err
			}
			if !paid {
				paid, err = tx.Users.ClaimSuperlikeCooldown(ctx, from, now, s.rules.SuperlikeCooldown)
				if err != nil {
					return err
				}
				if !paid {
					res.Outcome = OutcomeNotEligible
					return nil
				}
			} else {
				res.CreditUsed = true
			}
		}

		newLike, err := tx.Reactions.InsertLike(ctx, from, to, db.LikeKind(kind), now)
		if err != nil {
			return err
		}
		res.NewLike = newLike
		if _, err := tx.Reactions.InsertView(ctx, from, to, now); err != nil {
			return err
		}

		res.Outcome = OutcomeRecorded
		return s.matchIfMutual(ctx, tx, from, to, &res)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ReactionResult{}, ErrNotFound
		}
		return ReactionResult{}, fmt.Errorf("record %s %d->%d: %w", kind, from, to, err)
	}

	if res.Outcome == OutcomeRecorded && kind != ReactionSkip {
		if err := s.matchIfMutual(ctx, s.repos, from, to, &res); err != nil {
			return ReactionResult{}, fmt.Errorf("recheck match %d<->%d: %w", from, to, err)
		}
	}

	metrics.ReactionsTotal.WithLabelValues(string(kind), string(res.Outcome)).Inc()
	if res.NewMatch {
		metrics.MatchesTotal.Inc()
		s.log.Info("match created", "match_id", res.MatchID, "user_a", from, "user_b", to)
	}

	if kind == ReactionSuperlike && res.Outcome != OutcomeNotEligible {
		s.invalidateProfile(ctx, from)
	}
	switch {
	case res.Matched:
		// matched pairs leave each other's admirer lists
		s.invalidateAdmirers(ctx, from, to)
	case res.NewLike:
		s.invalidateAdmirers(ctx, to)
	}
	return res, nil
}

func (s *Store) matchIfMutual(ctx context.Context, repos *repository.Repos, from, to int64, res *ReactionResult) error {
	mutual, err := repos.Reactions.HasLike(ctx, to, from)
	if err != nil || !mutual {
		return err
	}
	m, created, err := repos.Matches.CreateOrGet(ctx, from, to, s.clock.Now())
	if err != nil {
		return err
	}
	res.Outcome = OutcomeMatched
	res.Matched = true
	res.MatchID = m.ID
	res.NewMatch = res.NewMatch || created
	return nil
}

// SuperlikeAvailable reports whether a superlike would be accepted right
// now, without spending anything.
func (s *Store) SuperlikeAvailable(ctx context.Context, id int64) (bool, error) {
	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return false, err
	}
	now := s.clock.Now()
	if p.SuperlikeExtra > 0 && p.SuperlikeExtraExpires != nil && p.SuperlikeExtraExpires.After(now) {
		return true, nil
	}
	return p.LastSuperlike == nil || !p.LastSuperlike.After(now.Add(-s.rules.SuperlikeCooldown)), nil
}
