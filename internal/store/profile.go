package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oggyb/matchbot/internal/db"
	"github.com/oggyb/matchbot/internal/metrics"
	"github.com/oggyb/matchbot/internal/repository"
)

// Profile is the plain record handed to callers.
type Profile struct {
	ID                    int64      `json:"id"`
	Handle                string     `json:"handle,omitempty"`
	Name                  string     `json:"name,omitempty"`
	Age                   int        `json:"age,omitempty"`
	Bio                   string     `json:"bio,omitempty"`
	PhotoID               string     `json:"photo_id,omitempty"`
	Step                  db.Step    `json:"step"`
	CreatedAt             time.Time  `json:"created_at"`
	LastActive            time.Time  `json:"last_active"`
	LastSuperlike         *time.Time `json:"last_superlike,omitempty"`
	SuperlikeExtra        int        `json:"superlike_extra,omitempty"`
	SuperlikeExtraExpires *time.Time `json:"superlike_extra_expires,omitempty"`
	Referrer              *int64     `json:"referrer,omitempty"`
	IsAdmin               bool       `json:"is_admin,omitempty"`
}

// Complete reports whether the profile is visible to others.
func (p *Profile) Complete() bool {
	return p.Step == db.StepDone
}

func profileFromModel(u *db.User) *Profile {
	return &Profile{
		ID:                    u.ID,
		Handle:                u.Username,
		Name:                  u.Name,
		Age:                   u.Age,
		Bio:                   u.Bio,
		PhotoID:               u.PhotoID,
		Step:                  u.Step,
		CreatedAt:             u.CreatedAt,
		LastActive:            u.LastActive,
		LastSuperlike:         u.LastSuperlike,
		SuperlikeExtra:        u.SuperlikeExtra,
		SuperlikeExtraExpires: u.SuperlikeExtraExpires,
		Referrer:              u.Referrer,
		IsAdmin:               u.IsAdmin,
	}
}

// StepInput carries the user's answer for a registration step or an edit.
// Only the field of the step being applied is read.
type StepInput struct {
	Name    string
	Age     int
	Bio     string
	PhotoID string
}

// Reasons an input was not applied.
const (
	ReasonInvalidName   = "invalid_name"
	ReasonPhotoRequired = "photo_required"
	ReasonComplete      = "already_complete"
	ReasonIncomplete    = "profile_incomplete"
	ReasonStale         = "step_changed"
)

// StepOutcome reports whether an input was applied and which step the
// profile is at afterwards. Rejected inputs change nothing.
type StepOutcome struct {
	Accepted bool
	Reason   string
	Step     db.Step
}

// CreateIfMissing registers the identity on first contact.
//
// Behavior:
//   - Insert-or-ignore with step=name; concurrent first contacts create one row.
//   - Only the call that created the row credits the referrer (if it exists
//     and is not the user itself) with one bonus superlike.
func (s *Store) CreateIfMissing(ctx context.Context, id int64, handle string, referrer *int64) (bool, error) {
	now := s.clock.Now()
	if referrer != nil && *referrer == id {
		referrer = nil
	}

	var created, granted bool
	err := s.repos.Transaction(ctx, func(tx *repository.Repos) error {
		var err error
		created, err = tx.Users.CreateIfMissing(ctx, &db.User{
			ID:         id,
			Username:   handle,
			Step:       db.StepName,
			CreatedAt:  now,
			LastActive: now,
			Referrer:   referrer,
		})
		if err != nil || !created || referrer == nil {
			return err
		}
		expires := now.AddDate(0, 0, s.rules.ReferralBonusDays)
		granted, err = tx.Users.GrantBonusSuperlike(ctx, *referrer, expires)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("create user %d: %w", id, err)
	}

	if created {
		metrics.RegistrationsTotal.WithLabelValues(strconv.FormatBool(granted)).Inc()
		s.log.Info("user registered", "user_id", id, "referrer_credited", granted)
	}
	if granted {
		s.invalidateProfile(ctx, *referrer)
	}
	return created, nil
}

// GetProfile returns the profile or ErrNotFound. Reads go through the
// Redis cache when one is configured.
func (s *Store) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	load := func() (*Profile, error) {
		u, err := s.repos.Users.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return profileFromModel(u), nil
	}

	if s.cache == nil {
		return load()
	}

	var p Profile
	err := s.cache.CacheAside(ctx, s.cache.KeyForProfile(id), &p, s.rules.ProfileCacheTTL, func() error {
		loaded, err := load()
		if err != nil {
			return err
		}
		p = *loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// fieldsFor validates in for the given step and returns the columns to write.
// A non-empty reason means the input is rejected.
func (s *Store) fieldsFor(step db.Step, in StepInput) (map[string]any, string) {
	switch step {
	case db.StepName:
		name := strings.TrimSpace(in.Name)
		if err := s.validate.Var(name, "required,min=3,max=50"); err != nil {
			return nil, ReasonInvalidName
		}
		return map[string]any{"name": name}, ""
	case db.StepAge:
		return map[string]any{"age": ClampAge(in.Age, s.rules.MinAge, s.rules.MaxAge)}, ""
	case db.StepBio:
		return map[string]any{"bio": TruncateRunes(in.Bio, s.rules.BioLimit)}, ""
	case db.StepPhoto:
		if strings.TrimSpace(in.PhotoID) == "" {
			return nil, ReasonPhotoRequired
		}
		return map[string]any{"photo_id": in.PhotoID}, ""
	default:
		return nil, ReasonComplete
	}
}

// AdvanceStep applies the input for the profile's current step and moves it
// to the next one.
//
// The write is conditional on the step read here, so two concurrent answers
// for the same step advance the profile once; the loser gets ReasonStale.
func (s *Store) AdvanceStep(ctx context.Context, id int64, in StepInput) (StepOutcome, error) {
	u, err := s.repos.Users.Get(ctx, id)
	if err != nil {
		return StepOutcome{}, err
	}

	fields, reason := s.fieldsFor(u.Step, in)
	if reason != "" {
		return StepOutcome{Reason: reason, Step: u.Step}, nil
	}

	ok, err := s.repos.Users.AdvanceStep(ctx, id, u.Step, fields)
	if err != nil {
		return StepOutcome{}, fmt.Errorf("advance step of %d: %w", id, err)
	}
	if !ok {
		current, err := s.repos.Users.Get(ctx, id)
		if err != nil {
			return StepOutcome{}, err
		}
		return StepOutcome{Reason: ReasonStale, Step: current.Step}, nil
	}

	s.invalidateProfile(ctx, id)
	return StepOutcome{Accepted: true, Step: u.Step.Next()}, nil
}

// EditField changes one field of a completed profile with the registration
// rules. field is the step that owns the field (name, age, bio or photo).
func (s *Store) EditField(ctx context.Context, id int64, field db.Step, in StepInput) (StepOutcome, error) {
	if field == db.StepDone {
		return StepOutcome{Reason: ReasonComplete, Step: db.StepDone}, nil
	}
	fields, reason := s.fieldsFor(field, in)
	if reason != "" {
		return StepOutcome{Reason: reason, Step: db.StepDone}, nil
	}

	ok, err := s.repos.Users.UpdateCompleted(ctx, id, fields)
	if err != nil {
		return StepOutcome{}, fmt.Errorf("edit %s of %d: %w", field, id, err)
	}
	if !ok {
		// mysql reports zero affected rows when the value is unchanged
		u, err := s.repos.Users.Get(ctx, id)
		if err != nil {
			return StepOutcome{}, err
		}
		if u.Step != db.StepDone {
			return StepOutcome{Reason: ReasonIncomplete, Step: u.Step}, nil
		}
	}

	s.invalidateProfile(ctx, id)
	return StepOutcome{Accepted: true, Step: db.StepDone}, nil
}

// RedoProfile sends the profile back to the name step. It stays hidden
// from others until registration completes again.
func (s *Store) RedoProfile(ctx context.Context, id int64) error {
	ok, err := s.repos.Users.ResetStep(ctx, id)
	if err != nil {
		return fmt.Errorf("reset profile %d: %w", id, err)
	}
	if !ok {
		if exists, err := s.repos.Users.Exists(ctx, id); err != nil {
			return err
		} else if !exists {
			return ErrNotFound
		}
	}
	s.invalidateProfile(ctx, id)
	return nil
}

// Touch refreshes last_active (and the handle) at most once per
// LastActiveInterval per user.
func (s *Store) Touch(ctx context.Context, id int64, handle string) error {
	if s.cache != nil && s.rules.LastActiveInterval > 0 {
		first, err := s.cache.Throttle(ctx, s.cache.KeyForLastActive(id), s.rules.LastActiveInterval)
		if err != nil {
			s.log.Warn("last-active throttle unavailable", "user_id", id, "err", err)
		} else if !first {
			return nil
		}
	}
	if err := s.repos.Users.Touch(ctx, id, handle, s.clock.Now()); err != nil {
		return fmt.Errorf("touch %d: %w", id, err)
	}
	s.invalidateProfile(ctx, id)
	return nil
}

// SetAdmin flags the user as an administrator.
func (s *Store) SetAdmin(ctx context.Context, id int64) error {
	if err := s.repos.Users.SetAdmin(ctx, id); err != nil {
		return fmt.Errorf("set admin %d: %w", id, err)
	}
	s.invalidateProfile(ctx, id)
	return nil
}

// ClampAge forces age into [min, max]. Out-of-range ages are clamped,
// never rejected.
func ClampAge(age, min, max int) int {
	if age < min {
		return min
	}
	if age > max {
		return max
	}
	return age
}

// TruncateRunes cuts s to at most limit characters.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// IsNotFound reports whether err means the record is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
