package db

import (
	"time"
)

// Step is the registration stage of a profile.
// The order is name -> age -> bio -> photo -> done.
type Step string

const (
	StepName  Step = "name"
	StepAge   Step = "age"
	StepBio   Step = "bio"
	StepPhoto Step = "photo"
	StepDone  Step = "done"
)

// Next returns the step that follows s. Done is terminal.
func (s Step) Next() Step {
	switch s {
	case StepName:
		return StepAge
	case StepAge:
		return StepBio
	case StepBio:
		return StepPhoto
	default:
		return StepDone
	}
}

// LikeKind distinguishes ordinary likes from superlikes.
type LikeKind string

const (
	KindLike      LikeKind = "like"
	KindSuperlike LikeKind = "superlike"
)

// User is one Telegram identity and its profile.
//
// The primary key is the Telegram user id, so a second first-contact
// insert for the same identity is ignored by the database.
type User struct {
	ID                    int64  `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	Username              string `gorm:"size:64"`
	Name                  string `gorm:"size:64"`
	Age                   int
	Bio                   string    `gorm:"type:text"`
	PhotoID               string    `gorm:"size:255"`
	Step                  Step      `gorm:"size:16;not null;index"`
	CreatedAt             time.Time `gorm:"not null"`
	LastActive            time.Time `gorm:"not null;index"`
	LastSuperlike         *time.Time
	SuperlikeExtra        int `gorm:"not null;default:0"`
	SuperlikeExtraExpires *time.Time
	Referrer              *int64
	IsAdmin               bool `gorm:"not null;default:false"`
}

// Like is a directed edge liker -> liked.
//
// Composite PK: (LikerID, LikedID)
//   - At most one edge per ordered pair; repeated likes are ignored.
//
// Indexes:
//   - idx_likes_liked_created(liked_id, created_at DESC)
//     Serves "who liked me" lists and counts.
type Like struct {
	LikerID   int64     `gorm:"primaryKey;autoIncrement:false"`
	LikedID   int64     `gorm:"primaryKey;autoIncrement:false;index:idx_likes_liked_created,priority:1"`
	Kind      LikeKind  `gorm:"size:16;not null;default:like"`
	CreatedAt time.Time `gorm:"not null;index:idx_likes_liked_created,priority:2,sort:desc"`
}

// View records that a profile was already shown to a viewer,
// whatever the reaction was.
type View struct {
	ViewerID  int64 `gorm:"primaryKey;autoIncrement:false"`
	ViewedID  int64 `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}

// Match is the unordered pairing created on mutual interest.
//
// UserA is always the smaller id; the unique index on (user_a, user_b)
// makes creation idempotent. ShownToA/ShownToB track each side's
// notification independently.
type Match struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserA     int64     `gorm:"not null;uniqueIndex:idx_matches_pair,priority:1"`
	UserB     int64     `gorm:"not null;uniqueIndex:idx_matches_pair,priority:2;index"`
	CreatedAt time.Time `gorm:"not null;index"`
	ShownToA  bool      `gorm:"not null;default:false"`
	ShownToB  bool      `gorm:"not null;default:false"`
}

// Backup is a JSON snapshot of the matchmaking tables.
type Backup struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	CreatedAt   time.Time `gorm:"not null;index"`
	UsersJSON   string    `gorm:"type:text"`
	LikesJSON   string    `gorm:"type:text"`
	ViewsJSON   string    `gorm:"type:text"`
	MatchesJSON string    `gorm:"type:text"`
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{&User{}, &Like{}, &View{}, &Match{}, &Backup{}}
}
