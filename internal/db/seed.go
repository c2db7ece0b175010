package db

import (
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	applog "github.com/oggyb/matchbot/internal/logger"
)

// SeedBaseID keeps demo identities far away from real Telegram ids.
const SeedBaseID int64 = 9_000_000_000

var seedNames = []string{
	"Alice", "Bella", "Chloe", "Daria", "Emma", "Freya", "Gemma", "Hanna", "Irene", "Julia",
	"Artem", "Boris", "Denis", "Egor", "Fedor", "Gleb", "Ilya", "Kirill", "Lev", "Mark",
}

// SeedTestData resets the database and populates it with demo profiles and reactions.
//
// Behavior:
//  1. Clears likes, views, matches and users.
//  2. Creates len(seedNames) completed profiles with random ages and bios.
//  3. Generates ~200 likes, every 3rd one reciprocated and materialized as a match.
//
// Compatible with sqlite, postgres and mysql.
func SeedTestData(db *gorm.DB, minAge, maxAge int) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC().Truncate(time.Millisecond)

	// --- Fresh start ---
	for _, table := range []string{"likes", "views", "matches", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	applog.Info("cleared existing data")

	// --- Seed users ---
	n := int64(len(seedNames))
	for i, name := range seedNames {
		user := User{
			ID:         SeedBaseID + int64(i) + 1,
			Username:   fmt.Sprintf("demo_%d", i+1),
			Name:       name,
			Age:        minAge + r.Intn(maxAge-minAge+1),
			Bio:        fmt.Sprintf("Hi, I'm %s. This is a demo profile.", name),
			PhotoID:    "",
			Step:       StepDone,
			CreatedAt:  now,
			LastActive: now.Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}
	applog.Info("seeded users", "count", n)

	// --- Seed likes ---
	counter := 0
	for liker := int64(1); liker <= n; liker++ {
		for j := 0; j < 10; j++ {
			liked := int64(r.Intn(int(n))) + 1
			if liker == liked {
				continue
			}
			a, b := SeedBaseID+liker, SeedBaseID+liked

			kind := KindLike
			if r.Intn(100) < 10 {
				kind = KindSuperlike
			}
			if err := seedLike(db, a, b, kind, now); err != nil {
				return err
			}

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				if err := seedLike(db, b, a, KindLike, now); err != nil {
					return err
				}
				lo, hi := a, b
				if lo > hi {
					lo, hi = hi, lo
				}
				m := Match{UserA: lo, UserB: hi, CreatedAt: now}
				if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
					return fmt.Errorf("failed to seed match: %w", err)
				}
			}
			counter++
		}
	}
	applog.Info("seeded likes", "count", counter)

	return nil
}

func seedLike(db *gorm.DB, liker, liked int64, kind LikeKind, now time.Time) error {
	like := Like{LikerID: liker, LikedID: liked, Kind: kind, CreatedAt: now}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
		return fmt.Errorf("failed to seed like: %w", err)
	}
	view := View{ViewerID: liker, ViewedID: liked, CreatedAt: now}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&view).Error; err != nil {
		return fmt.Errorf("failed to seed view: %w", err)
	}
	return nil
}
