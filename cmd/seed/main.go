package main

import (
	"github.com/joho/godotenv"

	"github.com/oggyb/matchbot/internal/config"
	"github.com/oggyb/matchbot/internal/db"
	"github.com/oggyb/matchbot/internal/logger"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)

	database, err := db.NewDB(cfg)
	if err != nil {
		logger.Error("failed to init db", "err", err)
		return
	}

	if err := db.SeedTestData(database, cfg.Rules.MinAge, cfg.Rules.MaxAge); err != nil {
		logger.Error("failed to seed", "err", err)
		return
	}

	logger.Info("seeding completed", "driver", cfg.DB.Driver)
}
