package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		Driver       string
		DSN          string
		Host         string
		Port         string
		User         string
		Password     string
		Name         string
		MaxOpenConns int
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host          string
		Port          string
		AuthTokenHash string
	}

	HTTP struct {
		Host string
		Port string
	}

	Telegram struct {
		Token         string
		WebhookURL    string
		WebhookSecret string
		PollTimeout   int
		Workers       int
	}

	Admin struct {
		ID       int64
		Username string
	}

	// Rules are the business constants of matchmaking.
	Rules Rules

	Jobs struct {
		MaintenanceInterval time.Duration
		BackupKeep          int
	}
}

type Rules struct {
	MinAge             int
	MaxAge             int
	BioLimit           int
	SuperlikeCooldown  time.Duration
	ReferralBonusDays  int
	InactiveDays       int
	ProfileCacheTTL    time.Duration
	LastActiveInterval time.Duration
	RateLimitWindow    time.Duration
	RateLimitMax       int
}

// DefaultRules returns the rules the bot runs with when nothing is overridden.
func DefaultRules() Rules {
	return Rules{
		MinAge:             16,
		MaxAge:             30,
		BioLimit:           1200,
		SuperlikeCooldown:  24 * time.Hour,
		ReferralBonusDays:  2,
		InactiveDays:       30,
		ProfileCacheTTL:    300 * time.Second,
		LastActiveInterval: 5 * time.Minute,
		RateLimitWindow:    10 * time.Second,
		RateLimitMax:       6,
	}
}

func New() *Config {
	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "production")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "matchbot")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "sqlite"))
	cfg.DB.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	switch cfg.DB.Driver {
	case "postgres":
		cfg.DB.DSN = os.Getenv("DATABASE_URL")
		if cfg.DB.DSN == "" {
			cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
			cfg.DB.Port = getEnvDefault("DB_PORT", "5432")
			cfg.DB.User = getEnvDefault("DB_USER", "postgres")
			cfg.DB.Password = getEnvDefault("DB_PASSWORD", "postgres")
			cfg.DB.Name = getEnvDefault("DB_NAME", "matchbot")

			cfg.DB.DSN = fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
				cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name,
			)
		}
	case "mysql":
		cfg.DB.DSN = os.Getenv("MYSQL_DSN")
		if cfg.DB.DSN == "" {
			cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
			cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
			cfg.DB.User = getEnvDefault("DB_USER", "root")
			cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
			cfg.DB.Name = getEnvDefault("DB_NAME", "matchbot")

			cfg.DB.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
				cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
			)
		}
	default:
		cfg.DB.Driver = "sqlite"
		cfg.DB.DSN = getEnvDefault("SQLITE_PATH", "bot.db")
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")
	cfg.GRPC.AuthTokenHash = getEnvDefault("GRPC_AUTH_TOKEN_HASH", "")

	// HTTP (health, metrics, webhook)
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("PORT", "8080")

	// Telegram
	cfg.Telegram.Token = getEnvDefault("TELEGRAM_BOT_TOKEN", os.Getenv("API_TOKEN"))
	cfg.Telegram.WebhookURL = getEnvDefault("TELEGRAM_WEBHOOK_URL", os.Getenv("WEBHOOK_URL"))
	cfg.Telegram.WebhookSecret = getEnvDefault("TELEGRAM_WEBHOOK_SECRET", "")
	cfg.Telegram.PollTimeout = getEnvInt("TELEGRAM_POLL_TIMEOUT", 30)
	cfg.Telegram.Workers = getEnvInt("TELEGRAM_WORKERS", 8)

	// Admin
	cfg.Admin.ID = int64(getEnvInt("ADMIN_ID", 0))
	cfg.Admin.Username = strings.TrimPrefix(getEnvDefault("ADMIN_USERNAME", ""), "@")

	// Business rules
	def := DefaultRules()
	cfg.Rules.MinAge = getEnvInt("MIN_AGE", def.MinAge)
	cfg.Rules.MaxAge = getEnvInt("MAX_AGE", def.MaxAge)
	cfg.Rules.BioLimit = getEnvInt("BIO_LIMIT", def.BioLimit)
	cfg.Rules.SuperlikeCooldown = getEnvDuration("SUPERLIKE_COOLDOWN", def.SuperlikeCooldown)
	cfg.Rules.ReferralBonusDays = getEnvInt("REFERRAL_BONUS_DAYS", def.ReferralBonusDays)
	cfg.Rules.InactiveDays = getEnvInt("INACTIVE_DAYS", def.InactiveDays)
	cfg.Rules.ProfileCacheTTL = getEnvDuration("PROFILE_CACHE_TTL", def.ProfileCacheTTL)
	cfg.Rules.LastActiveInterval = getEnvDuration("LAST_ACTIVE_INTERVAL", def.LastActiveInterval)
	cfg.Rules.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", def.RateLimitWindow)
	cfg.Rules.RateLimitMax = getEnvInt("RATE_LIMIT_MAX", def.RateLimitMax)

	// Jobs
	cfg.Jobs.MaintenanceInterval = getEnvDuration("MAINTENANCE_INTERVAL", time.Hour)
	cfg.Jobs.BackupKeep = getEnvInt("BACKUP_KEEP", 24)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// getEnvDuration accepts Go durations ("90s", "24h") or a bare number of seconds.
func getEnvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
