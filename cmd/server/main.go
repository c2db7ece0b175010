package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/oggyb/matchbot/internal/app"
	"github.com/oggyb/matchbot/internal/bot"
	"github.com/oggyb/matchbot/internal/cache"
	"github.com/oggyb/matchbot/internal/clock"
	"github.com/oggyb/matchbot/internal/config"
	"github.com/oggyb/matchbot/internal/db"
	"github.com/oggyb/matchbot/internal/jobs"
	"github.com/oggyb/matchbot/internal/logger"
	"github.com/oggyb/matchbot/internal/ratelimit"
	"github.com/oggyb/matchbot/internal/repository"
	"github.com/oggyb/matchbot/internal/server"
	"github.com/oggyb/matchbot/internal/service/matchmaking"
	"github.com/oggyb/matchbot/internal/store"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database, cfg.Rules.MinAge, cfg.Rules.MaxAge); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	st := store.New(repository.New(database), redisCache, clock.Real{}, cfg.Rules, logger.Named("store"))
	appCtx := app.New(cfg, database, redisCache, st, log)

	// Telegram
	botLog := logger.Named("bot")
	var (
		tg  *tgbotapi.BotAPI
		api bot.API
	)
	opts := bot.Options{
		BotUsername:   "matchbot",
		AdminID:       cfg.Admin.ID,
		AdminUsername: cfg.Admin.Username,
	}
	if cfg.Telegram.Token == "" {
		botLog.Warn("TELEGRAM_BOT_TOKEN is empty, running in dry mode")
		api = bot.DryAPI(botLog)
	} else {
		tg, err = tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			log.Error("failed to init telegram client", "err", err)
			os.Exit(1)
		}
		opts.BotUsername = tg.Self.UserName
		api = tg
	}

	limiter := ratelimit.New(redisCache.Client, clock.Real{}, "browse", cfg.Rules.RateLimitWindow, cfg.Rules.RateLimitMax)
	b := bot.New(api, st, redisCache, limiter, opts, botLog)

	var webhook http.Handler
	if tg != nil && cfg.Telegram.WebhookURL != "" {
		if err := bot.SetWebhook(tg, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			log.Error("failed to register webhook", "err", err)
			os.Exit(1)
		}
		webhook = b.WebhookHandler(cfg.Telegram.WebhookSecret)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.StartGRPCServer(gctx, cfg, logger.Named("grpc"), matchmaking.NewRegistrar(appCtx))
	})

	g.Go(func() error {
		handler := server.NewHTTPHandler(logger.Named("http"), map[string]server.Check{
			"db":    st.Ping,
			"redis": redisCache.Ping,
		}, webhook)
		return server.StartHTTPServer(gctx, cfg, logger.Named("http"), handler)
	})

	if tg != nil && webhook == nil {
		g.Go(func() error {
			if err := bot.DeleteWebhook(tg); err != nil {
				botLog.Warn("could not clear webhook before polling", "err", err)
			}
			return b.Poll(gctx, tg, cfg.Telegram.PollTimeout, cfg.Telegram.Workers)
		})
	}

	g.Go(func() error {
		job := jobs.NewMaintenance(st, cfg.Jobs.MaintenanceInterval, cfg.Jobs.BackupKeep, logger.Named("jobs"))
		return job.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
