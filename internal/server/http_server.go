package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oggyb/matchbot/internal/config"
)

// Check is one dependency probe of /healthz.
type Check func(ctx context.Context) error

// NewHTTPHandler routes health, metrics and (when given) the Telegram webhook.
func NewHTTPHandler(log *slog.Logger, checks map[string]Check, webhook http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		result := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				healthy = false
				result[name] = err.Error()
				log.Warn("health check failed", "check", name, "err", err)
				continue
			}
			result[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(result)
	})

	r.Handle("/metrics", promhttp.Handler())

	if webhook != nil {
		r.Method(http.MethodPost, "/telegram/webhook", webhook)
	}
	return r
}

// StartHTTPServer serves handler until ctx is done, then shuts down.
func StartHTTPServer(ctx context.Context, cfg *config.Config, log *slog.Logger, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("starting HTTP server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
