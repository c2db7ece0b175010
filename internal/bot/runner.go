package bot

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
)

// SecretHeader carries the webhook secret set with SetWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Poll long-polls Telegram and hands updates to at most workers concurrent
// handlers. It returns once ctx is done and in-flight updates finished.
func (b *Bot) Poll(ctx context.Context, api *tgbotapi.BotAPI, timeout, workers int) error {
	if timeout <= 0 {
		timeout = 30
	}
	if workers <= 0 {
		workers = 1
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = timeout
	updates := api.GetUpdatesChan(updateConfig)

	g := new(errgroup.Group)
	g.SetLimit(workers)

	b.log.Info("polling for updates", "workers", workers)
	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return g.Wait()
		case update, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				b.HandleUpdate(ctx, update)
				return nil
			})
		}
	}
}

// WebhookHandler serves Telegram webhook calls. Requests without the
// expected secret header are rejected when secret is set.
func (b *Bot) WebhookHandler(secret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(secret)) != 1 {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}

		b.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	})
}

// SetWebhook registers url with Telegram. The library's WebhookConfig
// predates secret tokens, so the call is made with raw params.
func SetWebhook(api *tgbotapi.BotAPI, url, secret string) error {
	params := tgbotapi.Params{"url": url}
	if secret != "" {
		params["secret_token"] = secret
	}
	resp, err := api.MakeRequest("setWebhook", params)
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("set webhook: %s", resp.Description)
	}
	return nil
}

// DeleteWebhook switches the bot back to long polling.
func DeleteWebhook(api *tgbotapi.BotAPI) error {
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

type dryAPI struct {
	log *slog.Logger
}

// DryAPI accepts and drops every outgoing call. It stands in for Telegram
// when no token is configured.
func DryAPI(log *slog.Logger) API {
	return dryAPI{log: log}
}

func (d dryAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	d.log.Debug("dry run: message dropped", "type", fmt.Sprintf("%T", c))
	return tgbotapi.Message{}, nil
}

func (d dryAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	d.log.Debug("dry run: request dropped", "type", fmt.Sprintf("%T", c))
	return &tgbotapi.APIResponse{Ok: true}, nil
}
