// Package bot is the Telegram front end of the matchmaking store.
//
// Conversation state lives in the store (the registration step) and in
// Redis (pending field edits), so any number of bot processes can serve
// the same users.
package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/oggyb/matchbot/internal/cache"
	"github.com/oggyb/matchbot/internal/metrics"
	"github.com/oggyb/matchbot/internal/ratelimit"
	"github.com/oggyb/matchbot/internal/store"
)

// EditSessionTTL bounds how long a pending field edit waits for input.
const EditSessionTTL = 15 * time.Minute

// API is the subset of *tgbotapi.BotAPI the handlers use.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Options configures identity and administration.
type Options struct {
	// BotUsername is used to build invite links.
	BotUsername   string
	AdminID       int64
	AdminUsername string
}

// Bot handles Telegram updates. It is safe for concurrent use.
type Bot struct {
	api     API
	store   *store.Store
	cache   *cache.RedisCache
	limiter *ratelimit.Limiter
	opts    Options
	log     *slog.Logger
}

// New builds a bot. limiter may be nil (no browse limit); cache may be nil,
// in which case field edits are unavailable.
func New(api API, st *store.Store, c *cache.RedisCache, limiter *ratelimit.Limiter, opts Options, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bot{
		api:     api,
		store:   st,
		cache:   c,
		limiter: limiter,
		opts:    opts,
		log:     log,
	}
}

// HandleUpdate routes one update. Errors are logged and answered with a
// generic failure; nothing is returned to the dispatcher.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("update handler panicked", "update_id", update.UpdateID, "panic", r)
		}
	}()

	switch {
	case update.Message != nil:
		metrics.UpdatesTotal.WithLabelValues("message").Inc()
		b.routeMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		metrics.UpdatesTotal.WithLabelValues("callback").Inc()
		b.handleCallback(ctx, update.CallbackQuery)
	default:
		metrics.UpdatesTotal.WithLabelValues("other").Inc()
	}
}

func (b *Bot) isAdmin(ctx context.Context, user *tgbotapi.User) bool {
	if b.opts.AdminID != 0 && user.ID == b.opts.AdminID {
		return true
	}
	p, err := b.store.GetProfile(ctx, user.ID)
	return err == nil && p.IsAdmin
}

func (b *Bot) isAdminHandle(handle string) bool {
	return b.opts.AdminUsername != "" && strings.EqualFold(handle, b.opts.AdminUsername)
}

func (b *Bot) inviteLink(userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref_%d", b.opts.BotUsername, userID)
}

//
// Edit sessions
//

func (b *Bot) setSession(ctx context.Context, userID int64, state string) bool {
	if b.cache == nil {
		return false
	}
	if err := b.cache.SetSession(ctx, userID, state, EditSessionTTL); err != nil {
		b.log.Warn("save edit session", "user_id", userID, "err", err)
		return false
	}
	return true
}

func (b *Bot) session(ctx context.Context, userID int64) string {
	if b.cache == nil {
		return ""
	}
	state, err := b.cache.GetSession(ctx, userID)
	if err != nil {
		b.log.Warn("read edit session", "user_id", userID, "err", err)
		return ""
	}
	return state
}

func (b *Bot) clearSession(ctx context.Context, userID int64) {
	if b.cache == nil {
		return
	}
	if err := b.cache.ClearSession(ctx, userID); err != nil {
		b.log.Warn("clear edit session", "user_id", userID, "err", err)
	}
}

//
// Outbound
//

func (b *Bot) send(c tgbotapi.Chattable) error {
	_, err := b.api.Send(c)
	return err
}

func (b *Bot) reply(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if err := b.send(msg); err != nil {
		b.log.Warn("send message", "chat_id", chatID, "err", err)
	}
}

// card builds a profile message: a photo with caption, or text when the
// profile has no photo.
func card(chatID int64, p *store.Profile, caption string, markup any) tgbotapi.Chattable {
	if p.PhotoID == "" {
		msg := tgbotapi.NewMessage(chatID, caption)
		if markup != nil {
			msg.ReplyMarkup = markup
		}
		return msg
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(p.PhotoID))
	photo.Caption = caption
	if markup != nil {
		photo.ReplyMarkup = markup
	}
	return photo
}

func (b *Bot) sendCard(chatID int64, p *store.Profile, caption string, markup any) {
	if err := b.send(card(chatID, p, caption, markup)); err != nil {
		b.log.Warn("send profile card", "chat_id", chatID, "profile", p.ID, "err", err)
	}
}

// notify delivers a message nobody is waiting for. Failures (blocked bot,
// deleted chat) are counted and never surface to the caller.
func (b *Bot) notify(c tgbotapi.Chattable, userID int64) bool {
	if err := b.send(c); err != nil {
		metrics.NotificationsFailed.Inc()
		b.log.Info("notification not delivered", "user_id", userID, "err", err)
		return false
	}
	return true
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.log.Debug("answer callback", "err", err)
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.Debug("delete message", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) fail(chatID int64, what string, err error) {
	b.log.Error(what, "chat_id", chatID, "err", err)
	b.reply(chatID, textFailure, nil)
}
