package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/oggyb/matchbot/internal/db"
	"github.com/oggyb/matchbot/internal/metrics"
	"github.com/oggyb/matchbot/internal/store"
)

func (b *Bot) routeMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, msg)
		case "delete":
			b.reply(msg.Chat.ID, textPurgeAsk, purgeKeyboard())
		case "admin":
			b.handleAdmin(ctx, msg)
		default:
			b.reply(msg.Chat.ID, textUnknownCommand, nil)
		}
		return
	}

	userID := msg.From.ID
	p, err := b.store.GetProfile(ctx, userID)
	if store.IsNotFound(err) {
		b.reply(msg.Chat.ID, textStartFirst, nil)
		return
	}
	if err != nil {
		b.fail(msg.Chat.ID, "load profile", err)
		return
	}
	if err := b.store.Touch(ctx, userID, msg.From.UserName); err != nil {
		b.log.Warn("touch user", "user_id", userID, "err", err)
	}

	if b.handleMenu(ctx, msg, p) {
		return
	}

	if p.Complete() {
		if state := b.session(ctx, userID); state != "" {
			b.handleEditInput(ctx, msg, state)
			return
		}
		b.reply(msg.Chat.ID, textUseMenu, mainMenu())
		return
	}

	b.handleRegistrationInput(ctx, msg, p)
}

// handleStart registers the user on first contact, crediting the referrer
// of a "ref_<id>" deep link, and resumes registration where it stopped.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	handle := msg.From.UserName

	var referrer *int64
	if arg, ok := strings.CutPrefix(strings.TrimSpace(msg.CommandArguments()), "ref_"); ok {
		if id, err := strconv.ParseInt(arg, 10, 64); err == nil && id > 0 {
			referrer = &id
		}
	}

	if _, err := b.store.CreateIfMissing(ctx, userID, handle, referrer); err != nil {
		b.fail(msg.Chat.ID, "register user", err)
		return
	}
	if err := b.store.Touch(ctx, userID, handle); err != nil {
		b.log.Warn("touch user", "user_id", userID, "err", err)
	}
	if b.isAdminHandle(handle) || (b.opts.AdminID != 0 && userID == b.opts.AdminID) {
		if err := b.store.SetAdmin(ctx, userID); err != nil {
			b.log.Warn("set admin", "user_id", userID, "err", err)
		}
	}
	b.clearSession(ctx, userID)

	p, err := b.store.GetProfile(ctx, userID)
	if err != nil {
		b.fail(msg.Chat.ID, "load profile", err)
		return
	}
	if p.Complete() {
		b.reply(msg.Chat.ID, textWelcomeBack, mainMenu())
		return
	}
	b.reply(msg.Chat.ID, stepPrompt(p.Step, b.store.Rules()), mainMenu())
}

// parseInput extracts the answer for a field from the message. ok is false
// when the message carries the wrong kind of content.
func parseInput(field db.Step, msg *tgbotapi.Message) (in store.StepInput, ok bool) {
	switch field {
	case db.StepName:
		in.Name = msg.Text
	case db.StepAge:
		age, err := strconv.Atoi(strings.TrimSpace(msg.Text))
		// huge numbers come back clamped to the int bounds, like any other age
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return in, false
		}
		in.Age = age
	case db.StepBio:
		if msg.Text == "" {
			return in, false
		}
		in.Bio = msg.Text
	case db.StepPhoto:
		if len(msg.Photo) == 0 {
			return in, false
		}
		// the last size is the largest
		in.PhotoID = msg.Photo[len(msg.Photo)-1].FileID
	}
	return in, true
}

func (b *Bot) repromptText(field db.Step, reason string) string {
	switch {
	case field == db.StepAge:
		return textEnterNumber
	case reason == store.ReasonInvalidName:
		return textBadName
	default:
		return stepPrompt(field, b.store.Rules())
	}
}

func (b *Bot) handleRegistrationInput(ctx context.Context, msg *tgbotapi.Message, p *store.Profile) {
	in, ok := parseInput(p.Step, msg)
	if !ok {
		b.reply(msg.Chat.ID, b.repromptText(p.Step, ""), nil)
		return
	}

	out, err := b.store.AdvanceStep(ctx, p.ID, in)
	if err != nil {
		b.fail(msg.Chat.ID, "advance registration", err)
		return
	}
	if !out.Accepted {
		if out.Reason == store.ReasonStale {
			b.reply(msg.Chat.ID, stepPrompt(out.Step, b.store.Rules()), nil)
			return
		}
		b.reply(msg.Chat.ID, b.repromptText(p.Step, out.Reason), nil)
		return
	}

	if out.Step == db.StepDone {
		b.reply(msg.Chat.ID, textSaved, mainMenu())
		return
	}
	b.reply(msg.Chat.ID, stepPrompt(out.Step, b.store.Rules()), nil)
}

var editFields = map[string]db.Step{
	cbEditName:  db.StepName,
	cbEditAge:   db.StepAge,
	cbEditBio:   db.StepBio,
	cbEditPhoto: db.StepPhoto,
}

func (b *Bot) handleEditInput(ctx context.Context, msg *tgbotapi.Message, state string) {
	userID := msg.From.ID
	field, known := editFields[state]
	if !known {
		b.clearSession(ctx, userID)
		b.reply(msg.Chat.ID, textUseMenu, mainMenu())
		return
	}

	in, ok := parseInput(field, msg)
	if !ok {
		if field == db.StepAge {
			b.reply(msg.Chat.ID, textEnterNumber, nil)
		} else {
			b.reply(msg.Chat.ID, editPrompt(field), nil)
		}
		return
	}

	out, err := b.store.EditField(ctx, userID, field, in)
	if err != nil {
		b.fail(msg.Chat.ID, "edit profile", err)
		return
	}
	if !out.Accepted {
		switch out.Reason {
		case store.ReasonInvalidName:
			b.reply(msg.Chat.ID, textBadName, nil)
		case store.ReasonIncomplete:
			b.clearSession(ctx, userID)
			b.reply(msg.Chat.ID, stepPrompt(out.Step, b.store.Rules()), nil)
		default:
			b.reply(msg.Chat.ID, editPrompt(field), nil)
		}
		return
	}

	b.clearSession(ctx, userID)
	b.reply(msg.Chat.ID, editDone(field), mainMenu())
}

// handleMenu runs the main menu button in msg, if any.
func (b *Bot) handleMenu(ctx context.Context, msg *tgbotapi.Message, p *store.Profile) bool {
	chatID := msg.Chat.ID
	switch strings.TrimSpace(msg.Text) {
	case BtnMyProfile:
		b.clearSession(ctx, p.ID)
		if !p.Complete() {
			b.reply(chatID, textNotFilled, mainMenu())
			return true
		}
		b.sendCard(chatID, p, profileCaption(p), editKeyboard())

	case BtnBrowse:
		b.clearSession(ctx, p.ID)
		if !p.Complete() {
			b.reply(chatID, textNeedProfile, nil)
			return true
		}
		if !b.allowBrowse(ctx, p.ID) {
			b.reply(chatID, textTooFrequent, nil)
			return true
		}
		b.showNextCandidate(ctx, chatID, p.ID)

	case BtnMatches:
		b.clearSession(ctx, p.ID)
		b.showUnseenMatches(ctx, chatID, p.ID)

	case BtnRefill:
		b.clearSession(ctx, p.ID)
		if err := b.store.RedoProfile(ctx, p.ID); err != nil {
			b.fail(chatID, "redo profile", err)
			return true
		}
		b.reply(chatID, textStartOver, nil)

	case BtnInvite:
		b.reply(chatID, inviteText(b.inviteLink(p.ID), b.store.Rules().ReferralBonusDays), nil)

	default:
		return false
	}
	return true
}

func (b *Bot) allowBrowse(ctx context.Context, userID int64) bool {
	if b.limiter == nil {
		return true
	}
	allowed, err := b.limiter.Allow(ctx, userID)
	if err != nil {
		b.log.Warn("rate limiter unavailable", "user_id", userID, "err", err)
	}
	if !allowed {
		metrics.RateLimited.WithLabelValues("browse").Inc()
	}
	return allowed
}

// showNextCandidate sends the next profile with reaction buttons. The
// superlike button is shown only when a superlike would be accepted.
func (b *Bot) showNextCandidate(ctx context.Context, chatID, viewerID int64) {
	p, ok, err := b.store.Browse(ctx, viewerID)
	if err != nil {
		b.fail(chatID, "browse", err)
		return
	}
	if !ok {
		b.reply(chatID, textNoProfiles, mainMenu())
		return
	}

	superlike, err := b.store.SuperlikeAvailable(ctx, viewerID)
	if err != nil {
		b.log.Warn("superlike availability", "user_id", viewerID, "err", err)
	}
	b.sendCard(chatID, p, candidateCaption(p), candidateKeyboard(p.ID, superlike))
}

func (b *Bot) showUnseenMatches(ctx context.Context, chatID, userID int64) {
	matches, err := b.store.UnseenMatches(ctx, userID)
	if err != nil {
		b.fail(chatID, "list matches", err)
		return
	}
	if len(matches) == 0 {
		b.reply(chatID, textNoMatches, nil)
		return
	}
	for _, m := range matches {
		b.showMatch(ctx, chatID, userID, m)
	}
}

// showMatch sends the other participant's card and marks the match shown
// for userID. A purged partner just marks the match shown.
func (b *Bot) showMatch(ctx context.Context, chatID, userID int64, m store.MatchRecord) {
	other, err := b.store.GetProfile(ctx, m.OtherID)
	switch {
	case store.IsNotFound(err):
	case err != nil:
		b.log.Warn("load match partner", "match_id", m.ID, "err", err)
		return
	default:
		if err := b.send(card(chatID, other, profileCaption(other), nil)); err != nil {
			b.log.Warn("send match card", "match_id", m.ID, "err", err)
			return
		}
	}
	if err := b.store.MarkShown(ctx, m.ID, userID); err != nil && !store.IsNotFound(err) {
		b.log.Warn("mark match shown", "match_id", m.ID, "err", err)
	}
}

func (b *Bot) handleAdmin(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !b.isAdmin(ctx, msg.From) {
		b.reply(chatID, textNoRights, nil)
		return
	}

	args := strings.TrimSpace(msg.CommandArguments())
	if verb, body, _ := strings.Cut(args, " "); strings.EqualFold(verb, "message") && strings.TrimSpace(body) != "" {
		sent := b.broadcast(ctx, strings.TrimSpace(body))
		b.reply(chatID, fmt.Sprintf("Sent: %d", sent), nil)
		return
	}

	st, err := b.store.Stats(ctx)
	if err != nil {
		b.fail(chatID, "stats", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("Total: %d\nActive (1h): %d", st.Total, st.ActiveHour), nil)
}

// broadcast sends body to every completed profile and returns how many
// deliveries succeeded.
func (b *Bot) broadcast(ctx context.Context, body string) int {
	ids, err := b.store.ActiveProfileIDs(ctx)
	if err != nil {
		b.log.Error("list broadcast audience", "err", err)
		return 0
	}
	sent := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if b.notify(tgbotapi.NewMessage(id, "📢 From the admin:\n\n"+body), id) {
			sent++
		}
	}
	b.log.Info("broadcast finished", "audience", len(ids), "sent", sent)
	return sent
}
