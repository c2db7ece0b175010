package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/oggyb/matchbot/internal/store"
)

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.From == nil {
		return
	}
	userID := q.From.ID
	// private chats share the user's id
	chatID := userID
	messageID := 0
	if q.Message != nil && q.Message.Chat != nil {
		chatID = q.Message.Chat.ID
		messageID = q.Message.MessageID
	}

	ack := ""
	defer func() { b.answerCallback(q.ID, ack) }()

	action, arg, _ := strings.Cut(q.Data, ":")
	switch action {
	case cbLike, cbSuperlike, cbSkip:
		target, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			ack = ackBadData
			return
		}
		var next bool
		ack, next = b.react(ctx, q.From, target, store.ReactionKind(action))
		if !next {
			return
		}
		if messageID != 0 {
			b.deleteMessage(chatID, messageID)
		}
		b.showNextCandidate(ctx, chatID, userID)

	case cbMenu:
		if messageID != 0 {
			b.deleteMessage(chatID, messageID)
		}
		b.reply(chatID, textMainMenu, mainMenu())

	case cbViewMatch:
		matchID, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			ack = ackBadData
			return
		}
		m, err := b.store.Match(ctx, matchID, userID)
		if store.IsNotFound(err) {
			ack = ackMatchNotFound
			return
		}
		if err != nil {
			b.fail(chatID, "load match", err)
			return
		}
		b.showMatch(ctx, chatID, userID, m)

	case cbEditName, cbEditAge, cbEditBio, cbEditPhoto:
		if !b.setSession(ctx, userID, action) {
			b.reply(chatID, textEditUnavailable, nil)
			return
		}
		b.reply(chatID, editPrompt(editFields[action]), nil)

	case cbRefill:
		b.clearSession(ctx, userID)
		if err := b.store.RedoProfile(ctx, userID); err != nil {
			if store.IsNotFound(err) {
				b.reply(chatID, textStartFirst, nil)
				return
			}
			b.fail(chatID, "redo profile", err)
			return
		}
		b.reply(chatID, textStartOver, nil)

	case cbPurge:
		if messageID != 0 {
			b.deleteMessage(chatID, messageID)
		}
		if arg != purgeConfirm {
			b.reply(chatID, textPurgeCancelled, nil)
			return
		}
		b.clearSession(ctx, userID)
		if _, err := b.store.Purge(ctx, userID); err != nil {
			b.fail(chatID, "purge user", err)
			return
		}
		b.reply(chatID, textPurged, tgbotapi.NewRemoveKeyboard(true))

	case cbNoop:
		ack = ackBrowseHint
	}
}

// react records the reaction, notifies the other side when there is news
// for them and returns the callback answer. next reports whether the
// viewer should be shown the next candidate.
func (b *Bot) react(ctx context.Context, from *tgbotapi.User, target int64, kind store.ReactionKind) (ack string, next bool) {
	res, err := b.store.RecordReaction(ctx, from.ID, target, kind)
	switch {
	case store.IsNotFound(err):
		return ackGone, true
	case errors.Is(err, store.ErrSelfReaction), errors.Is(err, store.ErrInvalidReaction):
		return ackBadData, false
	case err != nil:
		b.log.Error("record reaction", "from", from.ID, "to", target, "kind", kind, "err", err)
		return textFailure, false
	}

	if res.Outcome == store.OutcomeNotEligible {
		return ackNotEligible, false
	}

	switch kind {
	case store.ReactionSkip:
		return ackSkipped, true

	case store.ReactionLike:
		if !res.Matched {
			return ackLike, true
		}
		if res.NewMatch {
			b.notifyMatch(target, res.MatchID, "💌 Someone you liked likes you back! Tap to view.")
		}
		return ackMatch, true

	default:
		sender := displayHandle(b.profileOrNil(ctx, from.ID), from.FirstName)
		if res.Matched {
			if res.NewMatch {
				b.notifyMatch(target, res.MatchID, fmt.Sprintf("🌟 You were chosen! %s used a Superlike on you!", sender))
			}
			return ackSuperMatch, true
		}
		msg := tgbotapi.NewMessage(target, fmt.Sprintf("🌟 You got a Superlike from %s!", sender))
		msg.ReplyMarkup = buildInlineKeyboard([][]inlineButton{{{Text: "👀 View", Data: cbNoop}}})
		b.notify(msg, target)
		return ackSuperlike, true
	}
}

func (b *Bot) notifyMatch(userID int64, matchID uint64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ReplyMarkup = viewMatchKeyboard(matchID)
	b.notify(msg, userID)
}

func (b *Bot) profileOrNil(ctx context.Context, id int64) *store.Profile {
	p, err := b.store.GetProfile(ctx, id)
	if err != nil {
		return nil
	}
	return p
}
