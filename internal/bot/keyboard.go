package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Main menu buttons.
const (
	BtnMyProfile = "📄 My profile"
	BtnBrowse    = "🔍 Browse"
	BtnMatches   = "❤️ My matches"
	BtnRefill    = "✏️ Fill profile again"
	BtnInvite    = "👥 Invite a friend"
)

// Callback data.
const (
	cbLike       = "like"
	cbSuperlike  = "superlike"
	cbSkip       = "skip"
	cbMenu       = "menu"
	cbViewMatch  = "viewmatch"
	cbEditName   = "edit_name"
	cbEditAge    = "edit_age"
	cbEditBio    = "edit_bio"
	cbEditPhoto  = "edit_photo"
	cbRefill     = "re_full"
	cbPurge      = "purge"
	cbNoop       = "noop"
	purgeConfirm = "confirm"
	purgeCancel  = "cancel"
)

type inlineButton struct {
	Text string
	Data string
}

func buildReplyKeyboard(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	keyboardRows := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, title := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(title))
		}
		keyboardRows = append(keyboardRows, buttons)
	}

	keyboard := tgbotapi.NewReplyKeyboard(keyboardRows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func buildInlineKeyboard(rows [][]inlineButton) tgbotapi.InlineKeyboardMarkup {
	keyboardRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.Data))
		}
		keyboardRows = append(keyboardRows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboardRows...)
}

func mainMenu() tgbotapi.ReplyKeyboardMarkup {
	return buildReplyKeyboard([][]string{
		{BtnMyProfile},
		{BtnBrowse, BtnMatches},
		{BtnRefill},
		{BtnInvite},
	})
}

func candidateKeyboard(targetID int64, superlike bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]inlineButton{
		{{Text: "❤️ Like", Data: fmt.Sprintf("%s:%d", cbLike, targetID)}},
	}
	if superlike {
		rows = append(rows, []inlineButton{{Text: "🌟 Superlike", Data: fmt.Sprintf("%s:%d", cbSuperlike, targetID)}})
	}
	rows = append(rows,
		[]inlineButton{{Text: "➡️ Skip", Data: fmt.Sprintf("%s:%d", cbSkip, targetID)}},
		[]inlineButton{{Text: "⬅️ Menu", Data: cbMenu}},
	)
	return buildInlineKeyboard(rows)
}

func editKeyboard() tgbotapi.InlineKeyboardMarkup {
	return buildInlineKeyboard([][]inlineButton{
		{{Text: "✏️ Change name", Data: cbEditName}, {Text: "✏️ Change age", Data: cbEditAge}},
		{{Text: "✏️ Change bio", Data: cbEditBio}, {Text: "📷 Change photo", Data: cbEditPhoto}},
		{{Text: "Fill in again", Data: cbRefill}},
	})
}

func viewMatchKeyboard(matchID uint64) tgbotapi.InlineKeyboardMarkup {
	return buildInlineKeyboard([][]inlineButton{
		{{Text: "👀 View", Data: fmt.Sprintf("%s:%d", cbViewMatch, matchID)}},
	})
}

func purgeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return buildInlineKeyboard([][]inlineButton{
		{
			{Text: "Yes, delete", Data: cbPurge + ":" + purgeConfirm},
			{Text: "Cancel", Data: cbPurge + ":" + purgeCancel},
		},
	})
}
