package bot

import (
	"fmt"

	"github.com/oggyb/matchbot/internal/config"
	"github.com/oggyb/matchbot/internal/db"
	"github.com/oggyb/matchbot/internal/store"
)

const (
	textFailure         = "Something went wrong. Please try again later."
	textUnknownCommand  = "Unknown command. Use /start"
	textStartFirst      = "Send /start to begin."
	textWelcomeBack     = "Welcome back."
	textSaved           = "Profile saved ✅"
	textUseMenu         = "Use the menu below."
	textMainMenu        = "Main menu"
	textNeedProfile     = "Fill in your profile first."
	textNotFilled       = "Your profile is not filled in. Press \"" + BtnRefill + "\"."
	textNoProfiles      = "No profiles right now. Come back later."
	textNoMatches       = "No new matches."
	textTooFrequent     = "Too many requests. Please wait a moment."
	textStartOver       = "Starting over. Enter your name (3-50 characters):"
	textEnterNumber     = "Please enter a number."
	textBadName         = "The name must be 3-50 characters. Try again:"
	textPurgeAsk        = "Delete your profile, likes and matches? This cannot be undone."
	textPurged          = "Your profile has been deleted. Send /start to begin again."
	textPurgeCancelled  = "Deletion cancelled."
	textNoRights        = "Not enough rights."
	textEditUnavailable = "Editing is unavailable right now. Please try again later."

	ackLike          = "Like saved"
	ackMatch         = "It's a match! 🎉"
	ackSuperlike     = "Superlike sent."
	ackSuperMatch    = "Superlike and a match!"
	ackSkipped       = "Skipped"
	ackNotEligible   = "A superlike is available once per cooldown period or with a referral bonus."
	ackBadData       = "Invalid data."
	ackGone          = "This profile is no longer available."
	ackMatchNotFound = "Match not found."
	ackBrowseHint    = "Open " + BtnBrowse + " to find them."
)

func stepPrompt(step db.Step, rules config.Rules) string {
	switch step {
	case db.StepName:
		return "Enter your name (3-50 characters):"
	case db.StepAge:
		return fmt.Sprintf("Enter your age (%d-%d):", rules.MinAge, rules.MaxAge)
	case db.StepBio:
		return fmt.Sprintf("Tell us about yourself (up to %d characters):", rules.BioLimit)
	case db.StepPhoto:
		return "Send a photo (as a photo, not a file):"
	default:
		return textWelcomeBack
	}
}

func editPrompt(field db.Step) string {
	switch field {
	case db.StepName:
		return "Enter a new name:"
	case db.StepAge:
		return "Enter a new age:"
	case db.StepBio:
		return "Enter a new bio:"
	default:
		return "Send a new photo:"
	}
}

func editDone(field db.Step) string {
	switch field {
	case db.StepName:
		return "Name updated."
	case db.StepAge:
		return "Age updated."
	case db.StepBio:
		return "Bio updated."
	default:
		return "Photo updated."
	}
}

func candidateCaption(p *store.Profile) string {
	name := p.Name
	if name == "" {
		name = "—"
	}
	return fmt.Sprintf("%s, %d\n\n%s", name, p.Age, p.Bio)
}

func profileCaption(p *store.Profile) string {
	caption := fmt.Sprintf("Name: %s\nAge: %d\nAbout: %s", p.Name, p.Age, p.Bio)
	if p.Handle != "" {
		caption += "\n@" + p.Handle
	}
	return caption
}

func inviteText(link string, bonusDays int) string {
	return fmt.Sprintf("Share this link: %s\nFor every friend who signs up with it you get +1 Superlike for %d days.", link, bonusDays)
}

// displayHandle names the sender of a superlike in notifications.
func displayHandle(p *store.Profile, fallback string) string {
	if p != nil && p.Handle != "" {
		return "@" + p.Handle
	}
	if fallback != "" {
		return fallback
	}
	return "Someone"
}
