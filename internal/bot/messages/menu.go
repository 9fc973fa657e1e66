package messages

// Menu labels. These exact strings come back as free text when a user
// taps a reply-keyboard button, so the state machine matches on them.
const (
	MenuSubmitVideo = "📤 Submit Video"
	MenuProfile     = "👤 My Profile"
	MenuBalance     = "💰 My Balance"
	MenuRating      = "📊 My Rating"
	MenuCancel      = "❌ Cancel"

	// Admin-only text trigger, shown on the admin's keyboard.
	MenuStats = "📈 Stats"
)

// MainMenuButtons returns the reply-keyboard labels for an idle user.
func MainMenuButtons(isAdmin bool) []string {
	buttons := []string{MenuSubmitVideo, MenuProfile, MenuBalance, MenuRating}
	if isAdmin {
		buttons = append(buttons, MenuStats)
	}
	return buttons
}

// MainMenu builds the standard idle-state keyboard message.
func MainMenu(chatID int64, text string, isAdmin bool) *Builder {
	return NewBuilder(chatID).
		WithText(text).
		WithReplyButtons(MainMenuButtons(isAdmin), 2)
}
