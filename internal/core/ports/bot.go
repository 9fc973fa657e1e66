package ports

import (
	"context"

	"ClipPay/internal/core/domain"
)

// --- Bot Message Structures ---

// Button represents a single button in a keyboard.
type Button struct {
	Text           string
	Data           string // For callbacks
	URL            string // For URL buttons
	RequestContact bool   // For the share-contact reply button
}

// ReplyMarkup represents any kind of keyboard markup.
type ReplyMarkup struct {
	Buttons  [][]Button
	IsInline bool // Differentiates between Inline and Reply keyboards
}

// SendMessageParams holds all possible options for sending a message.
type SendMessageParams struct {
	ChatID         int64
	Text           string
	ParseMode      string // e.g. "HTML" or empty for plain text
	ReplyMarkup    *ReplyMarkup
	RemoveKeyboard bool
}

// EditMessageParams edits the text (and markup) of an existing message.
type EditMessageParams struct {
	ChatID      int64
	MessageID   int
	Text        string
	ParseMode   string
	ReplyMarkup *ReplyMarkup
}

// AnswerCallbackParams acknowledges a button press. ShowAlert pops a
// modal instead of the transient toast.
type AnswerCallbackParams struct {
	CallbackQueryID string
	Text            string
	ShowAlert       bool
}

// --- Bot Client Port (Outbound) ---

// BotClientPort defines the interface for sending messages. Delivery is
// best-effort: a failed send is logged by the caller and never rolls
// back committed state.
type BotClientPort interface {
	// SendMessage delivers a message and returns its message id.
	SendMessage(ctx context.Context, params SendMessageParams) (int, error)
	EditMessageText(ctx context.Context, params EditMessageParams) error
	AnswerCallbackQuery(ctx context.Context, params AnswerCallbackParams) error
}

// --- Bot Handler Port (Inbound) ---

// ContactInfo is a structured contact payload shared by a user.
type ContactInfo struct {
	PhoneNumber string
	UserID      int64
}

// VideoInfo is a submitted video attachment.
type VideoInfo struct {
	FileID       string
	FileUniqueID string
}

// ReplyInfo describes the message an update replies to.
type ReplyInfo struct {
	MessageID int
	Text      string
	FromBot   bool
}

// BotUpdate represents a simplified, transport-agnostic inbound event.
type BotUpdate struct {
	MessageID       int
	ChatID          int64
	UserID          int64
	Username        string
	Text            string
	Command         string
	Contact         *ContactInfo
	Video           *VideoInfo
	ReplyTo         *ReplyInfo
	CallbackQueryID string
	CallbackData    *string

	// Blocked is set when the transport reports the user blocked the
	// bot. The update carries no chat to reply to.
	Blocked bool
}

// CommandHandler is the plugin interface for slash commands. Commands
// may run for unknown users (they might create the user).
type CommandHandler interface {
	// Command returns the command string without the slash.
	Command() string
	Handle(ctx context.Context, update *BotUpdate, user *domain.User) error
}

// CallbackHandler handles button presses matched by prefix.
type CallbackHandler interface {
	// Prefix returns the action token prefix (e.g. "approve_video").
	Prefix() string
	Handle(ctx context.Context, update *BotUpdate, user *domain.User) error
}

// MessageHandler is the single state-machine handler for everything
// that is neither a command nor a callback.
type MessageHandler interface {
	Handle(ctx context.Context, update *BotUpdate, user *domain.User) error
}
