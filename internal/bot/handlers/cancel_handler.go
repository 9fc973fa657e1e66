package handlers

import (
	"context"

	"ClipPay/internal/bot"
	"ClipPay/internal/bot/messages"
	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterCommand(NewCancelHandler)
	bot.RegisterCallback(NewCancelCallbackHandler)
}

// cancelHandler resets the conversation state unconditionally. It is
// the escape hatch from any stuck state, so it has no preconditions.
type cancelHandler struct {
	log      zerolog.Logger
	userRepo ports.UserRepository
	bot      ports.BotClientPort
}

func NewCancelHandler(deps *bot.Deps, baseLogger *zerolog.Logger) ports.CommandHandler {
	return &cancelHandler{
		log:      baseLogger.With().Str("component", "cancel_handler").Logger(),
		userRepo: deps.Users,
		bot:      deps.Bot,
	}
}

func (h *cancelHandler) Command() string {
	return "cancel"
}

func (h *cancelHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	if user == nil {
		return nil
	}
	if err := h.userRepo.SetState(ctx, user.ID, domain.StateIdle); err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to reset state on cancel")
		return sendInternalError(ctx, h.bot, update.ChatID)
	}

	if !user.Registered {
		// Cancelling mid-registration leaves the account unregistered;
		// /start resumes it.
		_, err := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
			WithText("Cancelled. Type /start whenever you want to finish registration.").
			WithParseMode("").WithRemoveKeyboard().Build())
		return err
	}

	_, err := h.bot.SendMessage(ctx, messages.MainMenu(update.ChatID, "Cancelled. What next?", user.IsAdmin).Build())
	return err
}

// cancelCallbackHandler is the inline-button twin of /cancel, used by
// prompts that carry a cancel button (the withdrawal amount prompt).
type cancelCallbackHandler struct {
	cancel *cancelHandler
}

func NewCancelCallbackHandler(deps *bot.Deps, baseLogger *zerolog.Logger) ports.CallbackHandler {
	return &cancelCallbackHandler{
		cancel: &cancelHandler{
			log:      baseLogger.With().Str("component", "cancel_callback_handler").Logger(),
			userRepo: deps.Users,
			bot:      deps.Bot,
		},
	}
}

func (h *cancelCallbackHandler) Prefix() string {
	return "cancel"
}

func (h *cancelCallbackHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	h.cancel.bot.AnswerCallbackQuery(ctx, ports.AnswerCallbackParams{CallbackQueryID: update.CallbackQueryID})
	return h.cancel.Handle(ctx, update, user)
}
