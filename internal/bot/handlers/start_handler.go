// Package handlers contains the bot's plugin handlers. Each handler
// registers itself with the bot registry in init() and is constructed
// with its dependencies at startup.
package handlers

import (
	"context"
	"fmt"
	"html"

	"ClipPay/internal/bot"
	"ClipPay/internal/bot/messages"
	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterCommand(NewStartHandler)
}

// startHandler is the plugin for the /start command. It is the only
// handler that may run for an unknown user, because it creates one.
type startHandler struct {
	log      zerolog.Logger
	userRepo ports.UserRepository
	bot      ports.BotClientPort
}

// NewStartHandler creates a new handler for the /start command.
func NewStartHandler(deps *bot.Deps, baseLogger *zerolog.Logger) ports.CommandHandler {
	return &startHandler{
		log:      baseLogger.With().Str("component", "start_handler").Logger(),
		userRepo: deps.Users,
		bot:      deps.Bot,
	}
}

func (h *startHandler) Command() string {
	return "start"
}

func (h *startHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	ctxLogger := h.log.With().Int64("user_id", update.UserID).Logger()
	ctx = ctxLogger.WithContext(ctx)

	if user == nil {
		ctxLogger.Info().Msg("New user found. Creating account and prompting for registration.")

		newUser := &domain.User{
			ID:         uuid.New(),
			TelegramID: update.UserID,
			IsActive:   true,
			State:      domain.ConversationState{Kind: domain.StateAwaitingName},
		}
		if update.Username != "" {
			username := update.Username
			newUser.Username = &username
		}

		if err := h.userRepo.Create(ctx, newUser); err != nil {
			ctxLogger.Error().Err(err).Msg("Failed to create new user")
			return sendInternalError(ctx, h.bot, update.ChatID)
		}

		ctxLogger.Info().Str("user_id", newUser.ID.String()).Msg("New user created successfully")

		text := "👋 Welcome to ClipPay!\n\n" +
			"Submit videos, get them reviewed, and earn money for every approved clip.\n\n" +
			"To get started, please reply with your <b>full name</b>."
		_, err := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).WithText(text).WithRemoveKeyboard().Build())
		return err
	}

	// Coming back after blocking the bot reactivates the account.
	if !user.IsActive {
		user.IsActive = true
		if err := h.userRepo.Update(ctx, user); err != nil {
			ctxLogger.Error().Err(err).Msg("Failed to reactivate user")
			return sendInternalError(ctx, h.bot, update.ChatID)
		}
		ctxLogger.Info().Msg("Returning user reactivated")
	}

	if !user.Registered {
		// Resume the registration sequence where the user left off.
		switch user.State.Kind {
		case domain.StateAwaitingPhone:
			_, err := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
				WithText("Please share your <b>phone number</b> by pressing the button below.").
				WithContactButton("📱 Share My Phone Number").
				Build())
			return err
		default:
			// Covers a cancelled registration too: put the user back at
			// the name step so the next reply is captured.
			if user.State.Kind != domain.StateAwaitingName {
				if err := h.userRepo.SetState(ctx, user.ID, domain.ConversationState{Kind: domain.StateAwaitingName}); err != nil {
					ctxLogger.Error().Err(err).Msg("Failed to restart registration")
					return sendInternalError(ctx, h.bot, update.ChatID)
				}
			}
			_, err := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
				WithText("Please reply with your <b>full name</b> to continue registration.").
				Build())
			return err
		}
	}

	// Registered user: a fresh /start just resets to the main menu.
	if !user.State.IsIdle() {
		if err := h.userRepo.SetState(ctx, user.ID, domain.StateIdle); err != nil {
			ctxLogger.Error().Err(err).Msg("Failed to reset state on /start")
			return sendInternalError(ctx, h.bot, update.ChatID)
		}
	}

	greeting := "👋 Welcome back!"
	if user.FullName != nil {
		greeting = fmt.Sprintf("👋 Welcome back, %s!", html.EscapeString(*user.FullName))
	}
	_, err := h.bot.SendMessage(ctx, messages.MainMenu(update.ChatID, greeting, user.IsAdmin).Build())
	return err
}
