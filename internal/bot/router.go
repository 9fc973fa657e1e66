// Package bot holds the conversation state machine: a router that
// dispatches inbound updates to registered command, callback and
// message handlers, and the plugin registry the handlers attach to.
package bot

import (
	"context"
	"strings"

	"ClipPay/internal/bot/messages"
	"ClipPay/internal/core/ports"

	"github.com/rs/zerolog"
)

// Router is the bot facade. It holds all handler "plugins" and routes
// incoming updates to the correct one. Dispatch order: commands first
// (they may create the user), then callbacks by prefix, then the
// single state-machine message handler.
type Router struct {
	log              zerolog.Logger
	userRepo         ports.UserRepository
	botClient        ports.BotClientPort
	commandHandlers  map[string]ports.CommandHandler
	callbackHandlers map[string]ports.CallbackHandler
	messageHandler   ports.MessageHandler
}

// NewRouter creates a new bot facade/router.
func NewRouter(
	userRepo ports.UserRepository,
	botClient ports.BotClientPort,
	baseLogger *zerolog.Logger,
) *Router {
	return &Router{
		log:              baseLogger.With().Str("component", "bot_router").Logger(),
		userRepo:         userRepo,
		botClient:        botClient,
		commandHandlers:  make(map[string]ports.CommandHandler),
		callbackHandlers: make(map[string]ports.CallbackHandler),
	}
}

// RegisterCommandHandler adds a command plugin to the router.
func (r *Router) RegisterCommandHandler(handler ports.CommandHandler) {
	cmd := handler.Command()
	r.commandHandlers[cmd] = handler
	r.log.Info().Str("command", cmd).Msg("Registered new command handler")
}

// RegisterCallbackHandler adds a callback plugin to the router.
func (r *Router) RegisterCallbackHandler(handler ports.CallbackHandler) {
	prefix := handler.Prefix()
	r.callbackHandlers[prefix] = handler
	r.log.Info().Str("prefix", prefix).Msg("Registered new callback handler")
}

// SetMessageHandler registers the single, global state-machine handler.
func (r *Router) SetMessageHandler(handler ports.MessageHandler) {
	r.messageHandler = handler
}

// HandleUpdate is the main entry point for a new inbound update.
func (r *Router) HandleUpdate(ctx context.Context, update *ports.BotUpdate) {
	ctxLogger := r.log.With().
		Int64("user_id", update.UserID).
		Int64("chat_id", update.ChatID).
		Logger()
	ctx = ctxLogger.WithContext(ctx)

	// Every branch needs the user object, so load it once.
	user, err := r.userRepo.GetByTelegramID(ctx, update.UserID)
	if err != nil {
		ctxLogger.Error().Err(err).Msg("Failed to get user for handling")
		r.botClient.SendMessage(ctx, messages.NewBuilder(update.ChatID).
			WithText("An internal error occurred. Please try again later.").
			WithParseMode("").Build())
		return
	}

	// A user who blocked the bot can no longer be messaged; mark the
	// account inactive and stop. The row stays for when they return.
	if update.Blocked {
		if user != nil {
			if err := r.userRepo.Deactivate(ctx, user.ID); err != nil {
				ctxLogger.Error().Err(err).Msg("Failed to deactivate blocked user")
				return
			}
			ctxLogger.Info().Msg("User blocked the bot, account deactivated")
		}
		return
	}

	// Unknown actors: a plain message drops straight into registration
	// via the /start bootstrap, which creates the account and asks for
	// the name. Other commands and stale button presses still point at
	// /start explicitly.
	if user == nil && update.Command != "start" {
		if update.Command == "" && update.CallbackData == nil {
			if start, ok := r.commandHandlers["start"]; ok {
				ctxLogger.Info().Msg("First contact from unknown user, starting registration")
				if err := start.Handle(ctx, update, nil); err != nil {
					ctxLogger.Error().Err(err).Msg("Registration bootstrap failed")
				}
				return
			}
		}
		r.botClient.SendMessage(ctx, messages.NewBuilder(update.ChatID).
			WithText("Please type /start to register first.").
			WithParseMode("").Build())
		return
	}

	// Commands resolve against the fixed command table.
	if update.Command != "" {
		handler, ok := r.commandHandlers[update.Command]
		if !ok {
			ctxLogger.Info().Str("command", update.Command).Msg("Unknown command")
			r.botClient.SendMessage(ctx, messages.NewBuilder(update.ChatID).
				WithText("Unknown command. Type /help to see what I can do.").
				WithParseMode("").Build())
			return
		}
		ctxLogger.Info().Str("handler", update.Command).Msg("Routing to command handler")
		if err := handler.Handle(ctx, update, user); err != nil {
			ctxLogger.Error().Err(err).Msg("Command handler failed")
		}
		return
	}

	// Callbacks are keyed by action-token prefix.
	if update.CallbackData != nil {
		for prefix, handler := range r.callbackHandlers {
			if strings.HasPrefix(*update.CallbackData, prefix) {
				ctxLogger.Info().Str("handler", prefix).Str("data", *update.CallbackData).Msg("Routing to callback handler")
				if err := handler.Handle(ctx, update, user); err != nil {
					ctxLogger.Error().Err(err).Msg("Callback handler failed")
				}
				return
			}
		}
		ctxLogger.Warn().Str("data", *update.CallbackData).Msg("No callback handler found")
		r.botClient.AnswerCallbackQuery(ctx, ports.AnswerCallbackParams{
			CallbackQueryID: update.CallbackQueryID,
		})
		return
	}

	// Everything else (text, contact, video) goes to the state machine.
	if r.messageHandler != nil {
		ctxLogger.Info().Str("state", user.State.String()).Msg("Routing message to state machine")
		if err := r.messageHandler.Handle(ctx, update, user); err != nil {
			ctxLogger.Error().Err(err).Msg("Message handler failed")
		}
		return
	}

	ctxLogger.Info().Str("text", update.Text).Msg("Received unhandled message (no handler)")
}
