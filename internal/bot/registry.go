package bot

import (
	"ClipPay/internal/core/ports"
	"ClipPay/internal/core/review"
	"ClipPay/internal/core/withdrawal"
	"ClipPay/internal/shared/config"

	"github.com/rs/zerolog"
)

// Deps bundles everything a handler constructor might need. Handlers
// pick the fields they use; main.go fills the whole struct once.
type Deps struct {
	Cfg        *config.Config
	Users      ports.UserRepository
	Ledger     ports.LedgerStore
	Ratings    ports.RatingStore
	Review     *review.Service
	Withdrawal *withdrawal.Service
	Bot        ports.BotClientPort
	Bus        ports.EventBus
}

// Handler "constructor" types, so handlers can self-register in init()
// and still receive their dependencies from main.go.

type CommandHandlerConstructor func(deps *Deps, baseLogger *zerolog.Logger) ports.CommandHandler

type CallbackHandlerConstructor func(deps *Deps, baseLogger *zerolog.Logger) ports.CallbackHandler

type MessageHandlerConstructor func(deps *Deps, baseLogger *zerolog.Logger) ports.MessageHandler

var (
	commandRegistry  []CommandHandlerConstructor
	callbackRegistry []CallbackHandlerConstructor
	messageHandler   MessageHandlerConstructor
)

// RegisterCommand is called by handlers in their init() function.
func RegisterCommand(constructor CommandHandlerConstructor) {
	commandRegistry = append(commandRegistry, constructor)
}

// RegisterCallback is called by callback handlers in their init().
func RegisterCallback(constructor CallbackHandlerConstructor) {
	callbackRegistry = append(callbackRegistry, constructor)
}

// RegisterMessage is called by the state-machine message handler.
// Only one global message handler is allowed.
func RegisterMessage(constructor MessageHandlerConstructor) {
	messageHandler = constructor
}

// RegisterAllHandlers builds all registered handlers and passes them to
// the router. Called once from main.go.
func RegisterAllHandlers(router *Router, deps *Deps, baseLogger *zerolog.Logger) {
	log := baseLogger.With().Str("component", "bot_registry").Logger()

	for _, constructor := range commandRegistry {
		router.RegisterCommandHandler(constructor(deps, baseLogger))
	}

	for _, constructor := range callbackRegistry {
		router.RegisterCallbackHandler(constructor(deps, baseLogger))
	}

	if messageHandler != nil {
		router.SetMessageHandler(messageHandler(deps, baseLogger))
		log.Info().Msg("Registered main message handler")
	}
}
