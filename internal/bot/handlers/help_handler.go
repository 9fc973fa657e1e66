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
	bot.RegisterCommand(NewHelpHandler)
}

type helpHandler struct {
	log      zerolog.Logger
	bot      ports.BotClientPort
	currency string
	reward   int64
	minimum  int64
}

func NewHelpHandler(deps *bot.Deps, baseLogger *zerolog.Logger) ports.CommandHandler {
	return &helpHandler{
		log:      baseLogger.With().Str("component", "help_handler").Logger(),
		bot:      deps.Bot,
		currency: deps.Cfg.Payment.CurrencyUnit,
		reward:   deps.Cfg.Payment.SubmissionReward,
		minimum:  deps.Cfg.Payment.MinWithdrawalAmount,
	}
}

func (h *helpHandler) Command() string {
	return "help"
}

func (h *helpHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	text := "ℹ️ <b>How ClipPay works</b>\n\n" +
		"1. Send me a video and it goes to our review team.\n" +
		"2. Every approved video earns you <b>" + formatAmount(h.reward) + " " + h.currency + "</b>.\n" +
		"3. Once your balance reaches <b>" + formatAmount(h.minimum) + " " + h.currency + "</b> you can withdraw it.\n\n" +
		"Commands:\n" +
		"/start — main menu\n" +
		"/profile — your profile\n" +
		"/balance — balance and withdrawal\n" +
		"/rating — monthly rating and leaderboard\n" +
		"/cancel — abort the current action"

	_, err := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).WithText(text).Build())
	return err
}
