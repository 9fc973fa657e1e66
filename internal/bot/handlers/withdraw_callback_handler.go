package handlers

import (
	"context"
	"fmt"

	"ClipPay/internal/bot"
	"ClipPay/internal/bot/messages"
	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"
	"ClipPay/internal/core/withdrawal"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterCallback(NewWithdrawCallbackHandler)
}

// withdrawCallbackHandler reacts to the "withdraw" button on the
// balance card by moving the user into the amount-entry state.
type withdrawCallbackHandler struct {
	log        zerolog.Logger
	userRepo   ports.UserRepository
	bot        ports.BotClientPort
	withdrawal *withdrawal.Service
	currency   string
}

func NewWithdrawCallbackHandler(deps *bot.Deps, baseLogger *zerolog.Logger) ports.CallbackHandler {
	return &withdrawCallbackHandler{
		log:        baseLogger.With().Str("component", "withdraw_callback_handler").Logger(),
		userRepo:   deps.Users,
		bot:        deps.Bot,
		withdrawal: deps.Withdrawal,
		currency:   deps.Cfg.Payment.CurrencyUnit,
	}
}

func (h *withdrawCallbackHandler) Prefix() string {
	return "withdraw"
}

func (h *withdrawCallbackHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	h.bot.AnswerCallbackQuery(ctx, ports.AnswerCallbackParams{CallbackQueryID: update.CallbackQueryID})

	if !requireRegistered(ctx, h.bot, update.ChatID, user) {
		return nil
	}

	if err := h.userRepo.SetState(ctx, user.ID, domain.ConversationState{Kind: domain.StateAwaitingWithdrawalAmount}); err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to set withdrawal state")
		return sendInternalError(ctx, h.bot, update.ChatID)
	}

	text := fmt.Sprintf("How much would you like to withdraw?\n\nSend the amount as a number (minimum <b>%s %s</b>).",
		formatAmount(h.withdrawal.MinAmount()), h.currency)
	_, err := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
		WithText(text).
		WithInlineButtons([][]ports.Button{
			{{Text: messages.MenuCancel, Data: "cancel"}},
		}).
		Build())
	return err
}
