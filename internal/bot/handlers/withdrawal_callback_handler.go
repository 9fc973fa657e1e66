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
	bot.RegisterCallback(NewApproveWithdrawalHandler)
	bot.RegisterCallback(NewRejectWithdrawalHandler)
}

// approveWithdrawalHandler completes a pending withdrawal request.
type approveWithdrawalHandler struct {
	log        zerolog.Logger
	bot        ports.BotClientPort
	withdrawal *withdrawal.Service
}

func NewApproveWithdrawalHandler(deps *bot.Deps, baseLogger *zerolog.Logger) ports.CallbackHandler {
	return &approveWithdrawalHandler{
		log:        baseLogger.With().Str("component", "approve_withdrawal_handler").Logger(),
		bot:        deps.Bot,
		withdrawal: deps.Withdrawal,
	}
}

func (h *approveWithdrawalHandler) Prefix() string {
	return "approve_withdrawal"
}

func (h *approveWithdrawalHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	if !requireAdmin(ctx, h.bot, update, user) {
		return nil
	}
	h.bot.AnswerCallbackQuery(ctx, ports.AnswerCallbackParams{CallbackQueryID: update.CallbackQueryID})

	id, err := parseActionID(*update.CallbackData)
	if err != nil {
		h.log.Error().Err(err).Str("data", *update.CallbackData).Msg("Invalid callback data")
		return nil
	}

	ok, err := h.withdrawal.Approve(ctx, id, user)
	if err != nil {
		h.log.Error().Err(err).Int64("request_id", id).Msg("Failed to approve withdrawal")
		return h.editResult(ctx, update, fmt.Sprintf("Error processing withdrawal #%d.", id))
	}
	if !ok {
		return h.editResult(ctx, update, fmt.Sprintf("Withdrawal #%d was already processed.", id))
	}

	adminName := "admin"
	if user.FullName != nil {
		adminName = *user.FullName
	}
	return h.editResult(ctx, update, fmt.Sprintf("✅ Withdrawal #%d paid out by %s", id, adminName))
}

func (h *approveWithdrawalHandler) editResult(ctx context.Context, update *ports.BotUpdate, text string) error {
	return h.bot.EditMessageText(ctx, ports.EditMessageParams{
		ChatID:    update.ChatID,
		MessageID: update.MessageID,
		Text:      text,
	})
}

// rejectWithdrawalHandler parks the admin in the withdrawal-rejection
// state; the next text message supplies the reason and triggers the
// refund.
type rejectWithdrawalHandler struct {
	log      zerolog.Logger
	userRepo ports.UserRepository
	bot      ports.BotClientPort
}

func NewRejectWithdrawalHandler(deps *bot.Deps, baseLogger *zerolog.Logger) ports.CallbackHandler {
	return &rejectWithdrawalHandler{
		log:      baseLogger.With().Str("component", "reject_withdrawal_handler").Logger(),
		userRepo: deps.Users,
		bot:      deps.Bot,
	}
}

func (h *rejectWithdrawalHandler) Prefix() string {
	return "reject_withdrawal"
}

func (h *rejectWithdrawalHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	if !requireAdmin(ctx, h.bot, update, user) {
		return nil
	}

	id, err := parseActionID(*update.CallbackData)
	if err != nil {
		h.log.Error().Err(err).Str("data", *update.CallbackData).Msg("Invalid callback data")
		return nil
	}

	state := domain.ConversationState{Kind: domain.StateAwaitingWithdrawalRejection, Ref: id}
	if err := h.userRepo.SetState(ctx, user.ID, state); err != nil {
		h.log.Error().Err(err).Str("admin_id", user.ID.String()).Msg("Failed to set rejection state")
		h.bot.AnswerCallbackQuery(ctx, ports.AnswerCallbackParams{
			CallbackQueryID: update.CallbackQueryID,
			Text:            "Internal error, try again.",
			ShowAlert:       true,
		})
		return nil
	}

	h.bot.AnswerCallbackQuery(ctx, ports.AnswerCallbackParams{
		CallbackQueryID: update.CallbackQueryID,
		Text:            "Send the rejection reason in the chat.",
	})

	_, err = h.bot.SendMessage(ctx, messages.NewBuilder(user.TelegramID).
		WithText(fmt.Sprintf("Why are you rejecting withdrawal <b>#%d</b>? Reply with the reason.", id)).
		Build())
	return err
}
