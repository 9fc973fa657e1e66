package handlers

import (
	"context"
	"fmt"
	"html"
	"strings"

	"ClipPay/internal/bot"
	"ClipPay/internal/bot/messages"
	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterCommand(NewAdminHandler)
}

// adminHandler serves the /admin panel: system stats plus the pending
// submissions and withdrawals waiting for a decision, each with its
// action buttons.
type adminHandler struct {
	log   zerolog.Logger
	users ports.UserRepository
	cards *cardRenderer
}

func NewAdminHandler(deps *bot.Deps, baseLogger *zerolog.Logger) ports.CommandHandler {
	return &adminHandler{
		log:   baseLogger.With().Str("component", "admin_handler").Logger(),
		users: deps.Users,
		cards: newCardRenderer(deps),
	}
}

func (h *adminHandler) Command() string {
	return "admin"
}

func (h *adminHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	// Privilege is checked against the stored flag on every call.
	if user == nil || !user.IsAdmin {
		_, err := h.cards.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
			WithText("This command is for administrators only.").
			WithParseMode("").Build())
		return err
	}

	if err := h.cards.sendStats(ctx, update.ChatID); err != nil {
		return err
	}
	if err := h.sendPendingSubmissions(ctx, update.ChatID); err != nil {
		return err
	}
	return h.sendPendingWithdrawals(ctx, update.ChatID)
}

func (h *adminHandler) sendPendingSubmissions(ctx context.Context, chatID int64) error {
	pending, err := h.cards.review.ListPending(ctx)
	if err != nil {
		return sendInternalError(ctx, h.cards.bot, chatID)
	}
	if len(pending) == 0 {
		return nil
	}

	for _, sub := range pending {
		text := fmt.Sprintf("⏳ Submission #%d\nSubmitted: %s", sub.ID, sub.CreatedAt.Format("02 Jan 15:04"))
		if submitter, err := h.users.GetByID(ctx, sub.UserID); err == nil && submitter != nil && submitter.FullName != nil {
			text += fmt.Sprintf("\nBy: %s", html.EscapeString(*submitter.FullName))
		}
		_, err := h.cards.bot.SendMessage(ctx, messages.NewBuilder(chatID).
			WithText(text).
			WithInlineButtons(reviewButtons(sub.ID)).
			Build())
		if err != nil {
			h.log.Error().Err(err).Int64("submission_id", sub.ID).Msg("Failed to send pending submission")
		}
	}
	return nil
}

func (h *adminHandler) sendPendingWithdrawals(ctx context.Context, chatID int64) error {
	pending, err := h.cards.withdrawal.ListPending(ctx)
	if err != nil {
		return sendInternalError(ctx, h.cards.bot, chatID)
	}
	if len(pending) == 0 {
		return nil
	}

	for _, req := range pending {
		var sb strings.Builder
		fmt.Fprintf(&sb, "💸 Withdrawal #%d\nAmount: %s %s\nRequested: %s",
			req.ID, formatAmount(req.Amount), h.cards.currency, req.CreatedAt.Format("02 Jan 15:04"))
		if req.PaymentDetails != "" {
			fmt.Fprintf(&sb, "\nPay to: %s", html.EscapeString(req.PaymentDetails))
		}
		_, err := h.cards.bot.SendMessage(ctx, messages.NewBuilder(chatID).
			WithText(sb.String()).
			WithInlineButtons(withdrawalButtons(req.ID)).
			Build())
		if err != nil {
			h.log.Error().Err(err).Int64("request_id", req.ID).Msg("Failed to send pending withdrawal")
		}
	}
	return nil
}

// reviewButtons builds the approve/reject row for a submission.
func reviewButtons(submissionID int64) [][]ports.Button {
	return [][]ports.Button{{
		{Text: "✅ Approve", Data: fmt.Sprintf("approve_video:%d", submissionID)},
		{Text: "❌ Reject", Data: fmt.Sprintf("reject_video:%d", submissionID)},
	}}
}

// withdrawalButtons builds the approve/reject row for a withdrawal.
func withdrawalButtons(requestID int64) [][]ports.Button {
	return [][]ports.Button{{
		{Text: "✅ Approve", Data: fmt.Sprintf("approve_withdrawal:%d", requestID)},
		{Text: "❌ Reject", Data: fmt.Sprintf("reject_withdrawal:%d", requestID)},
	}}
}
