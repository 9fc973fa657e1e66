package handlers

import (
	"context"
	"fmt"
	"html"

	"ClipPay/internal/bot/messages"
	"ClipPay/internal/core/ports"
	"ClipPay/internal/core/review"
	"ClipPay/internal/core/withdrawal"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NotificationHandler listens for workflow outcome events on the
// EventBus and tells the affected user what happened. It is NOT a
// router plugin; it's a system component subscribed at startup.
// Delivery is best-effort: the decision is already committed.
type NotificationHandler struct {
	log      zerolog.Logger
	bot      ports.BotClientPort
	userRepo ports.UserRepository
	currency string
}

// NewNotificationHandler creates the handler for user notifications.
func NewNotificationHandler(
	botClient ports.BotClientPort,
	userRepo ports.UserRepository,
	currency string,
	baseLogger *zerolog.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		log:      baseLogger.With().Str("component", "notification_handler").Logger(),
		bot:      botClient,
		userRepo: userRepo,
		currency: currency,
	}
}

// Subscribe attaches the handler to all workflow outcome topics.
func (h *NotificationHandler) Subscribe(bus ports.EventBus) {
	bus.Subscribe(ports.TopicSubmissionApproved, h.HandleSubmissionApproved)
	bus.Subscribe(ports.TopicSubmissionRejected, h.HandleSubmissionRejected)
	bus.Subscribe(ports.TopicWithdrawalRequested, h.HandleWithdrawalRequested)
	bus.Subscribe(ports.TopicWithdrawalApproved, h.HandleWithdrawalApproved)
	bus.Subscribe(ports.TopicWithdrawalRejected, h.HandleWithdrawalRejected)
}

// HandleWithdrawalRequested alerts every admin that a new payout is
// waiting. Submissions reach admins through the review channel;
// withdrawals have no channel, so admins are pinged directly.
func (h *NotificationHandler) HandleWithdrawalRequested(ctx context.Context, event ports.Event) error {
	outcome, ok := event.Data.(withdrawal.Outcome)
	if !ok {
		h.log.Error().Str("topic", event.Topic).Msg("Received invalid event payload")
		return nil
	}

	admins, err := h.userRepo.ListAdmins(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list admins for withdrawal alert")
		return err
	}

	text := fmt.Sprintf("🔔 New withdrawal request <b>#%d</b> for <b>%s %s</b>.\nOpen /admin to process it.",
		outcome.RequestID, formatAmount(outcome.Amount), h.currency)
	for _, admin := range admins {
		if _, err := h.bot.SendMessage(ctx, messages.NewBuilder(admin.TelegramID).WithText(text).Build()); err != nil {
			h.log.Error().Err(err).Int64("admin_id", admin.TelegramID).Msg("Failed to alert admin")
		}
	}
	return nil
}

// HandleSubmissionApproved notifies the submitter about the reward.
func (h *NotificationHandler) HandleSubmissionApproved(ctx context.Context, event ports.Event) error {
	outcome, ok := event.Data.(review.Outcome)
	if !ok {
		h.log.Error().Str("topic", event.Topic).Msg("Received invalid event payload")
		return nil // Don't retry
	}

	text := fmt.Sprintf("🎉 Your video <b>#%d</b> was approved!\n<b>%s %s</b> has been added to your balance.",
		outcome.SubmissionID, formatAmount(outcome.Reward), h.currency)
	return h.notify(ctx, outcome.UserID, text)
}

// HandleSubmissionRejected notifies the submitter with the reason.
func (h *NotificationHandler) HandleSubmissionRejected(ctx context.Context, event ports.Event) error {
	outcome, ok := event.Data.(review.Outcome)
	if !ok {
		h.log.Error().Str("topic", event.Topic).Msg("Received invalid event payload")
		return nil
	}

	text := fmt.Sprintf("😔 Your video <b>#%d</b> was rejected.\nReason: %s\n\nDon't give up — send another one!",
		outcome.SubmissionID, html.EscapeString(outcome.Reason))
	return h.notify(ctx, outcome.UserID, text)
}

// HandleWithdrawalApproved confirms the payout.
func (h *NotificationHandler) HandleWithdrawalApproved(ctx context.Context, event ports.Event) error {
	outcome, ok := event.Data.(withdrawal.Outcome)
	if !ok {
		h.log.Error().Str("topic", event.Topic).Msg("Received invalid event payload")
		return nil
	}

	text := fmt.Sprintf("✅ Your withdrawal <b>#%d</b> for <b>%s %s</b> has been paid out.",
		outcome.RequestID, formatAmount(outcome.Amount), h.currency)
	return h.notify(ctx, outcome.UserID, text)
}

// HandleWithdrawalRejected explains the refund.
func (h *NotificationHandler) HandleWithdrawalRejected(ctx context.Context, event ports.Event) error {
	outcome, ok := event.Data.(withdrawal.Outcome)
	if !ok {
		h.log.Error().Str("topic", event.Topic).Msg("Received invalid event payload")
		return nil
	}

	text := fmt.Sprintf("❌ Your withdrawal <b>#%d</b> was rejected.\nReason: %s\n\nThe <b>%s %s</b> is back on your balance.",
		outcome.RequestID, html.EscapeString(outcome.Reason), formatAmount(outcome.Amount), h.currency)
	return h.notify(ctx, outcome.UserID, text)
}

func (h *NotificationHandler) notify(ctx context.Context, userID uuid.UUID, text string) error {
	log := h.log.With().Str("user_id", userID.String()).Logger()

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load user for notification")
		return err
	}
	if user == nil {
		log.Warn().Msg("Notification target no longer exists")
		return nil
	}

	if _, err := h.bot.SendMessage(ctx, messages.NewBuilder(user.TelegramID).WithText(text).Build()); err != nil {
		log.Error().Err(err).Msg("Failed to send notification")
		return err
	}
	return nil
}
