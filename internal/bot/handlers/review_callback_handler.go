package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"ClipPay/internal/bot"
	"ClipPay/internal/bot/messages"
	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"
	"ClipPay/internal/core/review"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterCallback(NewApproveVideoHandler)
	bot.RegisterCallback(NewRejectVideoHandler)
}

// requireAdmin re-checks the stored privilege flag at dispatch time and
// fails closed with an alert. Client-supplied state is never trusted:
// the buttons live in a channel, but anyone who somehow obtains the
// token must still be an admin now.
func requireAdmin(ctx context.Context, client ports.BotClientPort, update *ports.BotUpdate, user *domain.User) bool {
	if user != nil && user.IsAdmin {
		return true
	}
	client.AnswerCallbackQuery(ctx, ports.AnswerCallbackParams{
		CallbackQueryID: update.CallbackQueryID,
		Text:            "You are not authorized to do this.",
		ShowAlert:       true,
	})
	return false
}

// parseActionID extracts the numeric parameter from an action token
// like "approve_video:17".
func parseActionID(data string) (int64, error) {
	_, raw, ok := strings.Cut(data, ":")
	if !ok {
		return 0, fmt.Errorf("action token without id: %q", data)
	}
	return strconv.ParseInt(raw, 10, 64)
}

// approveVideoHandler settles a submission in the submitter's favor.
type approveVideoHandler struct {
	log    zerolog.Logger
	bot    ports.BotClientPort
	review *review.Service
}

func NewApproveVideoHandler(deps *bot.Deps, baseLogger *zerolog.Logger) ports.CallbackHandler {
	return &approveVideoHandler{
		log:    baseLogger.With().Str("component", "approve_video_handler").Logger(),
		bot:    deps.Bot,
		review: deps.Review,
	}
}

func (h *approveVideoHandler) Prefix() string {
	return "approve_video"
}

func (h *approveVideoHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	if !requireAdmin(ctx, h.bot, update, user) {
		return nil
	}
	h.bot.AnswerCallbackQuery(ctx, ports.AnswerCallbackParams{CallbackQueryID: update.CallbackQueryID})

	id, err := parseActionID(*update.CallbackData)
	if err != nil {
		h.log.Error().Err(err).Str("data", *update.CallbackData).Msg("Invalid callback data")
		return nil
	}

	ok, err := h.review.Approve(ctx, id, user)
	if err != nil {
		h.log.Error().Err(err).Int64("submission_id", id).Msg("Failed to approve submission")
		return h.editResult(ctx, update, fmt.Sprintf("Error processing submission #%d.", id))
	}
	if !ok {
		return h.editResult(ctx, update, fmt.Sprintf("Submission #%d was already processed.", id))
	}

	adminName := "admin"
	if user.FullName != nil {
		adminName = *user.FullName
	}
	return h.editResult(ctx, update, fmt.Sprintf("✅ Submission #%d approved by %s", id, adminName))
}

func (h *approveVideoHandler) editResult(ctx context.Context, update *ports.BotUpdate, text string) error {
	return h.bot.EditMessageText(ctx, ports.EditMessageParams{
		ChatID:    update.ChatID,
		MessageID: update.MessageID,
		Text:      text,
	})
}

// rejectVideoHandler does not reject immediately: it parks the admin in
// the rejection-reason state so the next text message completes the
// rejection with a reason.
type rejectVideoHandler struct {
	log      zerolog.Logger
	userRepo ports.UserRepository
	bot      ports.BotClientPort
}

func NewRejectVideoHandler(deps *bot.Deps, baseLogger *zerolog.Logger) ports.CallbackHandler {
	return &rejectVideoHandler{
		log:      baseLogger.With().Str("component", "reject_video_handler").Logger(),
		userRepo: deps.Users,
		bot:      deps.Bot,
	}
}

func (h *rejectVideoHandler) Prefix() string {
	return "reject_video"
}

func (h *rejectVideoHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	if !requireAdmin(ctx, h.bot, update, user) {
		return nil
	}

	id, err := parseActionID(*update.CallbackData)
	if err != nil {
		h.log.Error().Err(err).Str("data", *update.CallbackData).Msg("Invalid callback data")
		return nil
	}

	state := domain.ConversationState{Kind: domain.StateAwaitingRejectionReason, Ref: id}
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

	// Prompt in the admin's private chat, where the reason will arrive.
	_, err = h.bot.SendMessage(ctx, messages.NewBuilder(user.TelegramID).
		WithText(fmt.Sprintf("Why are you rejecting submission <b>#%d</b>? Reply with the reason.", id)).
		Build())
	return err
}
