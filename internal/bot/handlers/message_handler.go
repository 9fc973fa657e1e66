package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"ClipPay/internal/bot"
	"ClipPay/internal/bot/messages"
	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"
	"ClipPay/internal/core/review"
	"ClipPay/internal/core/withdrawal"

	"github.com/rs/zerolog"
)

func init() {
	bot.RegisterMessage(NewMessageHandler)
}

// messageHandler is the conversation state machine. Everything that is
// neither a command nor a button press lands here and is interpreted
// according to the user's persisted state.
type messageHandler struct {
	log        zerolog.Logger
	userRepo   ports.UserRepository
	bot        ports.BotClientPort
	review     *review.Service
	withdrawal *withdrawal.Service
	cards      *cardRenderer
	currency   string
	reward     int64
}

func NewMessageHandler(deps *bot.Deps, baseLogger *zerolog.Logger) ports.MessageHandler {
	return &messageHandler{
		log:        baseLogger.With().Str("component", "message_handler").Logger(),
		userRepo:   deps.Users,
		bot:        deps.Bot,
		review:     deps.Review,
		withdrawal: deps.Withdrawal,
		cards:      newCardRenderer(deps),
		currency:   deps.Cfg.Payment.CurrencyUnit,
		reward:     deps.Cfg.Payment.SubmissionReward,
	}
}

func (h *messageHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	ctxLogger := h.log.With().
		Str("user_id", user.ID.String()).
		Str("state", user.State.String()).
		Logger()
	ctx = ctxLogger.WithContext(ctx)

	text := strings.TrimSpace(update.Text)

	// The cancel label is the unconditional escape hatch.
	if text == messages.MenuCancel {
		return h.cancel(ctx, update, user)
	}

	// A video always means "submit for review", whatever state the
	// user is in.
	if update.Video != nil {
		return h.handleVideo(ctx, update, user)
	}

	switch user.State.Kind {
	case domain.StateAwaitingName:
		return h.captureName(ctx, update, user, text)
	case domain.StateAwaitingPhone:
		return h.capturePhone(ctx, update, user)
	case domain.StateAwaitingWithdrawalAmount:
		return h.captureWithdrawalAmount(ctx, update, user, text)
	case domain.StateAwaitingRejectionReason:
		return h.captureRejectionReason(ctx, update, user, text)
	case domain.StateAwaitingWithdrawalRejection:
		return h.captureWithdrawalRejection(ctx, update, user, text)
	}

	return h.handleIdle(ctx, update, user, text)
}

func (h *messageHandler) cancel(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	if err := h.userRepo.SetState(ctx, user.ID, domain.StateIdle); err != nil {
		return sendInternalError(ctx, h.bot, update.ChatID)
	}
	_, err := h.bot.SendMessage(ctx, messages.MainMenu(update.ChatID, "Cancelled. What next?", user.IsAdmin).Build())
	return err
}

// --- registration ---

func (h *messageHandler) captureName(ctx context.Context, update *ports.BotUpdate, user *domain.User, text string) error {
	if len(text) < 2 {
		_, err := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
			WithText("That doesn't look like a name. Please reply with your <b>full name</b>.").
			Build())
		return err
	}

	user.FullName = &text
	user.State = domain.ConversationState{Kind: domain.StateAwaitingPhone}
	if err := h.userRepo.Update(ctx, user); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to save full name")
		return sendInternalError(ctx, h.bot, update.ChatID)
	}

	_, err := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
		WithText(fmt.Sprintf("Nice to meet you, %s!\n\nNow please share your <b>phone number</b> by pressing the button below.", html.EscapeString(text))).
		WithContactButton("📱 Share My Phone Number").
		Build())
	return err
}

func (h *messageHandler) capturePhone(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	// Free text is not accepted here: the structured contact payload
	// cannot be forged by typing someone else's number.
	if update.Contact == nil || update.Contact.UserID != update.UserID {
		_, err := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
			WithText("Please use the <b>button below</b> to share your own phone number.").
			WithContactButton("📱 Share My Phone Number").
			Build())
		return err
	}

	phone := update.Contact.PhoneNumber
	user.Phone = &phone
	user.Registered = true
	user.State = domain.StateIdle
	if err := h.userRepo.Update(ctx, user); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to complete registration")
		return sendInternalError(ctx, h.bot, update.ChatID)
	}

	zerolog.Ctx(ctx).Info().Msg("User registration completed")

	text := fmt.Sprintf("🎉 You're all set!\n\nSend me a video any time — every approved clip earns you <b>%s %s</b>.",
		formatAmount(h.reward), h.currency)
	_, err := h.bot.SendMessage(ctx, messages.MainMenu(update.ChatID, text, user.IsAdmin).Build())
	return err
}

// --- submission ---

func (h *messageHandler) handleVideo(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	if !user.Registered {
		_, err := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
			WithText("Almost there! Finish registration first, then send your video again.").
			WithParseMode("").Build())
		return err
	}

	id, err := h.review.Submit(ctx, user, domain.ContentRef{
		FileID:       update.Video.FileID,
		FileUniqueID: update.Video.FileUniqueID,
		MessageID:    update.MessageID,
	}, submitterCaption(user))
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			_, serr := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
				WithText("I couldn't read that video. Please try sending it again.").
				WithParseMode("").Build())
			return serr
		}
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to submit video")
		return sendInternalError(ctx, h.bot, update.ChatID)
	}

	_, err = h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
		WithText(fmt.Sprintf("🎬 Got it! Your video is submission <b>#%d</b> and is now waiting for review.\nYou'll hear from me as soon as it's decided.", id)).
		Build())
	return err
}

// submitterCaption formats the submitter info shown to reviewers.
func submitterCaption(user *domain.User) string {
	var sb strings.Builder
	if user.FullName != nil {
		sb.WriteString(*user.FullName)
	}
	if user.Username != nil {
		fmt.Fprintf(&sb, " (@%s)", *user.Username)
	}
	return sb.String()
}

// --- withdrawal ---

func (h *messageHandler) captureWithdrawalAmount(ctx context.Context, update *ports.BotUpdate, user *domain.User, text string) error {
	amount, err := strconv.ParseInt(strings.ReplaceAll(text, " ", ""), 10, 64)
	if err != nil || amount <= 0 {
		_, serr := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
			WithText(fmt.Sprintf("Please send the amount as a plain number, e.g. <b>%s</b>.", formatAmount(h.withdrawal.MinAmount()))).
			Build())
		return serr
	}

	// Payouts go to the phone number collected at registration.
	paymentDetails := ""
	if user.Phone != nil {
		paymentDetails = *user.Phone
	}

	id, err := h.withdrawal.Request(ctx, user, amount, paymentDetails)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPolicy):
			_, serr := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
				WithText(fmt.Sprintf("The minimum withdrawal is <b>%s %s</b>. Please send a larger amount.",
					formatAmount(h.withdrawal.MinAmount()), h.currency)).
				Build())
			return serr
		case errors.Is(err, domain.ErrInsufficientFunds):
			balance, berr := h.withdrawal.BalanceOf(ctx, user.ID)
			if berr != nil {
				return sendInternalError(ctx, h.bot, update.ChatID)
			}
			_, serr := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
				WithText(fmt.Sprintf("You don't have that much. Your balance is <b>%s %s</b>.",
					formatAmount(balance), h.currency)).
				Build())
			return serr
		default:
			zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to create withdrawal request")
			return sendInternalError(ctx, h.bot, update.ChatID)
		}
	}

	if err := h.userRepo.SetState(ctx, user.ID, domain.StateIdle); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to reset state after withdrawal request")
	}

	text = fmt.Sprintf("💸 Withdrawal request <b>#%d</b> for <b>%s %s</b> created.\nThe amount is reserved from your balance until an admin processes it.",
		id, formatAmount(amount), h.currency)
	_, err = h.bot.SendMessage(ctx, messages.MainMenu(update.ChatID, text, user.IsAdmin).Build())
	return err
}

// --- admin free-text continuations ---

// replyAddressesBot reports whether the admin's message can carry the
// rejection reason: plain text, or a reply to the bot's own prompt. A
// reply to someone else's message in the same chat is not the reason
// and is left alone so the flow stays armed.
func replyAddressesBot(update *ports.BotUpdate) bool {
	return update.ReplyTo == nil || update.ReplyTo.FromBot
}

func (h *messageHandler) captureRejectionReason(ctx context.Context, update *ports.BotUpdate, user *domain.User, reason string) error {
	// The state can only be set through an admin button press, but the
	// flag is re-checked anyway.
	if !user.IsAdmin {
		return h.cancel(ctx, update, user)
	}
	if !replyAddressesBot(update) {
		return nil
	}
	if reason == "" {
		_, err := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
			WithText("Please reply with the rejection reason as text.").
			WithParseMode("").Build())
		return err
	}

	ok, err := h.review.Reject(ctx, user.State.Ref, user, reason)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("submission_id", user.State.Ref).Msg("Failed to reject submission")
		return sendInternalError(ctx, h.bot, update.ChatID)
	}

	if serr := h.userRepo.SetState(ctx, user.ID, domain.StateIdle); serr != nil {
		zerolog.Ctx(ctx).Error().Err(serr).Msg("Failed to reset admin state")
	}

	text := fmt.Sprintf("❌ Submission #%d rejected.", user.State.Ref)
	if !ok {
		text = fmt.Sprintf("Submission #%d was already processed by someone else.", user.State.Ref)
	}
	_, err = h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).WithText(text).WithParseMode("").Build())
	return err
}

func (h *messageHandler) captureWithdrawalRejection(ctx context.Context, update *ports.BotUpdate, user *domain.User, reason string) error {
	if !user.IsAdmin {
		return h.cancel(ctx, update, user)
	}
	if !replyAddressesBot(update) {
		return nil
	}
	if reason == "" {
		_, err := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
			WithText("Please reply with the rejection reason as text.").
			WithParseMode("").Build())
		return err
	}

	ok, err := h.withdrawal.Reject(ctx, user.State.Ref, user, reason)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("request_id", user.State.Ref).Msg("Failed to reject withdrawal")
		return sendInternalError(ctx, h.bot, update.ChatID)
	}

	if serr := h.userRepo.SetState(ctx, user.ID, domain.StateIdle); serr != nil {
		zerolog.Ctx(ctx).Error().Err(serr).Msg("Failed to reset admin state")
	}

	text := fmt.Sprintf("❌ Withdrawal #%d rejected, funds returned to the user.", user.State.Ref)
	if !ok {
		text = fmt.Sprintf("Withdrawal #%d was already processed by someone else.", user.State.Ref)
	}
	_, err = h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).WithText(text).WithParseMode("").Build())
	return err
}

// --- idle menu ---

func (h *messageHandler) handleIdle(ctx context.Context, update *ports.BotUpdate, user *domain.User, text string) error {
	if !user.Registered {
		_, err := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
			WithText("Please finish registration first. Type /start to continue.").
			WithParseMode("").Build())
		return err
	}

	switch text {
	case messages.MenuSubmitVideo:
		_, err := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).
			WithText("Send me the video you want to submit. 🎥").
			WithParseMode("").Build())
		return err
	case messages.MenuProfile:
		return h.cards.sendProfile(ctx, update.ChatID, user)
	case messages.MenuBalance:
		return h.cards.sendBalance(ctx, update.ChatID, user)
	case messages.MenuRating:
		return h.cards.sendRating(ctx, update.ChatID, user)
	case messages.MenuStats:
		if user.IsAdmin {
			return h.cards.sendStats(ctx, update.ChatID)
		}
	}

	// Admins can also just type "stats" (or "stats today" etc.) without
	// hunting for the menu button.
	if user.IsAdmin && strings.HasPrefix(strings.ToLower(text), "stats") {
		return h.cards.sendStats(ctx, update.ChatID)
	}

	_, err := h.bot.SendMessage(ctx, messages.MainMenu(update.ChatID, "I didn't understand that. Use the menu below or type /help.", user.IsAdmin).Build())
	return err
}
