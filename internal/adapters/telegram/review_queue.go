package telegram

import (
	"context"
	"fmt"

	"ClipPay/internal/core/ports"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// reviewQueue implements ports.ReviewQueue by posting each new
// submission to the private review channel: first the video itself,
// then a decision message with the approve/reject buttons. The
// decision message is the one the callback handlers later edit.
type reviewQueue struct {
	api       *tgbotapi.BotAPI
	channelID int64
	log       zerolog.Logger
}

// NewReviewQueue creates the channel-backed review queue.
func NewReviewQueue(api *tgbotapi.BotAPI, channelID int64, baseLogger *zerolog.Logger) ports.ReviewQueue {
	return &reviewQueue{
		api:       api,
		channelID: channelID,
		log:       baseLogger.With().Str("component", "review_queue").Logger(),
	}
}

// Publish posts the submission for review and returns the decision
// message id as the storage reference.
func (q *reviewQueue) Publish(ctx context.Context, event ports.NewSubmissionEvent) (string, error) {
	video := tgbotapi.NewVideo(q.channelID, tgbotapi.FileID(event.FileID))
	video.Caption = fmt.Sprintf("🎬 Submission #%d\nFrom: %s", event.SubmissionID, event.Caption)
	if _, err := q.api.Send(video); err != nil {
		q.log.Error().Err(err).Int64("submission_id", event.SubmissionID).Msg("Failed to post video to review channel")
		return "", err
	}

	decision := tgbotapi.NewMessage(q.channelID, fmt.Sprintf("Decide on submission #%d:", event.SubmissionID))
	decision.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", fmt.Sprintf("approve_video:%d", event.SubmissionID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", fmt.Sprintf("reject_video:%d", event.SubmissionID)),
		),
	)
	sent, err := q.api.Send(decision)
	if err != nil {
		q.log.Error().Err(err).Int64("submission_id", event.SubmissionID).Msg("Failed to post decision message to review channel")
		return "", err
	}

	q.log.Info().Int64("submission_id", event.SubmissionID).Int("message_id", sent.MessageID).Msg("Submission published for review")
	return fmt.Sprintf("%d", sent.MessageID), nil
}
