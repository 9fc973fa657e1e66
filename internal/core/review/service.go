// Package review implements the video submission and review workflow:
// users submit videos, reviewers approve or reject them, and approval
// pays the configured reward into the submitter's balance.
package review

import (
	"context"
	"fmt"

	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Outcome is the event payload published after a review decision
// commits.
type Outcome struct {
	SubmissionID int64
	UserID       uuid.UUID
	Reward       int64
	Reason       string
}

// Service coordinates the submission workflow around the store that
// owns its atomicity.
type Service struct {
	log    zerolog.Logger
	subs   ports.SubmissionStore
	queue  ports.ReviewQueue
	bus    ports.EventBus
	reward int64
}

// NewService wires the workflow. reward is the amount credited for
// every approved submission.
func NewService(baseLogger *zerolog.Logger, subs ports.SubmissionStore, queue ports.ReviewQueue, bus ports.EventBus, reward int64) *Service {
	return &Service{
		log:    baseLogger.With().Str("component", "review_service").Logger(),
		subs:   subs,
		queue:  queue,
		bus:    bus,
		reward: reward,
	}
}

// Submit records a new pending submission and posts it to the review
// queue. A queue failure is logged but does not fail the submission:
// the record is already persisted and reviewers can still find it via
// the pending list.
func (s *Service) Submit(ctx context.Context, user *domain.User, ref domain.ContentRef, caption string) (int64, error) {
	if ref.FileID == "" || ref.FileUniqueID == "" || ref.MessageID == 0 {
		return 0, fmt.Errorf("submission with incomplete content reference: %w", domain.ErrValidation)
	}

	sub := &domain.Submission{
		UserID:       user.ID,
		FileID:       ref.FileID,
		FileUniqueID: ref.FileUniqueID,
		MessageID:    ref.MessageID,
		Status:       domain.SubmissionPending,
	}
	id, err := s.subs.Create(ctx, sub)
	if err != nil {
		return 0, fmt.Errorf("failed to create submission: %w", err)
	}

	if _, err := s.queue.Publish(ctx, ports.NewSubmissionEvent{
		SubmissionID: id,
		UserID:       user.ID,
		FileID:       ref.FileID,
		Caption:      caption,
	}); err != nil {
		s.log.Error().Err(err).Int64("submission_id", id).Msg("Failed to publish submission for review")
	}

	s.log.Info().Int64("submission_id", id).Str("user_id", user.ID.String()).Msg("New submission received")
	return id, nil
}

// Approve settles the submission in the submitter's favor: the status
// flips, the reward is credited and the monthly rating is updated in
// one atomic unit. Returns false when another reviewer got there first.
func (s *Service) Approve(ctx context.Context, submissionID int64, reviewer *domain.User) (bool, error) {
	ok, err := s.subs.Approve(ctx, submissionID, reviewer.ID, s.reward)
	if err != nil {
		return false, fmt.Errorf("failed to approve submission %d: %w", submissionID, err)
	}
	if !ok {
		return false, nil
	}

	sub, err := s.subs.GetByID(ctx, submissionID)
	if err != nil || sub == nil {
		s.log.Error().Err(err).Int64("submission_id", submissionID).Msg("Approved submission vanished before event publish")
		return true, nil
	}

	s.publish(ctx, ports.TopicSubmissionApproved, Outcome{
		SubmissionID: submissionID,
		UserID:       sub.UserID,
		Reward:       s.reward,
	})
	s.log.Info().Int64("submission_id", submissionID).Str("reviewer_id", reviewer.ID.String()).Msg("Submission approved")
	return true, nil
}

// Reject settles the submission against the submitter, recording the
// reviewer's reason. Returns false when the submission is no longer
// pending.
func (s *Service) Reject(ctx context.Context, submissionID int64, reviewer *domain.User, reason string) (bool, error) {
	if reason == "" {
		return false, fmt.Errorf("rejection requires a reason: %w", domain.ErrValidation)
	}

	ok, err := s.subs.Reject(ctx, submissionID, reviewer.ID, reason)
	if err != nil {
		return false, fmt.Errorf("failed to reject submission %d: %w", submissionID, err)
	}
	if !ok {
		return false, nil
	}

	sub, err := s.subs.GetByID(ctx, submissionID)
	if err != nil || sub == nil {
		s.log.Error().Err(err).Int64("submission_id", submissionID).Msg("Rejected submission vanished before event publish")
		return true, nil
	}

	s.publish(ctx, ports.TopicSubmissionRejected, Outcome{
		SubmissionID: submissionID,
		UserID:       sub.UserID,
		Reason:       reason,
	})
	s.log.Info().Int64("submission_id", submissionID).Str("reviewer_id", reviewer.ID.String()).Msg("Submission rejected")
	return true, nil
}

// ListPending returns the submissions still waiting for a decision.
func (s *Service) ListPending(ctx context.Context) ([]*domain.Submission, error) {
	return s.subs.ListPending(ctx)
}

// CountByStatus reports submission totals per status for admin stats.
func (s *Service) CountByStatus(ctx context.Context) (map[domain.SubmissionStatus]int, error) {
	return s.subs.CountByStatus(ctx)
}

func (s *Service) publish(ctx context.Context, topic string, outcome Outcome) {
	if err := s.bus.Publish(ctx, topic, outcome); err != nil {
		s.log.Error().Err(err).Str("topic", topic).Msg("Failed to publish review outcome")
	}
}
