// Package withdrawal implements the payout workflow: a request locks
// the funds immediately, and an admin decision later either completes
// the payout or refunds the lock.
package withdrawal

import (
	"context"
	"errors"
	"fmt"

	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Outcome is the event payload published after a withdrawal decision
// commits.
type Outcome struct {
	RequestID int64
	UserID    uuid.UUID
	Amount    int64
	Reason    string
}

// Service applies the payout policy in front of the store that owns
// the atomic fund movements.
type Service struct {
	log         zerolog.Logger
	withdrawals ports.WithdrawalStore
	ledger      ports.LedgerStore
	bus         ports.EventBus
	minAmount   int64
}

// NewService wires the workflow. minAmount is the smallest withdrawal
// the policy accepts.
func NewService(baseLogger *zerolog.Logger, withdrawals ports.WithdrawalStore, ledger ports.LedgerStore, bus ports.EventBus, minAmount int64) *Service {
	return &Service{
		log:         baseLogger.With().Str("component", "withdrawal_service").Logger(),
		withdrawals: withdrawals,
		ledger:      ledger,
		bus:         bus,
		minAmount:   minAmount,
	}
}

// MinAmount returns the configured policy minimum.
func (s *Service) MinAmount() int64 { return s.minAmount }

// Request validates the amount against the policy and, when accepted,
// creates the request with the funds locked out of the balance. The
// policy check happens before any state is written, so a rejected
// request leaves no trace.
func (s *Service) Request(ctx context.Context, user *domain.User, amount int64, paymentDetails string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("withdrawal amount must be positive: %w", domain.ErrValidation)
	}
	if amount < s.minAmount {
		return 0, fmt.Errorf("withdrawal of %d is below the minimum of %d: %w", amount, s.minAmount, domain.ErrPolicy)
	}

	id, err := s.withdrawals.CreateRequest(ctx, user.ID, amount, paymentDetails)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	s.publish(ctx, ports.TopicWithdrawalRequested, Outcome{
		RequestID: id,
		UserID:    user.ID,
		Amount:    amount,
	})
	s.log.Info().Int64("request_id", id).Str("user_id", user.ID.String()).Int64("amount", amount).Msg("Withdrawal requested, funds locked")
	return id, nil
}

// Approve completes the request. The funds were locked at request
// time, so nothing moves on the balance. Returns false when another
// admin already processed the request.
func (s *Service) Approve(ctx context.Context, requestID int64, admin *domain.User) (bool, error) {
	ok, err := s.withdrawals.Approve(ctx, requestID, admin.ID)
	if err != nil {
		return false, fmt.Errorf("failed to approve withdrawal %d: %w", requestID, err)
	}
	if !ok {
		return false, nil
	}

	req, err := s.withdrawals.GetByID(ctx, requestID)
	if err != nil || req == nil {
		s.log.Error().Err(err).Int64("request_id", requestID).Msg("Approved withdrawal vanished before event publish")
		return true, nil
	}

	s.publish(ctx, ports.TopicWithdrawalApproved, Outcome{
		RequestID: requestID,
		UserID:    req.UserID,
		Amount:    req.Amount,
	})
	s.log.Info().Int64("request_id", requestID).Str("admin_id", admin.ID.String()).Msg("Withdrawal approved")
	return true, nil
}

// Reject refunds the locked amount and records the admin's reason.
// Returns false when the request is no longer pending.
func (s *Service) Reject(ctx context.Context, requestID int64, admin *domain.User, reason string) (bool, error) {
	if reason == "" {
		return false, fmt.Errorf("rejection requires a reason: %w", domain.ErrValidation)
	}

	ok, err := s.withdrawals.Reject(ctx, requestID, admin.ID, reason)
	if err != nil {
		return false, fmt.Errorf("failed to reject withdrawal %d: %w", requestID, err)
	}
	if !ok {
		return false, nil
	}

	req, err := s.withdrawals.GetByID(ctx, requestID)
	if err != nil || req == nil {
		s.log.Error().Err(err).Int64("request_id", requestID).Msg("Rejected withdrawal vanished before event publish")
		return true, nil
	}

	s.publish(ctx, ports.TopicWithdrawalRejected, Outcome{
		RequestID: requestID,
		UserID:    req.UserID,
		Amount:    req.Amount,
		Reason:    reason,
	})
	s.log.Info().Int64("request_id", requestID).Str("admin_id", admin.ID.String()).Msg("Withdrawal rejected, funds refunded")
	return true, nil
}

// BalanceOf reports a user's current available balance.
func (s *Service) BalanceOf(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.ledger.BalanceOf(ctx, userID)
}

// ListPending returns the requests waiting for an admin decision.
func (s *Service) ListPending(ctx context.Context) ([]*domain.WithdrawalRequest, error) {
	return s.withdrawals.ListPending(ctx)
}

// HistoryOf returns a user's withdrawal requests, newest first.
func (s *Service) HistoryOf(ctx context.Context, userID uuid.UUID) ([]*domain.WithdrawalRequest, error) {
	return s.withdrawals.HistoryOf(ctx, userID)
}

func (s *Service) publish(ctx context.Context, topic string, outcome Outcome) {
	if err := s.bus.Publish(ctx, topic, outcome); err != nil {
		s.log.Error().Err(err).Str("topic", topic).Msg("Failed to publish withdrawal outcome")
	}
}
