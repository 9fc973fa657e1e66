package ports

import (
	"context"

	"ClipPay/internal/core/domain"

	"github.com/google/uuid"
)

// WithdrawalStore persists withdrawal requests. CreateRequest locks the
// funds: the debit, the request row and its pending transaction are one
// atomic unit, so a pending withdrawal is already reflected in the
// visible balance. Approve and Reject return (false, nil) when the
// request is no longer pending.
type WithdrawalStore interface {
	// CreateRequest debits amount from the balance (failing with
	// domain.ErrInsufficientFunds), creates the request and its linked
	// pending transaction, and returns the request id.
	CreateRequest(ctx context.Context, userID uuid.UUID, amount int64, paymentDetails string) (int64, error)

	// Approve completes the request and its transaction. The funds were
	// already debited at request time, so the balance does not move.
	Approve(ctx context.Context, id int64, adminID uuid.UUID) (bool, error)

	// Reject marks the request and its transaction rejected and credits
	// the locked amount back, all atomically.
	Reject(ctx context.Context, id int64, adminID uuid.UUID, reason string) (bool, error)

	GetByID(ctx context.Context, id int64) (*domain.WithdrawalRequest, error)
	ListPending(ctx context.Context) ([]*domain.WithdrawalRequest, error)
	HistoryOf(ctx context.Context, userID uuid.UUID) ([]*domain.WithdrawalRequest, error)
}
