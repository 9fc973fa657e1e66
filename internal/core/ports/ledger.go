package ports

import (
	"context"

	"ClipPay/internal/core/domain"

	"github.com/google/uuid"
)

// LedgerEntry carries the parameters of one credit or debit. Amount is
// always positive; Debit negates it in the recorded transaction.
type LedgerEntry struct {
	UserID      uuid.UUID
	Amount      int64
	Type        domain.TransactionType
	RefType     domain.ReferenceType
	RefID       int64
	Description string
}

// LedgerStore owns the materialized balance and the append-only
// transaction log. Every credit or debit writes exactly one completed
// transaction row in the same atomic unit as the balance mutation;
// mutations for one user are serialized by row-level locking.
type LedgerStore interface {
	// Credit increases the balance and returns the transaction id.
	Credit(ctx context.Context, entry LedgerEntry) (int64, error)

	// Debit decreases the balance, failing with
	// domain.ErrInsufficientFunds when the balance would go negative.
	Debit(ctx context.Context, entry LedgerEntry) (int64, error)

	BalanceOf(ctx context.Context, userID uuid.UUID) (int64, error)

	// TransactionsOf lists a user's ledger entries, newest first.
	// limit <= 0 means no limit.
	TransactionsOf(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Transaction, error)

	// SumCompleted reduces a user's completed transactions to a signed
	// total. Used to check that the materialized balance never drifts
	// from the log.
	SumCompleted(ctx context.Context, userID uuid.UUID) (int64, error)
}
