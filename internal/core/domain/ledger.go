package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies a balance-affecting event.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionAdjustment TransactionType = "adjustment"
)

// TransactionStatus tracks the lifecycle of a ledger entry. A pending
// entry belongs to an unresolved withdrawal; only completed entries
// count toward the derivable balance.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionRejected  TransactionStatus = "rejected"
)

// ReferenceType links a transaction to the entity that caused it.
type ReferenceType string

const (
	RefSubmission ReferenceType = "submission"
	RefWithdrawal ReferenceType = "withdrawal"
)

// Transaction is one append-only ledger entry. Amount is signed:
// positive for credits, negative for debits.
type Transaction struct {
	ID          int64
	UserID      uuid.UUID
	Amount      int64
	Type        TransactionType
	RefType     *ReferenceType
	RefID       *int64
	Status      TransactionStatus
	Description string
	ProcessedBy *uuid.UUID
	ProcessedAt *time.Time
	CreatedAt   time.Time
}

// WithdrawalStatus is the lifecycle of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalCompleted WithdrawalStatus = "completed"
	WithdrawalRejected  WithdrawalStatus = "rejected"
)

// WithdrawalRequest locks its amount out of the balance at creation
// time. Rejection refunds the lock; approval makes it permanent.
type WithdrawalRequest struct {
	ID              int64
	UserID          uuid.UUID
	Amount          int64
	PaymentDetails  string // Encrypted at rest
	Status          WithdrawalStatus
	TransactionID   int64
	ProcessedBy     *uuid.UUID
	ProcessedAt     *time.Time
	RejectionReason *string
	CreatedAt       time.Time
}
