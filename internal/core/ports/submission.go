package ports

import (
	"context"

	"ClipPay/internal/core/domain"

	"github.com/google/uuid"
)

// SubmissionStore persists submitted work items and owns the atomicity
// of their review transitions. Approve and Reject are single atomic
// units: the status transition, the ledger effect and the monthly
// rating recomputation all commit together or not at all. Both return
// (false, nil) when the submission is not pending anymore; losing that
// race is expected, not an error.
type SubmissionStore interface {
	Create(ctx context.Context, sub *domain.Submission) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Submission, error)

	// Approve transitions pending->approved, credits the submitter's
	// balance by reward and bumps the submitter's monthly counters.
	Approve(ctx context.Context, id int64, reviewerID uuid.UUID, reward int64) (bool, error)

	// Reject transitions pending->rejected with reason and bumps the
	// monthly counters. No ledger effect.
	Reject(ctx context.Context, id int64, reviewerID uuid.UUID, reason string) (bool, error)

	ListPending(ctx context.Context) ([]*domain.Submission, error)
	CountByStatus(ctx context.Context) (map[domain.SubmissionStatus]int, error)
}
