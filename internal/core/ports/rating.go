package ports

import (
	"context"

	"ClipPay/internal/core/domain"

	"github.com/google/uuid"
)

// RatingStore reads the monthly rating aggregates. Writes happen only
// inside SubmissionStore.Approve/Reject, in the same transaction as the
// review transition.
type RatingStore interface {
	// RatingFor returns the user's aggregate for the given month, or
	// (nil, nil) when no review outcome has landed that month yet.
	RatingFor(ctx context.Context, userID uuid.UUID, month, year int) (*domain.MonthlyRating, error)

	// Leaderboard ranks the month's users by approval rate, ties broken
	// by approved count.
	Leaderboard(ctx context.Context, month, year, limit int) ([]*domain.LeaderboardEntry, error)
}
