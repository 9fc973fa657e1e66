package domain

import (
	"math"

	"github.com/google/uuid"
)

// MonthlyRating aggregates a user's review outcomes for one calendar
// month. The row is created lazily on the first review outcome of the
// month. ApprovalRate is always recomputed from the counters, never
// incrementally adjusted.
type MonthlyRating struct {
	UserID       uuid.UUID
	Month        int
	Year         int
	Submitted    int
	Approved     int
	Rejected     int
	ApprovalRate float64 // Percent, rounded to 2 decimals
}

// ComputeApprovalRate applies the recomputation rule:
// approved / (approved + rejected) * 100, 2 decimals, 0 when unreviewed.
func ComputeApprovalRate(approved, rejected int) float64 {
	total := approved + rejected
	if total == 0 {
		return 0
	}
	rate := float64(approved) / float64(total) * 100
	return math.Round(rate*100) / 100
}

// LeaderboardEntry is one row of the monthly leaderboard, ranked by
// approval rate and then by approved count.
type LeaderboardEntry struct {
	UserID       uuid.UUID
	FullName     string
	Username     string
	Submitted    int
	Approved     int
	ApprovalRate float64
	Rank         int
}
