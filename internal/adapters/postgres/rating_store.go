package postgres

import (
	"context"
	"errors"

	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type ratingStore struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.RatingStore = (*ratingStore)(nil)

// NewRatingStore creates the read side of the monthly rating
// aggregates. Writes happen inside the submission store's review
// transactions.
func NewRatingStore(db *DB, baseLogger *zerolog.Logger) ports.RatingStore {
	return &ratingStore{
		db:  db,
		log: baseLogger.With().Str("component", "rating_store").Logger(),
	}
}

func (s *ratingStore) RatingFor(ctx context.Context, userID uuid.UUID, month, year int) (*domain.MonthlyRating, error) {
	var r domain.MonthlyRating
	err := s.db.pool.QueryRow(ctx, `
		SELECT user_id, month, year, submitted, approved, rejected, approval_rate
		FROM monthly_ratings
		WHERE user_id = $1 AND month = $2 AND year = $3
	`, userID, month, year).Scan(
		&r.UserID, &r.Month, &r.Year, &r.Submitted, &r.Approved, &r.Rejected, &r.ApprovalRate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func (s *ratingStore) Leaderboard(ctx context.Context, month, year, limit int) ([]*domain.LeaderboardEntry, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT mr.user_id,
		       COALESCE(u.full_name, ''),
		       COALESCE(u.username, ''),
		       mr.submitted,
		       mr.approved,
		       mr.approval_rate,
		       RANK() OVER (ORDER BY mr.approval_rate DESC, mr.approved DESC)
		FROM monthly_ratings mr
		JOIN users u ON mr.user_id = u.id
		WHERE mr.month = $1 AND mr.year = $2
		ORDER BY mr.approval_rate DESC, mr.approved DESC
		LIMIT $3
	`, month, year, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		err := rows.Scan(&e.UserID, &e.FullName, &e.Username, &e.Submitted, &e.Approved, &e.ApprovalRate, &e.Rank)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
