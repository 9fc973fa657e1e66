package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type submissionStore struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.SubmissionStore = (*submissionStore)(nil)

// NewSubmissionStore creates the store for submitted work items.
func NewSubmissionStore(db *DB, baseLogger *zerolog.Logger) ports.SubmissionStore {
	return &submissionStore{
		db:  db,
		log: baseLogger.With().Str("component", "submission_store").Logger(),
	}
}

const submissionQueryCols = `
	id, user_id, file_id, file_unique_id, message_id,
	status, reviewed_by, reviewed_at, rejection_reason, created_at
`

func (s *submissionStore) Create(ctx context.Context, sub *domain.Submission) (int64, error) {
	var id int64
	err := s.db.pool.QueryRow(ctx, `
		INSERT INTO submissions (user_id, file_id, file_unique_id, message_id, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id
	`, sub.UserID, sub.FileID, sub.FileUniqueID, sub.MessageID).Scan(&id)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", sub.UserID.String()).Msg("Failed to insert submission")
		return 0, err
	}
	return id, nil
}

func (s *submissionStore) GetByID(ctx context.Context, id int64) (*domain.Submission, error) {
	row := s.db.pool.QueryRow(ctx,
		`SELECT `+submissionQueryCols+` FROM submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

// Approve is one atomic unit: lock the pending row, flip it to
// approved, credit the reward through the ledger primitive, and
// recompute the submitter's monthly rating. A submission that is not
// pending anymore loses the race and yields (false, nil).
func (s *submissionStore) Approve(ctx context.Context, id int64, reviewerID uuid.UUID, reward int64) (bool, error) {
	applied := false
	err := s.db.inTx(ctx, func(tx pgx.Tx) error {
		sub, err := lockSubmission(ctx, tx, id)
		if err != nil {
			return err
		}
		if sub == nil || sub.Status != domain.SubmissionPending {
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE submissions SET status = 'approved', reviewed_by = $2, reviewed_at = NOW()
			WHERE id = $1
		`, id, reviewerID)
		if err != nil {
			return err
		}

		_, err = creditTx(ctx, tx, ports.LedgerEntry{
			UserID:      sub.UserID,
			Amount:      reward,
			Type:        domain.TransactionDeposit,
			RefType:     domain.RefSubmission,
			RefID:       id,
			Description: fmt.Sprintf("Payment for approved video #%d", id),
		})
		if err != nil {
			return err
		}

		if err := bumpRatingTx(ctx, tx, sub.UserID, true); err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Int64("submission_id", id).Msg("Approve failed")
		return false, err
	}
	if applied {
		s.log.Info().Int64("submission_id", id).Str("reviewer_id", reviewerID.String()).Msg("Submission approved")
	}
	return applied, nil
}

// Reject mirrors Approve without the ledger effect.
func (s *submissionStore) Reject(ctx context.Context, id int64, reviewerID uuid.UUID, reason string) (bool, error) {
	applied := false
	err := s.db.inTx(ctx, func(tx pgx.Tx) error {
		sub, err := lockSubmission(ctx, tx, id)
		if err != nil {
			return err
		}
		if sub == nil || sub.Status != domain.SubmissionPending {
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE submissions SET status = 'rejected', rejection_reason = $2, reviewed_by = $3, reviewed_at = NOW()
			WHERE id = $1
		`, id, reason, reviewerID)
		if err != nil {
			return err
		}

		if err := bumpRatingTx(ctx, tx, sub.UserID, false); err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Int64("submission_id", id).Msg("Reject failed")
		return false, err
	}
	if applied {
		s.log.Info().Int64("submission_id", id).Str("reviewer_id", reviewerID.String()).Str("reason", reason).Msg("Submission rejected")
	}
	return applied, nil
}

func (s *submissionStore) ListPending(ctx context.Context) ([]*domain.Submission, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT `+submissionQueryCols+` FROM submissions WHERE status = 'pending' ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *submissionStore) CountByStatus(ctx context.Context) (map[domain.SubmissionStatus]int, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM submissions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.SubmissionStatus]int)
	for rows.Next() {
		var status domain.SubmissionStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func lockSubmission(ctx context.Context, tx pgx.Tx, id int64) (*domain.Submission, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+submissionQueryCols+` FROM submissions WHERE id = $1 FOR UPDATE`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var sub domain.Submission
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.FileID,
		&sub.FileUniqueID,
		&sub.MessageID,
		&sub.Status,
		&sub.ReviewedBy,
		&sub.ReviewedAt,
		&sub.RejectionReason,
		&sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// bumpRatingTx updates the submitter's monthly counters inside the
// review transaction. The upsert locks the rating row, so two reviews
// for the same user landing together cannot lose an update, and the
// approval rate is recomputed from the fresh counters every time.
func bumpRatingTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, approved bool) error {
	now := time.Now()
	month, year := int(now.Month()), now.Year()

	approvedInc, rejectedInc := 0, 1
	if approved {
		approvedInc, rejectedInc = 1, 0
	}

	var approvedCount, rejectedCount int
	err := tx.QueryRow(ctx, `
		INSERT INTO monthly_ratings (user_id, month, year, submitted, approved, rejected)
		VALUES ($1, $2, $3, 1, $4, $5)
		ON CONFLICT (user_id, month, year) DO UPDATE SET
			submitted = monthly_ratings.submitted + 1,
			approved  = monthly_ratings.approved + EXCLUDED.approved,
			rejected  = monthly_ratings.rejected + EXCLUDED.rejected
		RETURNING approved, rejected
	`, userID, month, year, approvedInc, rejectedInc).Scan(&approvedCount, &rejectedCount)
	if err != nil {
		return err
	}

	rate := domain.ComputeApprovalRate(approvedCount, rejectedCount)
	_, err = tx.Exec(ctx, `
		UPDATE monthly_ratings SET approval_rate = $4
		WHERE user_id = $1 AND month = $2 AND year = $3
	`, userID, month, year, rate)
	return err
}
