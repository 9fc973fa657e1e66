package postgres

import (
	"context"
	"errors"
	"fmt"

	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type withdrawalStore struct {
	db     *DB
	secSvc ports.SecurityPort
	log    zerolog.Logger
}

var _ ports.WithdrawalStore = (*withdrawalStore)(nil)

// NewWithdrawalStore creates the store for withdrawal requests.
// Payment details are encrypted before they hit the table.
func NewWithdrawalStore(db *DB, secSvc ports.SecurityPort, baseLogger *zerolog.Logger) ports.WithdrawalStore {
	return &withdrawalStore{
		db:     db,
		secSvc: secSvc,
		log:    baseLogger.With().Str("component", "withdrawal_store").Logger(),
	}
}

const withdrawalQueryCols = `
	id, user_id, amount, payment_details, status, transaction_id,
	processed_by, processed_at, rejection_reason, created_at
`

// CreateRequest locks the funds: debit, request row and pending
// transaction all commit together. The debit failing with
// ErrInsufficientFunds aborts the whole unit.
func (s *withdrawalStore) CreateRequest(ctx context.Context, userID uuid.UUID, amount int64, paymentDetails string) (int64, error) {
	encDetails, err := s.secSvc.EncryptString(paymentDetails)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encrypt payment details")
		return 0, err
	}

	var withdrawalID int64
	err = s.db.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO withdrawal_requests (user_id, amount, payment_details, status)
			VALUES ($1, $2, $3, 'pending')
			RETURNING id
		`, userID, amount, encDetails).Scan(&withdrawalID)
		if err != nil {
			return err
		}

		txID, err := debitPendingTx(ctx, tx, ports.LedgerEntry{
			UserID:      userID,
			Amount:      amount,
			Type:        domain.TransactionWithdrawal,
			RefType:     domain.RefWithdrawal,
			RefID:       withdrawalID,
			Description: fmt.Sprintf("Withdrawal request #%d", withdrawalID),
		})
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE withdrawal_requests SET transaction_id = $2 WHERE id = $1`,
			withdrawalID, txID)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			s.log.Error().Err(err).Str("user_id", userID.String()).Int64("amount", amount).Msg("Withdrawal request failed")
		}
		return 0, err
	}

	s.log.Info().Int64("withdrawal_id", withdrawalID).Str("user_id", userID.String()).Int64("amount", amount).Msg("Withdrawal requested")
	return withdrawalID, nil
}

// Approve completes the request and its linked transaction. No balance
// change: the funds left the balance at request time.
func (s *withdrawalStore) Approve(ctx context.Context, id int64, adminID uuid.UUID) (bool, error) {
	applied := false
	err := s.db.inTx(ctx, func(tx pgx.Tx) error {
		w, err := lockWithdrawal(ctx, tx, id)
		if err != nil {
			return err
		}
		if w == nil || w.Status != domain.WithdrawalPending {
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE withdrawal_requests SET status = 'completed', processed_by = $2, processed_at = NOW()
			WHERE id = $1
		`, id, adminID)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE transactions SET status = 'completed', processed_by = $2, processed_at = NOW()
			WHERE id = $1
		`, w.TransactionID, adminID)
		if err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Int64("withdrawal_id", id).Msg("Approve failed")
		return false, err
	}
	if applied {
		s.log.Info().Int64("withdrawal_id", id).Str("admin_id", adminID.String()).Msg("Withdrawal approved")
	}
	return applied, nil
}

// Reject releases the lock: request and transaction flip to rejected
// and the amount goes back to the balance, atomically. The pending
// transaction turning rejected (instead of a new credit row) keeps the
// sum of completed transactions equal to the balance.
func (s *withdrawalStore) Reject(ctx context.Context, id int64, adminID uuid.UUID, reason string) (bool, error) {
	applied := false
	err := s.db.inTx(ctx, func(tx pgx.Tx) error {
		w, err := lockWithdrawal(ctx, tx, id)
		if err != nil {
			return err
		}
		if w == nil || w.Status != domain.WithdrawalPending {
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE withdrawal_requests SET status = 'rejected', rejection_reason = $2, processed_by = $3, processed_at = NOW()
			WHERE id = $1
		`, id, reason, adminID)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE transactions SET status = 'rejected', processed_by = $2, processed_at = NOW()
			WHERE id = $1
		`, w.TransactionID, adminID)
		if err != nil {
			return err
		}

		if err := refundTx(ctx, tx, w.UserID, w.Amount); err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Int64("withdrawal_id", id).Msg("Reject failed")
		return false, err
	}
	if applied {
		s.log.Info().Int64("withdrawal_id", id).Str("admin_id", adminID.String()).Str("reason", reason).Msg("Withdrawal rejected")
	}
	return applied, nil
}

func (s *withdrawalStore) GetByID(ctx context.Context, id int64) (*domain.WithdrawalRequest, error) {
	row := s.db.pool.QueryRow(ctx,
		`SELECT `+withdrawalQueryCols+` FROM withdrawal_requests WHERE id = $1`, id)
	w, err := s.scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func (s *withdrawalStore) ListPending(ctx context.Context) ([]*domain.WithdrawalRequest, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT `+withdrawalQueryCols+` FROM withdrawal_requests WHERE status = 'pending' ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectWithdrawals(rows)
}

func (s *withdrawalStore) HistoryOf(ctx context.Context, userID uuid.UUID) ([]*domain.WithdrawalRequest, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT `+withdrawalQueryCols+` FROM withdrawal_requests WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectWithdrawals(rows)
}

func (s *withdrawalStore) collectWithdrawals(rows pgx.Rows) ([]*domain.WithdrawalRequest, error) {
	var ws []*domain.WithdrawalRequest
	for rows.Next() {
		w, err := s.scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		ws = append(ws, w)
	}
	return ws, rows.Err()
}

// scanWithdrawal decrypts the payment details on the way out.
func (s *withdrawalStore) scanWithdrawal(row pgx.Row) (*domain.WithdrawalRequest, error) {
	var w domain.WithdrawalRequest
	var encDetails string
	var txID *int64

	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Amount,
		&encDetails,
		&w.Status,
		&txID,
		&w.ProcessedBy,
		&w.ProcessedAt,
		&w.RejectionReason,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if txID != nil {
		w.TransactionID = *txID
	}

	dec, err := s.secSvc.DecryptString(encDetails)
	if err != nil {
		s.log.Error().Err(err).Int64("withdrawal_id", w.ID).Msg("Failed to decrypt payment details (tampered?)")
		return nil, err
	}
	w.PaymentDetails = dec

	return &w, nil
}

func lockWithdrawal(ctx context.Context, tx pgx.Tx, id int64) (*domain.WithdrawalRequest, error) {
	var w domain.WithdrawalRequest
	var txID *int64
	err := tx.QueryRow(ctx, `
		SELECT id, user_id, amount, status, transaction_id
		FROM withdrawal_requests WHERE id = $1 FOR UPDATE
	`, id).Scan(&w.ID, &w.UserID, &w.Amount, &w.Status, &txID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if txID != nil {
		w.TransactionID = *txID
	}
	return &w, nil
}
