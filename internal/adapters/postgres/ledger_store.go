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

type ledgerStore struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.LedgerStore = (*ledgerStore)(nil)

// NewLedgerStore creates the store owning balances and the transaction
// log.
func NewLedgerStore(db *DB, baseLogger *zerolog.Logger) ports.LedgerStore {
	return &ledgerStore{
		db:  db,
		log: baseLogger.With().Str("component", "ledger_store").Logger(),
	}
}

func (s *ledgerStore) Credit(ctx context.Context, entry ports.LedgerEntry) (int64, error) {
	var txID int64
	err := s.db.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		txID, err = creditTx(ctx, tx, entry)
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Str("user_id", entry.UserID.String()).Int64("amount", entry.Amount).Msg("Credit failed")
		return 0, err
	}
	return txID, nil
}

func (s *ledgerStore) Debit(ctx context.Context, entry ports.LedgerEntry) (int64, error) {
	var txID int64
	err := s.db.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		txID, err = debitTx(ctx, tx, entry)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			s.log.Error().Err(err).Str("user_id", entry.UserID.String()).Int64("amount", entry.Amount).Msg("Debit failed")
		}
		return 0, err
	}
	return txID, nil
}

func (s *ledgerStore) BalanceOf(ctx context.Context, userID uuid.UUID) (int64, error) {
	var amount int64
	err := s.db.pool.QueryRow(ctx,
		`SELECT amount FROM balances WHERE user_id = $1`, userID).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("balance of %s: %w", userID, domain.ErrNotFound)
		}
		return 0, err
	}
	return amount, nil
}

const transactionQueryCols = `
	id, user_id, amount, type, reference_type, reference_id,
	status, description, processed_by, processed_at, created_at
`

func (s *ledgerStore) TransactionsOf(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionQueryCols + ` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		err := rows.Scan(
			&t.ID, &t.UserID, &t.Amount, &t.Type, &t.RefType, &t.RefID,
			&t.Status, &t.Description, &t.ProcessedBy, &t.ProcessedAt, &t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}

func (s *ledgerStore) SumCompleted(ctx context.Context, userID uuid.UUID) (int64, error) {
	var sum int64
	err := s.db.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE user_id = $1 AND status = 'completed'
	`, userID).Scan(&sum)
	return sum, err
}

// --- tx-scoped primitives ---
//
// All balance mutations in this package, including the ones inside the
// submission and withdrawal stores, go through creditTx/debitTx. The
// FOR UPDATE lock on the balance row serializes concurrent mutations
// for the same user, and the paired transaction row commits in the
// same unit as the balance change.

func creditTx(ctx context.Context, tx pgx.Tx, entry ports.LedgerEntry) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx,
		`SELECT amount FROM balances WHERE user_id = $1 FOR UPDATE`, entry.UserID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("balance of %s: %w", entry.UserID, domain.ErrNotFound)
		}
		return 0, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE balances SET amount = amount + $1, updated_at = NOW() WHERE user_id = $2`,
		entry.Amount, entry.UserID)
	if err != nil {
		return 0, err
	}

	return insertTransaction(ctx, tx, entry, entry.Amount, domain.TransactionCompleted)
}

func debitTx(ctx context.Context, tx pgx.Tx, entry ports.LedgerEntry) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx,
		`SELECT amount FROM balances WHERE user_id = $1 FOR UPDATE`, entry.UserID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("balance of %s: %w", entry.UserID, domain.ErrNotFound)
		}
		return 0, err
	}

	if balance < entry.Amount {
		return 0, fmt.Errorf("balance %d, need %d: %w", balance, entry.Amount, domain.ErrInsufficientFunds)
	}

	_, err = tx.Exec(ctx,
		`UPDATE balances SET amount = amount - $1, updated_at = NOW() WHERE user_id = $2`,
		entry.Amount, entry.UserID)
	if err != nil {
		return 0, err
	}

	return insertTransaction(ctx, tx, entry, -entry.Amount, domain.TransactionCompleted)
}

// debitPendingTx locks funds for a withdrawal: the balance drops now
// but the transaction stays pending until the admin decision.
func debitPendingTx(ctx context.Context, tx pgx.Tx, entry ports.LedgerEntry) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx,
		`SELECT amount FROM balances WHERE user_id = $1 FOR UPDATE`, entry.UserID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("balance of %s: %w", entry.UserID, domain.ErrNotFound)
		}
		return 0, err
	}

	if balance < entry.Amount {
		return 0, fmt.Errorf("balance %d, need %d: %w", balance, entry.Amount, domain.ErrInsufficientFunds)
	}

	_, err = tx.Exec(ctx,
		`UPDATE balances SET amount = amount - $1, updated_at = NOW() WHERE user_id = $2`,
		entry.Amount, entry.UserID)
	if err != nil {
		return 0, err
	}

	return insertTransaction(ctx, tx, entry, -entry.Amount, domain.TransactionPending)
}

// refundTx credits a rejected withdrawal's amount back without
// creating a new ledger row: the original pending transaction flips to
// rejected instead, so completed rows still sum to the balance.
func refundTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE balances SET amount = amount + $1, updated_at = NOW() WHERE user_id = $2`,
		amount, userID)
	return err
}

func insertTransaction(ctx context.Context, tx pgx.Tx, entry ports.LedgerEntry, signedAmount int64, status domain.TransactionStatus) (int64, error) {
	var txID int64
	err := tx.QueryRow(ctx, `
		INSERT INTO transactions (user_id, amount, type, reference_type, reference_id, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		entry.UserID,
		signedAmount,
		entry.Type,
		nullableRef(entry.RefType),
		nullableID(entry.RefID),
		entry.Description,
		status,
	).Scan(&txID)
	return txID, err
}

func nullableRef(ref domain.ReferenceType) *domain.ReferenceType {
	if ref == "" {
		return nil
	}
	return &ref
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
