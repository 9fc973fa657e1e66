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

type userRepository struct {
	db     *DB
	secSvc ports.SecurityPort
	log    zerolog.Logger
}

var _ ports.UserRepository = (*userRepository)(nil)

// NewUserRepository creates a new repository for user operations.
func NewUserRepository(db *DB, secSvc ports.SecurityPort, baseLogger *zerolog.Logger) ports.UserRepository {
	return &userRepository{
		db:     db,
		secSvc: secSvc,
		log:    baseLogger.With().Str("component", "user_repo").Logger(),
	}
}

const userQueryCols = `
	id, telegram_id, username, full_name, phone,
	is_admin, is_active, registered, state, created_at, updated_at
`

// Create saves a new user together with its zero balance row. Both
// inserts commit as one unit so the ledger always has a balance row to
// lock for any existing user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	encPhone, err := r.encryptPhone(user.Phone)
	if err != nil {
		return err
	}

	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, telegram_id, username, full_name, phone, is_admin, is_active, registered, state)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			user.ID,
			user.TelegramID,
			user.Username,
			user.FullName,
			encPhone,
			user.IsAdmin,
			user.IsActive,
			user.Registered,
			user.State.String(),
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `INSERT INTO balances (user_id, amount) VALUES ($1, 0)`, user.ID)
		return err
	})
	if err != nil {
		r.log.Error().Err(err).Int64("telegram_id", user.TelegramID).Msg("Failed to insert new user")
	}
	return err
}

func (r *userRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	query := `SELECT ` + userQueryCols + ` FROM users WHERE telegram_id = $1`

	row := r.db.pool.QueryRow(ctx, query, telegramID)
	user, err := r.scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userQueryCols + ` FROM users WHERE id = $1`

	row := r.db.pool.QueryRow(ctx, query, id)
	user, err := r.scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	encPhone, err := r.encryptPhone(user.Phone)
	if err != nil {
		return err
	}

	_, err = r.db.pool.Exec(ctx, `
		UPDATE users SET
			username = $2, full_name = $3, phone = $4, is_admin = $5,
			is_active = $6, registered = $7, state = $8, updated_at = NOW()
		WHERE id = $1
	`,
		user.ID,
		user.Username,
		user.FullName,
		encPhone,
		user.IsAdmin,
		user.IsActive,
		user.Registered,
		user.State.String(),
	)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to update user")
	}
	return err
}

func (r *userRepository) SetState(ctx context.Context, id uuid.UUID, state domain.ConversationState) error {
	_, err := r.db.pool.Exec(ctx,
		`UPDATE users SET state = $2, updated_at = NOW() WHERE id = $1`,
		id, state.String(),
	)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", id.String()).Str("state", state.String()).Msg("Failed to set user state")
	}
	return err
}

func (r *userRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.pool.Exec(ctx,
		`UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", id.String()).Msg("Failed to deactivate user")
	}
	return err
}

func (r *userRepository) ListAdmins(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT `+userQueryCols+` FROM users WHERE is_admin = TRUE AND is_active = TRUE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []*domain.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, user)
	}
	return admins, rows.Err()
}

func (r *userRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE is_active = TRUE`).Scan(&count)
	return count, err
}

// scanUser reads a row into a User, decrypting the phone number and
// decoding the state label.
func (r *userRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var encPhone *string
	var stateRaw string

	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.FullName,
		&encPhone,
		&user.IsAdmin,
		&user.IsActive,
		&user.Registered,
		&stateRaw,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		r.log.Error().Err(err).Msg("Failed to scan user row")
		return nil, err
	}

	user.State = domain.ParseState(stateRaw)

	if encPhone != nil {
		dec, err := r.secSvc.DecryptString(*encPhone)
		if err != nil {
			r.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to decrypt phone (tampered?)")
			return nil, err
		}
		user.Phone = &dec
	}

	return &user, nil
}

func (r *userRepository) encryptPhone(phone *string) (*string, error) {
	if phone == nil {
		return nil, nil
	}
	enc, err := r.secSvc.EncryptString(*phone)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to encrypt phone number")
		return nil, err
	}
	return &enc, nil
}
