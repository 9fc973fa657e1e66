package ports

import (
	"context"

	"ClipPay/internal/core/domain"

	"github.com/google/uuid"
)

// UserRepository defines the persistence operations for users.
// Lookups return (nil, nil) when no row exists.
type UserRepository interface {
	// Create saves a new user and its zero balance in one atomic unit.
	Create(ctx context.Context, user *domain.User) error

	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	Update(ctx context.Context, user *domain.User) error

	// SetState persists only the conversation state marker.
	SetState(ctx context.Context, id uuid.UUID, state domain.ConversationState) error

	// Deactivate clears is_active; users are never deleted.
	Deactivate(ctx context.Context, id uuid.UUID) error

	ListAdmins(ctx context.Context) ([]*domain.User, error)
	CountActive(ctx context.Context) (int, error)
}
