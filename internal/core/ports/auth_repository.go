package ports

import (
	"context"

	"github.com/lastslot/account-service/internal/core/domain"
)

// UserRepository persists credential records.
type UserRepository interface {
	// Create stores a new user and returns it with its ID assigned.
	// Returns domain.ErrUserExists when the email is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}
