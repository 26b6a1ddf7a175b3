package session

import (
	"context"

	"github.com/lastslot/account-service/internal/core/domain"
)

// AuthClient is the auth provider the session module is layered on.
type AuthClient interface {
	// CurrentSession returns the session the client already holds, or nil.
	CurrentSession(ctx context.Context) (*domain.Session, error)
	// Changes delivers every auth transition in the order it happened.
	Changes() <-chan domain.AuthChange
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context) error
}

// ProfileSource reads and writes the profile and role-assignment tables.
type ProfileSource interface {
	// GetProfile returns nil, nil when the user has not onboarded yet.
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	ListActiveRoles(ctx context.Context, userID string) ([]domain.RoleAssignment, error)
	UpdateProfile(ctx context.Context, userID string, u domain.ProfileUpdate) (*domain.Profile, error)
}

// RoleProcedures are the remote role mutations.
type RoleProcedures interface {
	// SwitchRole calls the atomic switch procedure. Business failures come
	// back inside the result, not as an error.
	SwitchRole(ctx context.Context, target domain.Role, businessName string) (domain.SwitchRoleResult, error)
	AddRole(ctx context.Context, role domain.Role, businessName string) error
}
