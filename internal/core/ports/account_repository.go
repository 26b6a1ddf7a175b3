package ports

import (
	"context"

	"github.com/lastslot/account-service/internal/core/domain"
)

// ProfileRepository persists profiles. Profile creation is transactional with
// the first role assignment so the active-role invariant holds from the start.
type ProfileRepository interface {
	// FindProfile returns domain.ErrProfileNotFound when the user has not onboarded.
	FindProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, p *domain.Profile) error
	// CreateProfile inserts the profile, its assignment and, for providers,
	// the business details in one transaction. Returns domain.ErrProfileExists.
	CreateProfile(ctx context.Context, p *domain.Profile, a domain.RoleAssignment, business *domain.BusinessDetails) error
}

// RoleRepository persists role assignments and runs the role-switch procedure.
type RoleRepository interface {
	ListAssignments(ctx context.Context, userID string, activeOnly bool) ([]domain.RoleAssignment, error)
	// AddAssignment inserts a, plus business details when non-nil, atomically.
	// Returns domain.ErrRoleAlreadyHeld on a duplicate (user, role).
	AddAssignment(ctx context.Context, a domain.RoleAssignment, business *domain.BusinessDetails) error
	// SwitchActiveRole sets the profile's active role inside one transaction,
	// guarded by an active assignment for target. Returns domain.ErrRoleNotHeld
	// or domain.ErrProfileNotFound when the guard fails.
	SwitchActiveRole(ctx context.Context, userID string, target domain.Role, businessName string) (domain.Role, error)
	FindBusiness(ctx context.Context, userID string) (*domain.BusinessDetails, error)
}
