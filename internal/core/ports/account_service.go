package ports

import (
	"context"

	"github.com/lastslot/account-service/internal/core/domain"
)

type AccountService interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, u domain.ProfileUpdate) (*domain.Profile, error)
	Onboard(ctx context.Context, userID string, role domain.Role, businessName string) (*domain.Profile, error)
	ListRoles(ctx context.Context, userID string, activeOnly bool) ([]domain.RoleAssignment, error)
	AddRole(ctx context.Context, userID string, role domain.Role, businessName string) (*domain.RoleAssignment, error)
	// SwitchRole never returns business-rule failures as errors; they are
	// reported inside the result. The error is reserved for storage failures.
	SwitchRole(ctx context.Context, userID string, target domain.Role, businessName string) (domain.SwitchRoleResult, error)
	GetBusiness(ctx context.Context, userID string) (*domain.BusinessDetails, error)
}
