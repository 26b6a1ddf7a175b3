package backend

import (
	"context"
	"net/http"

	"github.com/lastslot/account-service/internal/core/domain"
)

type rolesResponse struct {
	Roles []domain.RoleAssignment `json:"roles"`
}

type addRoleRequest struct {
	Role         domain.Role `json:"role"`
	BusinessName string      `json:"business_name,omitempty"`
}

type switchRoleRequest struct {
	TargetRole   domain.Role `json:"target_role"`
	BusinessName string      `json:"business_name,omitempty"`
}

type onboardRequest struct {
	Role         domain.Role `json:"role"`
	BusinessName string      `json:"business_name,omitempty"`
}

// GetProfile returns nil, nil when the user has not onboarded. The userID
// must be the signed-in user; the server derives it from the token.
func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	err := c.do(ctx, http.MethodGet, "/v1/profile", nil, &p, true)
	if isStatus(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, failure(err)
	}
	if p.UserID != userID {
		return nil, domain.Unavailable(domain.ErrSessionNotFound)
	}
	return &p, nil
}

func (c *Client) ListActiveRoles(ctx context.Context, _ string) ([]domain.RoleAssignment, error) {
	var out rolesResponse
	if err := c.do(ctx, http.MethodGet, "/v1/roles?active=true", nil, &out, true); err != nil {
		return nil, failure(err)
	}
	return out.Roles, nil
}

func (c *Client) UpdateProfile(ctx context.Context, _ string, u domain.ProfileUpdate) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.do(ctx, http.MethodPatch, "/v1/profile", u, &p, true); err != nil {
		return nil, failure(err)
	}
	return &p, nil
}

// Onboard creates the profile of the signed-in user.
func (c *Client) Onboard(ctx context.Context, role domain.Role, businessName string) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.do(ctx, http.MethodPost, "/v1/onboarding", onboardRequest{Role: role, BusinessName: businessName}, &p, true); err != nil {
		return nil, failure(err)
	}
	return &p, nil
}

// SwitchRole calls the switch_role procedure. Business failures arrive in a
// 200 body and are returned in the result.
func (c *Client) SwitchRole(ctx context.Context, target domain.Role, businessName string) (domain.SwitchRoleResult, error) {
	var res domain.SwitchRoleResult
	err := c.do(ctx, http.MethodPost, "/v1/rpc/switch_role", switchRoleRequest{TargetRole: target, BusinessName: businessName}, &res, true)
	if err != nil {
		return domain.SwitchRoleResult{}, failure(err)
	}
	return res, nil
}

func (c *Client) AddRole(ctx context.Context, role domain.Role, businessName string) error {
	var a domain.RoleAssignment
	if err := c.do(ctx, http.MethodPost, "/v1/roles", addRoleRequest{Role: role, BusinessName: businessName}, &a, true); err != nil {
		return failure(err)
	}
	return nil
}
