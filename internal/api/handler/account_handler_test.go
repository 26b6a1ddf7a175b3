package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/lastslot/account-service/internal/core/domain"
)

func TestProfileHandler_GetNotOnboarded(t *testing.T) {
	stub := &stubAccountService{
		getProfileFn: func(ctx context.Context, userID string) (*domain.Profile, error) {
			return nil, domain.ErrProfileNotFound
		},
	}
	c, _ := newContext(http.MethodGet, "/v1/profile", "", "u1")

	err := NewProfileHandler(stub).Get(c)
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestProfileHandler_UpdatePassesOnlyPresentFields(t *testing.T) {
	stub := &stubAccountService{
		updateFn: func(ctx context.Context, userID string, u domain.ProfileUpdate) (*domain.Profile, error) {
			if userID != "u1" {
				t.Fatalf("unexpected user %q", userID)
			}
			if u.Phone == nil || *u.Phone != "+34 600" {
				t.Fatalf("expected phone to be set")
			}
			if u.FullName != nil || u.Bio != nil {
				t.Fatalf("absent fields must stay nil")
			}
			if u.Complete == nil || !*u.Complete {
				t.Fatalf("expected completion flag")
			}
			return &domain.Profile{UserID: userID, Phone: *u.Phone, Complete: true}, nil
		},
	}
	c, rec := newContext(http.MethodPatch, "/v1/profile", `{"phone":"+34 600","is_profile_complete":true}`, "u1")

	if err := NewProfileHandler(stub).Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var p domain.Profile
	decode(t, rec, &p)
	if !p.Complete {
		t.Fatalf("expected complete profile in body")
	}
}

func TestProfileHandler_UpdateRejectsBadURL(t *testing.T) {
	c, _ := newContext(http.MethodPatch, "/v1/profile", `{"avatar_url":"not a url"}`, "u1")

	err := NewProfileHandler(&stubAccountService{}).Update(c)
	if code := httpCode(t, err); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
}

func TestProfileHandler_OnboardProviderNeedsBusinessName(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/v1/onboarding", `{"role":"provider"}`, "u1")

	err := NewProfileHandler(&stubAccountService{}).Onboard(c)
	if code := httpCode(t, err); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
}

func TestProfileHandler_Onboard(t *testing.T) {
	stub := &stubAccountService{
		onboardFn: func(ctx context.Context, userID string, role domain.Role, businessName string) (*domain.Profile, error) {
			if role != domain.RoleProvider || businessName != "Cuts" {
				t.Fatalf("unexpected args %s %q", role, businessName)
			}
			return &domain.Profile{UserID: userID, Role: role, ActiveRole: role, BusinessName: businessName}, nil
		},
	}
	c, rec := newContext(http.MethodPost, "/v1/onboarding", `{"role":"provider","business_name":"Cuts"}`, "u1")

	if err := NewProfileHandler(stub).Onboard(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestRoleHandler_ListActiveOnly(t *testing.T) {
	stub := &stubAccountService{
		listRolesFn: func(ctx context.Context, userID string, activeOnly bool) ([]domain.RoleAssignment, error) {
			if !activeOnly {
				t.Fatalf("expected active filter")
			}
			return nil, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/v1/roles?active=true", "", "u1")

	if err := NewRoleHandler(stub).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if body := rec.Body.String(); body != "{\"roles\":[]}\n" {
		t.Fatalf("expected empty roles array, got %s", body)
	}
}

func TestRoleHandler_ListBadFilter(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/v1/roles?active=maybe", "", "u1")

	err := NewRoleHandler(&stubAccountService{}).List(c)
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestRoleHandler_AddConflict(t *testing.T) {
	stub := &stubAccountService{
		addRoleFn: func(ctx context.Context, userID string, role domain.Role, businessName string) (*domain.RoleAssignment, error) {
			return nil, domain.ErrRoleAlreadyHeld
		},
	}
	c, _ := newContext(http.MethodPost, "/v1/roles", `{"role":"customer"}`, "u1")

	if err := NewRoleHandler(stub).Add(c); !errors.Is(err, domain.ErrRoleAlreadyHeld) {
		t.Fatalf("expected ErrRoleAlreadyHeld, got %v", err)
	}
}

func TestRoleHandler_SwitchReportsFailureInBody(t *testing.T) {
	stub := &stubAccountService{
		switchFn: func(ctx context.Context, userID string, target domain.Role, businessName string) (domain.SwitchRoleResult, error) {
			return domain.SwitchRoleResult{Error: domain.ErrRoleNotHeld.Error()}, nil
		},
	}
	c, rec := newContext(http.MethodPost, "/v1/rpc/switch_role", `{"target_role":"provider"}`, "u1")

	if err := NewRoleHandler(stub).Switch(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res domain.SwitchRoleResult
	decode(t, rec, &res)
	if res.Success || res.Error != "role not held" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRoleHandler_SwitchStorageErrorPropagates(t *testing.T) {
	stub := &stubAccountService{
		switchFn: func(ctx context.Context, userID string, target domain.Role, businessName string) (domain.SwitchRoleResult, error) {
			return domain.SwitchRoleResult{}, errors.New("transaction aborted")
		},
	}
	c, _ := newContext(http.MethodPost, "/v1/rpc/switch_role", `{"target_role":"provider"}`, "u1")

	if err := NewRoleHandler(stub).Switch(c); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRoleHandler_Business(t *testing.T) {
	stub := &stubAccountService{
		businessFn: func(ctx context.Context, userID string) (*domain.BusinessDetails, error) {
			return &domain.BusinessDetails{UserID: userID, BusinessName: "Cuts"}, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/v1/business", "", "u1")

	if err := NewRoleHandler(stub).Business(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp businessResponse
	decode(t, rec, &resp)
	if resp.BusinessName != "Cuts" {
		t.Fatalf("unexpected body %+v", resp)
	}
}

func TestRouteHandler_Decide(t *testing.T) {
	profiles := map[string]*domain.Profile{
		"incomplete": {UserID: "incomplete", Role: domain.RoleProvider, ActiveRole: domain.RoleProvider},
		"complete":   {UserID: "complete", Role: domain.RoleCustomer, ActiveRole: domain.RoleCustomer, Complete: true},
	}
	stub := &stubAccountService{
		getProfileFn: func(ctx context.Context, userID string) (*domain.Profile, error) {
			p, ok := profiles[userID]
			if !ok {
				return nil, domain.ErrProfileNotFound
			}
			return p, nil
		},
	}

	cases := []struct {
		name     string
		target   string
		userID   string
		state    string
		redirect bool
		to       string
	}{
		{"anonymous private", "/v1/route?path=/dashboard", "", "anonymous", true, "/auth"},
		{"anonymous public", "/v1/route?path=/search/barbers", "", "anonymous", false, ""},
		{"no profile", "/v1/route?path=/dashboard", "fresh", "authenticated-no-profile", true, "/onboarding"},
		{"incomplete provider", "/v1/route?path=/dashboard", "incomplete", "authenticated-incomplete-provider", true, "/create-business-profile"},
		{"just completed", "/v1/route?path=/create-business-profile&just_completed=true&last_route=/bookings", "incomplete", "authenticated-complete", true, "/bookings"},
		{"complete on auth", "/v1/route?path=/auth", "complete", "authenticated-complete", true, "/dashboard"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, tc.target, "", tc.userID)
			if err := NewRouteHandler(stub).Decide(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			var resp routeResponse
			decode(t, rec, &resp)
			if resp.State != tc.state || resp.Redirect != tc.redirect || resp.To != tc.to {
				t.Fatalf("expected %s/%v/%q, got %+v", tc.state, tc.redirect, tc.to, resp)
			}
		})
	}
}

func TestRouteHandler_RequiresPath(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/v1/route", "", "")

	err := NewRouteHandler(&stubAccountService{}).Decide(c)
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}
