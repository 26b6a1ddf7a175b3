package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/lastslot/account-service/internal/core/domain"
)

type stubAuthService struct {
	signUpFn  func(ctx context.Context, email, password string) (*domain.Session, error)
	signInFn  func(ctx context.Context, email, password, clientIP string) (*domain.Session, error)
	refreshFn func(ctx context.Context, token string) (*domain.Session, error)
	signedOut []domain.Claims
}

func (s *stubAuthService) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	return s.signUpFn(ctx, email, password)
}

func (s *stubAuthService) SignIn(ctx context.Context, email, password, clientIP string) (*domain.Session, error) {
	return s.signInFn(ctx, email, password, clientIP)
}

func (s *stubAuthService) Refresh(ctx context.Context, token string) (*domain.Session, error) {
	return s.refreshFn(ctx, token)
}

func (s *stubAuthService) SignOut(_ context.Context, claims domain.Claims) error {
	s.signedOut = append(s.signedOut, claims)
	return nil
}

func (s *stubAuthService) Authenticate(context.Context, string) (domain.Claims, error) {
	return domain.Claims{}, domain.ErrInvalidToken
}

// stubAccountService is built from function fields; a nil field panics so
// a test fails loudly on unexpected calls.
type stubAccountService struct {
	getProfileFn func(ctx context.Context, userID string) (*domain.Profile, error)
	updateFn     func(ctx context.Context, userID string, u domain.ProfileUpdate) (*domain.Profile, error)
	onboardFn    func(ctx context.Context, userID string, role domain.Role, businessName string) (*domain.Profile, error)
	listRolesFn  func(ctx context.Context, userID string, activeOnly bool) ([]domain.RoleAssignment, error)
	addRoleFn    func(ctx context.Context, userID string, role domain.Role, businessName string) (*domain.RoleAssignment, error)
	switchFn     func(ctx context.Context, userID string, target domain.Role, businessName string) (domain.SwitchRoleResult, error)
	businessFn   func(ctx context.Context, userID string) (*domain.BusinessDetails, error)
}

func (s *stubAccountService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.getProfileFn(ctx, userID)
}

func (s *stubAccountService) UpdateProfile(ctx context.Context, userID string, u domain.ProfileUpdate) (*domain.Profile, error) {
	return s.updateFn(ctx, userID, u)
}

func (s *stubAccountService) Onboard(ctx context.Context, userID string, role domain.Role, businessName string) (*domain.Profile, error) {
	return s.onboardFn(ctx, userID, role, businessName)
}

func (s *stubAccountService) ListRoles(ctx context.Context, userID string, activeOnly bool) ([]domain.RoleAssignment, error) {
	return s.listRolesFn(ctx, userID, activeOnly)
}

func (s *stubAccountService) AddRole(ctx context.Context, userID string, role domain.Role, businessName string) (*domain.RoleAssignment, error) {
	return s.addRoleFn(ctx, userID, role, businessName)
}

func (s *stubAccountService) SwitchRole(ctx context.Context, userID string, target domain.Role, businessName string) (domain.SwitchRoleResult, error) {
	return s.switchFn(ctx, userID, target, businessName)
}

func (s *stubAccountService) GetBusiness(ctx context.Context, userID string) (*domain.BusinessDetails, error) {
	return s.businessFn(ctx, userID)
}

// newContext builds an echo context with the validator installed and, when
// userID is set, the claims the Auth middleware would have injected.
func newContext(method, target, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set(CtxUserID, userID)
		c.Set(CtxSessionID, "s-"+userID)
		c.Set(CtxEmail, userID+"@example.com")
	}
	return c, rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
}
