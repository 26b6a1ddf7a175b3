package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lastslot/account-service/internal/api/metrics"
	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/internal/core/ports"
)

// ProfileHandler serves the signed-in user's profile and onboarding.
type ProfileHandler struct {
	accounts ports.AccountService
}

func NewProfileHandler(accounts ports.AccountService) *ProfileHandler {
	return &ProfileHandler{accounts: accounts}
}

// Get handles GET /v1/profile.
//
// @Summary      Get own profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  domain.Profile
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse  "not onboarded yet"
// @Router       /v1/profile [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	p, err := h.accounts.GetProfile(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Update handles PATCH /v1/profile. Absent fields are left unchanged.
//
// @Summary      Update own profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  domain.Profile
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/profile [patch]
func (h *ProfileHandler) Update(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	p, err := h.accounts.UpdateProfile(c.Request().Context(), claims.UserID, req.toDomain())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Onboard handles POST /v1/onboarding.
//
// @Summary      Create profile for a role
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      onboardRequest  true  "Chosen role"
// @Success      201   {object}  domain.Profile
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/onboarding [post]
func (h *ProfileHandler) Onboard(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	var req onboardRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	role := domain.Role(req.Role)
	p, err := h.accounts.Onboard(c.Request().Context(), claims.UserID, role, req.BusinessName)
	if err != nil {
		return err
	}
	metrics.ProfilesOnboardedTotal.WithLabelValues(string(role)).Inc()
	return c.JSON(http.StatusCreated, p)
}
