package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lastslot/account-service/internal/api/metrics"
	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/internal/core/ports"
)

// RoleHandler serves role assignments, the switch procedure and the
// provider-only business record.
type RoleHandler struct {
	accounts ports.AccountService
}

func NewRoleHandler(accounts ports.AccountService) *RoleHandler {
	return &RoleHandler{accounts: accounts}
}

// List handles GET /v1/roles.
//
// @Summary      List role assignments
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        active  query     bool  false  "Only enabled assignments"
// @Success      200     {object}  rolesResponse
// @Failure      400     {object}  errorResponse
// @Router       /v1/roles [get]
func (h *RoleHandler) List(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	activeOnly := false
	if raw := c.QueryParam("active"); raw != "" {
		activeOnly, err = strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "active must be a boolean")
		}
	}

	roles, err := h.accounts.ListRoles(c.Request().Context(), claims.UserID, activeOnly)
	if err != nil {
		return err
	}
	if roles == nil {
		roles = []domain.RoleAssignment{}
	}
	return c.JSON(http.StatusOK, rolesResponse{Roles: roles})
}

// Add handles POST /v1/roles.
//
// @Summary      Add a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      addRoleRequest  true  "Role to add"
// @Success      201   {object}  domain.RoleAssignment
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/roles [post]
func (h *RoleHandler) Add(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	var req addRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	a, err := h.accounts.AddRole(c.Request().Context(), claims.UserID, domain.Role(req.Role), req.BusinessName)
	if err != nil {
		return err
	}
	metrics.RolesAddedTotal.WithLabelValues(req.Role).Inc()
	return c.JSON(http.StatusCreated, a)
}

// Switch handles POST /v1/rpc/switch_role. Business failures are reported in
// a 200 body with success=false.
//
// @Summary      Switch active role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      switchRoleRequest  true  "Target role"
// @Success      200   {object}  domain.SwitchRoleResult
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /v1/rpc/switch_role [post]
func (h *RoleHandler) Switch(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	var req switchRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.accounts.SwitchRole(c.Request().Context(), claims.UserID, domain.Role(req.TargetRole), req.BusinessName)
	switch {
	case err != nil:
		metrics.RoleSwitchesTotal.WithLabelValues(req.TargetRole, "error").Inc()
		return err
	case !res.Success:
		metrics.RoleSwitchesTotal.WithLabelValues(req.TargetRole, "rejected").Inc()
	default:
		metrics.RoleSwitchesTotal.WithLabelValues(req.TargetRole, "ok").Inc()
	}
	return c.JSON(http.StatusOK, res)
}

// Business handles GET /v1/business. Only reachable with provider active.
//
// @Summary      Get own business details
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  businessResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/business [get]
func (h *RoleHandler) Business(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	b, err := h.accounts.GetBusiness(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, businessResponse{
		UserID:       b.UserID,
		BusinessName: b.BusinessName,
		CreatedAt:    b.CreatedAt,
	})
}
