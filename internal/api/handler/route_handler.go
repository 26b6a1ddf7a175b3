package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lastslot/account-service/internal/api/metrics"
	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/internal/core/ports"
	"github.com/lastslot/account-service/internal/core/routeguard"
)

// RouteHandler exposes the route guard to thin clients that cannot run it
// locally.
type RouteHandler struct {
	accounts ports.AccountService
}

func NewRouteHandler(accounts ports.AccountService) *RouteHandler {
	return &RouteHandler{accounts: accounts}
}

// Decide handles GET /v1/route. Authentication is optional; without a valid
// token the visitor is anonymous.
//
// @Summary      Decide navigation
// @Tags         routing
// @Produce      json
// @Param        path            query     string  true   "Requested path"
// @Param        last_route      query     string  false  "Last visited in-app route"
// @Param        just_completed  query     bool    false  "Profile form was just submitted"
// @Success      200             {object}  routeResponse
// @Failure      400             {object}  errorResponse
// @Router       /v1/route [get]
func (h *RouteHandler) Decide(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}
	justCompleted := false
	if raw := c.QueryParam("just_completed"); raw != "" {
		var err error
		if justCompleted, err = strconv.ParseBool(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "just_completed must be a boolean")
		}
	}

	in := routeguard.Input{
		Path:          path,
		LastRoute:     c.QueryParam("last_route"),
		JustCompleted: justCompleted,
	}

	if claims, ok := optionalClaims(c); ok {
		in.Session = &domain.Session{ID: claims.SessionID, UserID: claims.UserID, Email: claims.Email}
		p, err := h.accounts.GetProfile(c.Request().Context(), claims.UserID)
		switch {
		case errors.Is(err, domain.ErrProfileNotFound):
		case err != nil:
			return err
		default:
			in.Profile = p
		}
	}

	state := routeguard.Classify(in.Session, in.Profile, in.JustCompleted)
	d := routeguard.Decide(in)
	metrics.RouteDecisionsTotal.WithLabelValues(state.String(), strconv.FormatBool(d.Redirect)).Inc()

	return c.JSON(http.StatusOK, routeResponse{State: state.String(), Redirect: d.Redirect, To: d.To})
}
