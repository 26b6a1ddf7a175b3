package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lastslot/account-service/internal/core/domain"
)

// Context keys written by the Auth middleware.
const (
	CtxUserID    = "user_id"
	CtxSessionID = "session_id"
	CtxEmail     = "email"
)

// ctxClaims extracts the claims injected by the Auth middleware. A missing
// user id means the route was registered without the middleware.
func ctxClaims(c echo.Context) (domain.Claims, error) {
	claims, ok := optionalClaims(c)
	if !ok {
		return domain.Claims{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claims, nil
}

func optionalClaims(c echo.Context) (domain.Claims, bool) {
	userID, _ := c.Get(CtxUserID).(string)
	if userID == "" {
		return domain.Claims{}, false
	}
	sessionID, _ := c.Get(CtxSessionID).(string)
	email, _ := c.Get(CtxEmail).(string)
	return domain.Claims{UserID: userID, SessionID: sessionID, Email: email}, true
}

// bindAndValidate binds the body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}
