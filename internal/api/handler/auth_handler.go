package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lastslot/account-service/internal/api/metrics"
	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignUp creates a user account and opens a session.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Credentials"
// @Success      201   {object}  domain.Session
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sess, err := h.authService.SignUp(c.Request().Context(), req.Email, req.Password)
	observeAuth("signup", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sess)
}

// SignIn authenticates with email and password.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  domain.Session
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sess, err := h.authService.SignIn(c.Request().Context(), req.Email, req.Password, c.RealIP())
	observeAuth("signin", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

// Refresh rotates the refresh token and issues a new access token.
//
// @Summary      Refresh session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  domain.Session
// @Failure      401   {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sess, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	observeAuth("refresh", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

// SignOut revokes the current session.
//
// @Summary      Sign out
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401   {object}  errorResponse
// @Router       /auth/signout [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	err = h.authService.SignOut(c.Request().Context(), claims)
	observeAuth("signout", err)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Session returns the identity behind the bearer token.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  sessionInfoResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionInfoResponse{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		Email:     claims.Email,
	})
}

func observeAuth(operation string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRateLimited):
		result = "rate_limited"
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrWeakPassword):
		result = "rejected"
	default:
		result = "error"
	}
	metrics.AuthAttemptsTotal.WithLabelValues(operation, result).Inc()
}
