package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lastslot/account-service/internal/core/domain"
)

// Authenticator verifies an access token and returns its claims.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (domain.Claims, error)
}

// Auth validates the bearer token, checks its session is still live and
// injects the claims into the context.
func Auth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			token, ok := bearerToken(authHeader)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := auth.Authenticate(c.Request().Context(), token)
			if isTokenRejected(err) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if err != nil {
				return fmt.Errorf("auth middleware: %w", err)
			}

			setClaims(c, claims)
			return next(c)
		}
	}
}

// OptionalAuth behaves like Auth when a valid bearer token is present and
// lets the request through anonymously when the token is missing or rejected.
// A failure to verify the token is not treated as anonymous.
func OptionalAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token, ok := bearerToken(c.Request().Header.Get("Authorization")); ok {
				claims, err := auth.Authenticate(c.Request().Context(), token)
				switch {
				case err == nil:
					setClaims(c, claims)
				case !isTokenRejected(err):
					return fmt.Errorf("optional auth middleware: %w", err)
				}
			}
			return next(c)
		}
	}
}

// isTokenRejected reports whether err means the token itself is bad, as
// opposed to the session store being unreachable.
func isTokenRejected(err error) bool {
	return errors.Is(err, domain.ErrInvalidToken) || errors.Is(err, domain.ErrSessionNotFound)
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setClaims(c echo.Context, claims domain.Claims) {
	c.Set("user_id", claims.UserID)
	c.Set("session_id", claims.SessionID)
	c.Set("email", claims.Email)
}
