package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lastslot/account-service/internal/core/domain"
)

// ProfileReader loads the profile whose active role is checked.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
}

// RequireActiveRole enforces role-based access control on the caller's
// active role. Holding a role is not enough; it has to be the active one.
// Must run after Auth.
func RequireActiveRole(profiles ProfileReader, allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get("user_id").(string)
			if userID == "" {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}

			p, err := profiles.GetProfile(c.Request().Context(), userID)
			if errors.Is(err, domain.ErrProfileNotFound) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			if err != nil {
				return err
			}

			if _, ok := allowed[p.EffectiveRole()]; !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			c.Set("active_role", string(p.EffectiveRole()))
			return next(c)
		}
	}
}
