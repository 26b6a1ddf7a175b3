package ports

import (
	"context"

	"github.com/lastslot/account-service/internal/core/domain"
)

type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*domain.Session, error)
	SignIn(ctx context.Context, email, password, clientIP string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, error)
	SignOut(ctx context.Context, claims domain.Claims) error
	// Authenticate verifies an access token and that its session is still live.
	Authenticate(ctx context.Context, accessToken string) (domain.Claims, error)
}
