package backend

import (
	"context"
	"net/http"

	"github.com/lastslot/account-service/internal/core/domain"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// CurrentSession validates the held session with the server. An expired
// access token is refreshed; a revoked session is dropped and nil returned.
func (c *Client) CurrentSession(ctx context.Context) (*domain.Session, error) {
	if c.Session() == nil {
		return nil, nil
	}

	err := c.send(ctx, http.MethodGet, "/auth/session", nil, nil, true)
	if isStatus(err, http.StatusUnauthorized) {
		err = c.refreshQuiet(ctx)
	}
	switch {
	case err == nil:
		return c.Session(), nil
	case isStatus(err, http.StatusUnauthorized):
		c.log.Info().Msg("stored session is no longer valid")
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
		return nil, nil
	default:
		return nil, failure(err)
	}
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	return c.authenticate(ctx, "/auth/signin", email, password)
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	return c.authenticate(ctx, "/auth/signup", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*domain.Session, error) {
	var s domain.Session
	if err := c.send(ctx, http.MethodPost, path, credentials{Email: email, Password: password}, &s, false); err != nil {
		return nil, failure(err)
	}
	c.setSession(ctx, domain.AuthSignedIn, &s)
	return &s, nil
}

// SignOut revokes the session server-side. The local session is dropped even
// when the server cannot be reached.
func (c *Client) SignOut(ctx context.Context) error {
	if c.Session() == nil {
		return nil
	}
	err := c.send(ctx, http.MethodPost, "/auth/signout", nil, nil, true)
	c.setSession(ctx, domain.AuthSignedOut, nil)
	if err != nil && !isStatus(err, http.StatusUnauthorized) {
		c.log.Warn().Err(err).Msg("server-side sign out failed")
		return failure(err)
	}
	return nil
}

// Refresh rotates the refresh token and publishes TOKEN_REFRESHED.
func (c *Client) Refresh(ctx context.Context) error {
	if err := c.refresh(ctx); err != nil {
		return failure(err)
	}
	return nil
}

func (c *Client) refresh(ctx context.Context) error {
	s, err := c.rotate(ctx)
	if err != nil {
		return err
	}
	c.setSession(ctx, domain.AuthTokenRefreshed, s)
	return nil
}

// refreshQuiet rotates without publishing; used during the initial check,
// which reports its result as INITIAL_SESSION instead.
func (c *Client) refreshQuiet(ctx context.Context) error {
	s, err := c.rotate(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return nil
}

func (c *Client) rotate(ctx context.Context) (*domain.Session, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	cur := c.Session()
	if cur == nil || cur.RefreshToken == "" {
		return nil, &statusError{Status: http.StatusUnauthorized, Message: domain.ErrNotSignedIn.Error()}
	}

	var s domain.Session
	if err := c.send(ctx, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: cur.RefreshToken}, &s, false); err != nil {
		c.log.Debug().Err(err).Msg("token refresh failed")
		return nil, err
	}
	return &s, nil
}
