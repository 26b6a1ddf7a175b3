// Package backend implements the session module's auth client, profile
// source and role procedures over the account service HTTP API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/pkg/logger"
)

const (
	defaultTimeout = 10 * time.Second
	changesBuffer  = 64
)

// Client talks to the account service. It holds at most one session and
// publishes every transition of it on Changes.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger

	mu      sync.RWMutex
	session *domain.Session

	// refreshMu serialises token rotation; a refresh token is single use.
	refreshMu sync.Mutex
	changes   chan domain.AuthChange
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSession seeds the client with a session saved earlier. It is
// validated by the first CurrentSession call.
func WithSession(s *domain.Session) Option {
	return func(c *Client) { c.session = s }
}

func NewClient(baseURL string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		log:     logger.Component(log, "backend_client"),
		changes: make(chan domain.AuthChange, changesBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Changes delivers auth transitions in order. The channel must be drained;
// once the buffer is full, emitting blocks until the caller's context ends.
func (c *Client) Changes() <-chan domain.AuthChange { return c.changes }

// Session returns the session held by the client without contacting the
// server.
func (c *Client) Session() *domain.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) setSession(ctx context.Context, typ domain.AuthChangeType, s *domain.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	select {
	case c.changes <- domain.AuthChange{Type: typ, Session: s}:
	case <-ctx.Done():
		c.log.Warn().Str("change", string(typ)).Msg("auth change not delivered, context done")
	}
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusError is a non-2xx response.
type statusError struct {
	Status  int
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func isStatus(err error, status int) bool {
	var se *statusError
	return errors.As(err, &se) && se.Status == status
}

// failure tags err for the session module: 4xx answers are rejected
// preconditions, everything else is a transport failure.
func failure(err error) error {
	var se *statusError
	if errors.As(err, &se) && se.Status >= 400 && se.Status < 500 {
		return &domain.Failure{Kind: domain.FailureRejected, Message: se.Message, Err: err}
	}
	return domain.Unavailable(err)
}

// do sends one request. A 401 on an authenticated call triggers a single
// token refresh and retry.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	err := c.send(ctx, method, path, body, out, authed)
	if authed && isStatus(err, http.StatusUnauthorized) {
		if rerr := c.refresh(ctx); rerr != nil {
			return err
		}
		err = c.send(ctx, method, path, body, out, authed)
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token := c.accessToken()
		if token == "" {
			return &statusError{Status: http.StatusUnauthorized, Message: domain.ErrNotSignedIn.Error()}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&er)
		if er.Error == "" {
			er.Error = http.StatusText(resp.StatusCode)
		}
		return &statusError{Status: resp.StatusCode, Message: er.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
