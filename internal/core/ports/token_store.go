package ports

import (
	"context"
	"time"
)

// StoredSession is the server-side half of a session: who owns it and the
// hash of its current refresh secret.
type StoredSession struct {
	UserID      string
	Email       string
	RefreshHash string
}

// TokenStore keeps live sessions. A session absent from the store is revoked.
type TokenStore interface {
	Save(ctx context.Context, sessionID string, s StoredSession, ttl time.Duration) error
	// Get returns domain.ErrSessionNotFound when the session is unknown or expired.
	Get(ctx context.Context, sessionID string) (*StoredSession, error)
	// Rotate replaces the refresh hash only while it still equals oldHash, so
	// a refresh secret is accepted once. Returns domain.ErrInvalidToken when
	// the hash no longer matches and domain.ErrSessionNotFound when the
	// session is gone.
	Rotate(ctx context.Context, sessionID, oldHash, newHash string, ttl time.Duration) error
	Exists(ctx context.Context, sessionID string) (bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// RateLimiter counts attempts per key within a fixed window.
type RateLimiter interface {
	// Allow registers one attempt and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}
