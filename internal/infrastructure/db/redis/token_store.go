package redis

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/internal/core/ports"
)

// TokenStore keeps live sessions as Redis hashes.
// Key format: session:<session_id>
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

// Save writes the session and (re)sets its expiry.
func (s *TokenStore) Save(ctx context.Context, sessionID string, sess ports.StoredSession, ttl time.Duration) error {
	k := s.key(sessionID)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, k,
		"user_id", sess.UserID,
		"email", sess.Email,
		"refresh_hash", sess.RefreshHash,
	)
	pipe.Expire(ctx, k, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *TokenStore) Get(ctx context.Context, sessionID string) (*ports.StoredSession, error) {
	vals, err := s.client.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(vals) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return &ports.StoredSession{
		UserID:      vals["user_id"],
		Email:       vals["email"],
		RefreshHash: vals["refresh_hash"],
	}, nil
}

// Rotate swaps the refresh hash under WATCH so two concurrent refreshes with
// the same secret cannot both commit.
func (s *TokenStore) Rotate(ctx context.Context, sessionID, oldHash, newHash string, ttl time.Duration) error {
	k := s.key(sessionID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, k, "refresh_hash").Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if subtle.ConstantTimeCompare([]byte(current), []byte(oldHash)) != 1 {
			return domain.ErrInvalidToken
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k, "refresh_hash", newHash)
			pipe.Expire(ctx, k, ttl)
			return nil
		})
		return err
	}, k)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return domain.ErrInvalidToken
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrSessionNotFound):
		return err
	default:
		return fmt.Errorf("rotate session: %w", err)
	}
}

func (s *TokenStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("session exists: %w", err)
	}
	return n > 0, nil
}

func (s *TokenStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *TokenStore) key(sessionID string) string {
	return "session:" + sessionID
}
