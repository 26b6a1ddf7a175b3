package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/internal/core/ports"
	"github.com/lastslot/account-service/pkg/logger"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	minPasswordLength = 8
)

// AuthOptions configures token issuance.
type AuthOptions struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// accessClaims is the JWT payload of an access token.
type accessClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	Email     string `json:"email"`
}

// AuthService implements sign-up, sign-in, refresh and sign-out. Sessions
// live in the TokenStore; access tokens are only honoured while their
// session exists there.
type AuthService struct {
	users   ports.UserRepository
	tokens  ports.TokenStore
	limiter ports.RateLimiter
	audit   ports.AuditPublisher
	opts    AuthOptions
	log     zerolog.Logger
	now     func() time.Time
}

func NewAuthService(
	users ports.UserRepository,
	tokens ports.TokenStore,
	limiter ports.RateLimiter,
	audit ports.AuditPublisher,
	opts AuthOptions,
	log zerolog.Logger,
) *AuthService {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = defaultAccessTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = defaultRefreshTTL
	}
	return &AuthService{
		users:   users,
		tokens:  tokens,
		limiter: limiter,
		audit:   audit,
		opts:    opts,
		log:     logger.Component(log, "auth"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("sign up: hash password: %w", err)
	}

	now := s.now()
	user, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	sess, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.publish(user.ID, domain.AuditSignedUp, email)
	s.log.Info().Str("user_id", user.ID).Msg("user signed up")
	return sess, nil
}

func (s *AuthService) SignIn(ctx context.Context, email, password, clientIP string) (*domain.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	key := signInKey(email, clientIP)
	allowed, err := s.limiter.Allow(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("rate limit check failed, allowing attempt")
	} else if !allowed {
		s.log.Warn().Str("email", email).Str("ip", clientIP).Msg("sign-in rate limited")
		return nil, domain.ErrRateLimited
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.limiter.Reset(ctx, key); err != nil {
		s.log.Warn().Err(err).Msg("failed to reset rate limit counter")
	}

	sess, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.publish(user.ID, domain.AuditSignedIn, clientIP)
	return sess, nil
}

// Refresh rotates the refresh secret of an existing session and issues a new
// access token. A refresh token can be used once: the store swaps the hash
// only while it still matches, so the loser of a concurrent reuse gets
// ErrInvalidToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	sessionID, _, ok := strings.Cut(refreshToken, ".")
	if !ok || sessionID == "" {
		return nil, domain.ErrInvalidToken
	}

	stored, err := s.tokens.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	if !refreshHashEqual(refreshToken, stored.RefreshHash) {
		return nil, domain.ErrInvalidToken
	}

	if _, err := s.users.FindByID(ctx, stored.UserID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = s.tokens.Delete(ctx, sessionID)
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	sess, err := s.mint(sessionID, stored.UserID, stored.Email)
	if err != nil {
		return nil, err
	}
	err = s.tokens.Rotate(ctx, sessionID, stored.RefreshHash, hashRefreshToken(sess.RefreshToken), s.opts.RefreshTTL)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) || errors.Is(err, domain.ErrSessionNotFound) {
			s.log.Warn().Str("session_id", sessionID).Msg("refresh token reused")
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	s.publish(stored.UserID, domain.AuditTokenRefreshed, sessionID)
	return sess, nil
}

func (s *AuthService) SignOut(ctx context.Context, claims domain.Claims) error {
	if err := s.tokens.Delete(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	s.publish(claims.UserID, domain.AuditSignedOut, claims.SessionID)
	return nil
}

func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (domain.Claims, error) {
	claims := &accessClaims{}
	tkn, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.opts.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !tkn.Valid || claims.Subject == "" || claims.SessionID == "" {
		return domain.Claims{}, domain.ErrInvalidToken
	}

	live, err := s.tokens.Exists(ctx, claims.SessionID)
	if err != nil {
		return domain.Claims{}, fmt.Errorf("authenticate: %w", err)
	}
	if !live {
		return domain.Claims{}, domain.ErrSessionNotFound
	}

	return domain.Claims{UserID: claims.Subject, SessionID: claims.SessionID, Email: claims.Email}, nil
}

func (s *AuthService) openSession(ctx context.Context, user *domain.User) (*domain.Session, error) {
	return s.issue(ctx, uuid.NewString(), user.ID, user.Email)
}

func (s *AuthService) issue(ctx context.Context, sessionID, userID, email string) (*domain.Session, error) {
	sess, err := s.mint(sessionID, userID, email)
	if err != nil {
		return nil, err
	}

	stored := ports.StoredSession{UserID: userID, Email: email, RefreshHash: hashRefreshToken(sess.RefreshToken)}
	if err := s.tokens.Save(ctx, sessionID, stored, s.opts.RefreshTTL); err != nil {
		return nil, fmt.Errorf("issue session: store: %w", err)
	}
	return sess, nil
}

// mint builds a fresh access/refresh pair without persisting anything.
func (s *AuthService) mint(sessionID, userID, email string) (*domain.Session, error) {
	now := s.now()
	expiresAt := now.Add(s.opts.AccessTTL)

	access, err := s.signAccessToken(sessionID, userID, email, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	refresh, err := newRefreshToken(sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	return &domain.Session{
		ID:           sessionID,
		UserID:       userID,
		Email:        email,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *AuthService) signAccessToken(sessionID, userID, email string, now, expiresAt time.Time) (string, error) {
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
		Email:     email,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.opts.JWTSecret))
}

func (s *AuthService) publish(userID string, typ domain.AuditEventType, detail string) {
	if s.audit == nil {
		return
	}
	s.audit.Publish(domain.AuditEvent{UserID: userID, Type: typ, Detail: detail, OccurredAt: s.now()})
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}

func signInKey(email, clientIP string) string {
	return "signin:" + email + ":" + clientIP
}

// newRefreshToken returns "<session id>.<random secret>".
func newRefreshToken(sessionID string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return sessionID + "." + hex.EncodeToString(b), nil
}

func hashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func refreshHashEqual(token, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(hashRefreshToken(token)), []byte(storedHash)) == 1
}
