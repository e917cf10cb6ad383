package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quadhq/quad/internal/domain/entities"
	"github.com/quadhq/quad/internal/domain/repositories"
)

// SessionClaims is the JWT payload issued after an admitted sign-in
type SessionClaims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and validates session tokens. Tokens are HS256 JWTs
// backed by a server-side session row, so a logout invalidates the token
// before its expiry.
type TokenService struct {
	sessionRepo repositories.SessionRepository
	signingKey  []byte
	lifetime    time.Duration
	log         *slog.Logger
}

// NewTokenService creates a new token service
func NewTokenService(sessionRepo repositories.SessionRepository, signingKey string, lifetime time.Duration) *TokenService {
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &TokenService{
		sessionRepo: sessionRepo,
		signingKey:  []byte(signingKey),
		lifetime:    lifetime,
		log:         slog.Default().With(slog.String("service", "token")),
	}
}

// Issue signs a JWT for the account and stores the backing session row
func (s *TokenService) Issue(ctx context.Context, account *entities.Account, ipAddress, userAgent *string) (string, error) {
	now := time.Now()
	expiresAt := now.Add(s.lifetime)

	claims := SessionClaims{
		UserID:   account.ID,
		TenantID: account.TenantID,
		Email:    account.Email,
		Role:     string(account.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Subject:   account.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	session := &entities.Session{
		AccountID: account.ID,
		Token:     signed,
		ExpiresAt: expiresAt,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token, checks the backing session row is
// still present and unexpired, and touches its activity timestamp.
func (s *TokenService) Validate(ctx context.Context, tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}

	session, err := s.sessionRepo.GetByToken(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}
	if session.IsExpired() {
		return nil, fmt.Errorf("session has expired")
	}

	if err := s.sessionRepo.Touch(ctx, tokenString, time.Now()); err != nil {
		// Activity tracking is best effort; the session itself is valid.
		s.log.Debug("failed to touch session activity", slog.Any("error", err))
	}

	return claims, nil
}

// Revoke deletes the backing session row (logout)
func (s *TokenService) Revoke(ctx context.Context, tokenString string) error {
	if err := s.sessionRepo.Delete(ctx, tokenString); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CleanupExpired removes sessions that expired more than olderThan ago,
// returning the number removed
func (s *TokenService) CleanupExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	before := time.Now().Add(-olderThan)
	deleted, err := s.sessionRepo.DeleteExpired(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}
	if deleted > 0 {
		s.log.Info("cleaned up expired sessions", slog.Int64("deleted", deleted))
	}
	return deleted, nil
}
