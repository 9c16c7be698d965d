package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/clinic-portal/portal-service/internal/cache"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "portal-service"

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrTokenRevoked = errors.New("session token revoked")
)

// Claims carried by the session cookie.
type Claims struct {
	jwt.RegisteredClaims
	UserID     uint        `json:"uid"`
	Role       models.Role `json:"role"`
	ViewAsUser bool        `json:"view_as_user,omitempty"`
}

// SessionManager signs session tokens and keeps the revocation list.
type SessionManager struct {
	secret  []byte
	ttl     time.Duration
	revoked *cache.CacheHelper

	// Used only when redis is not configured.
	mu    sync.Mutex
	local map[string]time.Time
}

func NewSessionManager(secret string, ttl time.Duration, revoked *cache.CacheHelper) *SessionManager {
	return &SessionManager{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: revoked,
		local:   make(map[string]time.Time),
	}
}

func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a fresh token for user. Each token gets its own jti.
func (m *SessionManager) Issue(user *models.User, viewAsUser bool) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserID:     user.ID,
		Role:       user.Role(),
		ViewAsUser: viewAsUser,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies the signature, expiry and revocation state of a token.
func (m *SessionManager) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	revoked, err := m.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// Revoke blocks the token until it would have expired.
func (m *SessionManager) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}

	if m.revoked.Enabled() {
		if err := m.revoked.SetString(ctx, claims.ID, "1", ttl); err != nil {
			return fmt.Errorf("failed to revoke session: %w", err)
		}
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.local[claims.ID] = claims.ExpiresAt.Time
	m.pruneLocked(time.Now())
	return nil
}

func (m *SessionManager) isRevoked(ctx context.Context, jti string) (bool, error) {
	if m.revoked.Enabled() {
		exists, err := m.revoked.Exists(ctx, jti)
		if err != nil {
			// Fail closed; a session that cannot be checked is treated as revoked.
			slog.ErrorContext(ctx, "Session revocation lookup failed", "error", err)
			return true, nil
		}
		return exists, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.local[jti]
	return ok, nil
}

func (m *SessionManager) pruneLocked(now time.Time) {
	for jti, exp := range m.local {
		if now.After(exp) {
			delete(m.local, jti)
		}
	}
}
