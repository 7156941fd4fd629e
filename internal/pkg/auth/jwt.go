// Package auth issues and verifies the HS256 session tokens the balance API accepts.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles carried in the role claim.
const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
)

var (
	// ErrInvalidToken is returned for malformed, expired or foreign tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmptySecret is returned when a manager is built without a signing key.
	ErrEmptySecret = errors.New("jwt secret is empty")
)

// Claims are the session claims shared with the platform's auth service.
type Claims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token grants admin access.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// TokenManager signs and verifies session tokens with a shared secret.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a new TokenManager instance.
func NewTokenManager(secret, issuer string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Generate signs a token for a user and role.
func (m *TokenManager) Generate(userID int64, role string) (string, error) {
	now := m.now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses a token and checks its signature, issuer and lifetime.
func (m *TokenManager) Validate(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := new(Claims)
	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
