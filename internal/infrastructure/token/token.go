// Package token issues and verifies the HS256 bearer tokens used by the API.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultTTL = time.Hour

// Claims carries the user id under the "id" key.
type Claims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("token: secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for userID that expires after the configured TTL.
func (m *Manager) Issue(userID string) (string, error) {
	if userID == "" {
		return "", failure.Validation("user id is required")
	}
	now := m.now()
	claims := Claims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry and returns the user id.
func (m *Manager) Verify(raw string) (string, error) {
	if raw == "" {
		return "", failure.New(failure.ErrUnauthenticated, "not authorized")
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", failure.Wrap(failure.ErrUnauthenticated, "invalid token", err)
	}
	if claims.ID == "" {
		return "", failure.New(failure.ErrUnauthenticated, "invalid token")
	}
	return claims.ID, nil
}
