package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/account-service/internal/core/domain"
)

// TokenTTL is the fixed lifetime of a session token. The session cookie max
// age mirrors it.
const TokenTTL = time.Hour

var errEmptySecret = errors.New("token secret must not be empty")

// JWTManager issues and verifies HS256-signed session tokens. Tokens are
// stateless: there is no revocation list, so a leaked token stays valid
// until it expires.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customises a JWTManager.
type Option func(*JWTManager)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(m *JWTManager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewJWTManager returns a manager signing with secret.
func NewJWTManager(secret string, opts ...Option) (*JWTManager, error) {
	if secret == "" {
		return nil, errEmptySecret
	}
	m := &JWTManager{
		secret: []byte(secret),
		ttl:    TokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue signs a token whose subject is the user's id.
func (m *JWTManager) Issue(user *domain.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", errors.New("issue token: user id is required")
	}

	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry and returns the subject.
// Every failure is reported as domain.ErrInvalidToken.
func (m *JWTManager) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", domain.ErrInvalidToken
	}
	return claims.Subject, nil
}
