package ports

import "github.com/99minutos/account-service/internal/core/domain"

// PasswordHasher derives and checks salted password hashes.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches hash. A mismatch is not an error.
	Verify(plaintext, hash string) bool
}

// TokenIssuer mints signed session tokens.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// TokenVerifier validates a session token and returns its subject (user id).
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// TokenManager issues and verifies session tokens.
type TokenManager interface {
	TokenIssuer
	TokenVerifier
}
