package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// NewUser carries the data needed to create an account. Password is the
// plaintext credential; repositories hash it as part of the write.
type NewUser struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// UserRepository defines persistence operations for user accounts.
//
// Implementations own the email uniqueness invariant and must enforce it at
// the storage level, returning domain.ErrDuplicateEmail on conflict.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// Create hashes the password exactly once and persists the new user.
	Create(ctx context.Context, user NewUser) (*domain.User, error)
	UpdateProfileImage(ctx context.Context, id, image string) (*domain.User, error)
}
