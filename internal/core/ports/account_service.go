package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to AccountService.
type RegisterInput struct {
	FirstName string
	LastName  string // optional
	Email     string
	Password  string
}

// AccountService defines the account use cases.
type AccountService interface {
	// Register creates the account and returns it with a freshly issued session token.
	Register(ctx context.Context, input RegisterInput) (string, *domain.User, error)
	// Login returns a session token and the authenticated user.
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	// Logout is stateless; the caller discards the client-held token.
	Logout(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	// Authenticate resolves a session token to the user id it was issued for.
	Authenticate(ctx context.Context, token string) (string, error)
}
