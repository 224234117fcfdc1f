package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
)

// ProfileCache is an optional read-through cache in front of the user
// repository. Get returns (nil, nil) on a miss.
type ProfileCache interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	Set(ctx context.Context, user *domain.User) error
}
