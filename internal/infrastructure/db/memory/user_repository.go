// Package memory provides an in-process user repository. It backs the
// service in development when no MongoDB URI is configured, and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// UserRepository implements ports.UserRepository on top of two maps. The
// email index is checked and written under the same lock, so concurrent
// creates for one address cannot both succeed.
type UserRepository struct {
	hasher ports.PasswordHasher

	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string // normalized email -> id
	now     func() time.Time
}

// NewUserRepository returns an empty repository that hashes passwords with hasher.
func NewUserRepository(hasher ports.PasswordHasher) *UserRepository {
	return &UserRepository{
		hasher:  hasher,
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

// Create hashes the password outside the lock, then checks and inserts
// atomically.
func (r *UserRepository) Create(ctx context.Context, in ports.NewUser) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)

	// fast path; the check under the write lock below is the real guard
	if _, err := r.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrDuplicateEmail
	}

	hash, err := r.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	now := r.now()
	user := &domain.User{
		ID:           primitive.NewObjectID().Hex(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; exists {
		return nil, domain.ErrDuplicateEmail
	}
	r.byID[user.ID] = user
	r.byEmail[email] = user.ID
	return clone(user), nil
}

func (r *UserRepository) UpdateProfileImage(_ context.Context, id, image string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	img := image
	u.ProfileImage = &img
	u.UpdatedAt = r.now()
	return clone(u), nil
}

// Len reports the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func clone(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.ProfileImage != nil {
		img := *u.ProfileImage
		c.ProfileImage = &img
	}
	return &c
}
