package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/account-service/internal/core/domain"
)

const (
	profileKeyPrefix  = "profile:"
	DefaultProfileTTL = 5 * time.Minute
)

// ProfileCache stores public user profiles as JSON.
// Key format: profile:<user_id>
type ProfileCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewProfileCache wraps client. A non-positive ttl falls back to DefaultProfileTTL.
func NewProfileCache(client redis.Cmdable, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &ProfileCache{client: client, ttl: ttl}
}

// Get returns the cached profile, or (nil, nil) when the key is absent.
func (c *ProfileCache) Get(ctx context.Context, id string) (*domain.User, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profile cache get: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("profile cache decode: %w", err)
	}
	return &user, nil
}

// Set stores the public view of user. The password hash is never written.
func (c *ProfileCache) Set(ctx context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return errors.New("profile cache set: user id is required")
	}
	raw, err := json.Marshal(user.Public())
	if err != nil {
		return fmt.Errorf("profile cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(user.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("profile cache set: %w", err)
	}
	return nil
}

func (c *ProfileCache) key(id string) string {
	return profileKeyPrefix + id
}
