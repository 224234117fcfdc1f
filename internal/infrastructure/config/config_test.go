package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "token", cfg.SessionCookie)
	assert.Equal(t, "accounts", cfg.Mongo.Database)
	assert.Equal(t, 5*time.Minute, cfg.Redis.ProfileTTL)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.UseMongo())
	assert.False(t, cfg.UseRedis())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":        "s3cret",
		"PORT":              "9090",
		"ENV":               "Production",
		"MONGO_URI":         "mongodb://db:27017",
		"MONGO_DB":          "users_prod",
		"REDIS_ADDR":        "cache:6379",
		"REDIS_DB":          "2",
		"PROFILE_CACHE_TTL": "90s",
		"BCRYPT_COST":       "12",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.UseMongo())
	assert.Equal(t, "users_prod", cfg.Mongo.Database)
	assert.True(t, cfg.UseRedis())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 90*time.Second, cfg.Redis.ProfileTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
}

func TestLoadFrom_SecretRequired(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	assert.Error(t, err)

	_, err = LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{"JWT_SECRET": "   "}))
	assert.Error(t, err)
}

func TestLoadFrom_InvalidDuration(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":        "s3cret",
		"PROFILE_CACHE_TTL": "soon",
	}))
	assert.Error(t, err)
}
