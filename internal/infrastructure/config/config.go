package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port          string `env:"PORT,           default=8080"`
	Env           string `env:"ENV,            default=development"`
	JWTSecret     string `env:"JWT_SECRET,     required"`
	LogLevel      string `env:"LOG_LEVEL,      default=info"`
	BcryptCost    int    `env:"BCRYPT_COST,    default=10"`
	SessionCookie string `env:"SESSION_COOKIE, default=token"`

	Mongo MongoConfig
	Redis RedisConfig
}

// MongoConfig selects the user store. An empty URI keeps users in memory.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=accounts"`
}

// RedisConfig configures the profile cache. An empty Addr disables it.
type RedisConfig struct {
	Addr       string        `env:"REDIS_ADDR"`
	Password   string        `env:"REDIS_PASSWORD"`
	DB         int           `env:"REDIS_DB,          default=0"`
	ProfileTTL time.Duration `env:"PROFILE_CACHE_TTL, default=5m"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration from an arbitrary lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("load config: JWT_SECRET must not be blank")
	}
	return &cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// UseMongo reports whether a Mongo URI was configured.
func (c *Config) UseMongo() bool { return c.Mongo.URI != "" }

// UseRedis reports whether the profile cache is enabled.
func (c *Config) UseRedis() bool { return c.Redis.Addr != "" }
