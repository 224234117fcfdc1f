package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/99minutos/account-service/internal/api"
	"github.com/99minutos/account-service/internal/api/handler"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/core/service"
	"github.com/99minutos/account-service/internal/infrastructure/config"
	"github.com/99minutos/account-service/internal/infrastructure/db/memory"
	mongostore "github.com/99minutos/account-service/internal/infrastructure/db/mongo"
	rediscache "github.com/99minutos/account-service/internal/infrastructure/db/redis"
	"github.com/99minutos/account-service/internal/infrastructure/security"
	"github.com/99minutos/account-service/pkg/logger"
)

const (
	serviceName     = "account-service"
	shutdownTimeout = 10 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. Configuration is read from the environment;
JWT_SECRET is required, MONGO_URI and REDIS_ADDR are optional.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}

			log := logger.Init(logger.Options{
				Level:   cfg.LogLevel,
				Pretty:  !cfg.IsProduction(),
				Service: serviceName,
			})

			return serve(ctx, cfg, log)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")

	return cmd
}

// app is the wired object graph plus the cleanup of its connections.
type app struct {
	router  *echo.Echo
	closers []func(context.Context) error
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func buildApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{}
	checks := make(map[string]handler.DependencyCheck)

	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	tokens, err := security.NewJWTManager(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	var users ports.UserRepository
	if cfg.UseMongo() {
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Disconnect)

		repo := mongostore.NewUserRepository(db, hasher)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = a.close(context.Background())
			return nil, err
		}
		users = repo
		checks["mongodb"] = handler.MongoCheck(db)
		log.Info().Str("database", cfg.Mongo.Database).Msg("using mongo user store")
	} else {
		if cfg.IsProduction() {
			log.Warn().Msg("MONGO_URI not set in production, accounts will not survive a restart")
		}
		users = memory.NewUserRepository(hasher)
		log.Info().Msg("using in-memory user store")
	}

	var cache ports.ProfileCache
	if cfg.UseRedis() {
		client, err := rediscache.Connect(ctx, rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			_ = a.close(context.Background())
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		cache = rediscache.NewProfileCache(client, cfg.Redis.ProfileTTL)
		checks["redis"] = handler.RedisCheck(client)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("profile cache enabled")
	}

	accounts := service.NewAccountService(users, hasher, tokens, cache, log)

	a.router = api.NewRouter(api.Deps{
		Accounts: accounts,
		Log:      log,
		Cookie: handler.CookieConfig{
			Name:   cfg.SessionCookie,
			Secure: cfg.IsProduction(),
			MaxAge: security.TokenTTL,
		},
		Checks: checks,
	})
	return a, nil
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := a.router.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		_ = a.close(context.Background())
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := a.router.Shutdown(shutdownCtx)
	if err := a.close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("closing connections")
	}
	return shutdownErr
}
