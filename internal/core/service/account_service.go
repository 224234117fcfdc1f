package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/metrics"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const (
	minPasswordLength = 6
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
)

type accountService struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenManager
	cache    ports.ProfileCache
	validate *validator.Validate
	log      zerolog.Logger

	decoyOnce sync.Once
	decoy     string
}

// NewAccountService returns an AccountService implementation. cache may be nil.
func NewAccountService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenManager,
	cache ports.ProfileCache,
	log zerolog.Logger,
) ports.AccountService {
	return &accountService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		cache:    cache,
		validate: validator.New(),
		log:      log,
	}
}

// Register validates the input, creates the account and issues a session token.
func (s *accountService) Register(ctx context.Context, in ports.RegisterInput) (string, *domain.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = domain.NormalizeEmail(in.Email)

	if err := s.validateRegistration(in); err != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return "", nil, err
	}

	user, err := s.users.Create(ctx, ports.NewUser{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  in.Password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			metrics.RegistrationsTotal.WithLabelValues(metrics.ResultConflict).Inc()
			return "", nil, err
		}
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return "", nil, fmt.Errorf("register: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return "", nil, fmt.Errorf("register: issue token: %w", err)
	}

	metrics.RegistrationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	s.log.Info().Str("user_id", user.ID).Msg("account registered")
	return token, user.Public(), nil
}

// Login checks the credentials and issues a session token. An unknown email
// and a wrong password produce the same ErrInvalidCredentials.
func (s *accountService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Spend the same hashing work as a real mismatch.
			s.hasher.Verify(password, s.decoyHash())
			metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
			return "", nil, domain.ErrInvalidCredentials
		}
		metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return "", nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return "", nil, fmt.Errorf("login: issue token: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return token, user.Public(), nil
}

// Logout has no server-side state to clear; tokens stay valid until expiry.
func (s *accountService) Logout(_ context.Context, userID string) error {
	s.log.Info().Str("user_id", userID).Msg("user logged out")
	return nil
}

// GetProfile returns the public profile, reading through the cache when one
// is configured. Cache failures are logged and never fail the call.
func (s *accountService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUserNotFound
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, userID)
		switch {
		case err != nil:
			metrics.ProfileCacheTotal.WithLabelValues(metrics.ResultError).Inc()
			s.log.Warn().Err(err).Str("user_id", userID).Msg("profile cache read failed")
		case cached != nil:
			metrics.ProfileCacheTotal.WithLabelValues(metrics.ResultHit).Inc()
			return cached, nil
		default:
			metrics.ProfileCacheTotal.WithLabelValues(metrics.ResultMiss).Inc()
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	profile := user.Public()

	if s.cache != nil {
		if err := s.cache.Set(ctx, profile); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("profile cache write failed")
		}
	}
	return profile, nil
}

// Authenticate resolves a session token to its subject.
func (s *accountService) Authenticate(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrUnauthenticated
	}
	userID, err := s.tokens.Verify(token)
	if err != nil {
		metrics.TokenVerificationsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		if errors.Is(err, domain.ErrInvalidToken) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	metrics.TokenVerificationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return userID, nil
}

func (s *accountService) decoyHash() string {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash("decoy-password-for-unknown-accounts")
		if err != nil {
			s.log.Warn().Err(err).Msg("decoy hash unavailable")
			return
		}
		s.decoy = hash
	})
	return s.decoy
}

func (s *accountService) validateRegistration(in ports.RegisterInput) error {
	if in.FirstName == "" {
		return fmt.Errorf("%w: firstName is required", domain.ErrValidation)
	}
	if in.Email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if err := s.validate.Var(in.Email, "email"); err != nil {
		return fmt.Errorf("%w: email is not a valid address", domain.ErrValidation)
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	}
	if len(in.Password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", domain.ErrValidation, maxPasswordBytes)
	}
	return nil
}
