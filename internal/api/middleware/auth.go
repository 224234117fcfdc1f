package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/api/handler"
	"github.com/99minutos/account-service/internal/core/domain"
)

// Authenticator resolves a session token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// Auth accepts the session cookie or an Authorization: Bearer header and
// stores the subject under handler.UserIDKey. The cookie is tried first; a
// cookie that fails verification does not hide a valid header.
func Auth(auth Authenticator, cookieName string) echo.MiddlewareFunc {
	if cookieName == "" {
		cookieName = handler.DefaultSessionCookie
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokens, err := candidateTokens(c, cookieName)
			if err != nil {
				return err
			}

			var lastErr error
			for _, token := range tokens {
				userID, err := auth.Authenticate(c.Request().Context(), token)
				if err != nil {
					lastErr = err
					continue
				}
				c.Set(handler.UserIDKey, userID)
				return next(c)
			}
			return lastErr
		}
	}
}

// candidateTokens returns the cookie token followed by the bearer token,
// whichever are present. No carrier at all is ErrUnauthenticated; a
// malformed Authorization header with no cookie is ErrInvalidToken.
func candidateTokens(c echo.Context, cookieName string) ([]string, error) {
	var tokens []string
	if ck, err := c.Cookie(cookieName); err == nil && ck.Value != "" {
		tokens = append(tokens, ck.Value)
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		switch {
		case ok && strings.EqualFold(scheme, "bearer") && token != "":
			tokens = append(tokens, token)
		case len(tokens) == 0:
			return nil, domain.ErrInvalidToken
		}
	}

	if len(tokens) == 0 {
		return nil, domain.ErrUnauthenticated
	}
	return tokens, nil
}
