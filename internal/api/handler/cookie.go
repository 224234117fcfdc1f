package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// DefaultSessionCookie is the cookie that carries the session token.
const DefaultSessionCookie = "token"

// CookieConfig controls how the session cookie is written.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

func (cc CookieConfig) name() string {
	if cc.Name == "" {
		return DefaultSessionCookie
	}
	return cc.Name
}

func (cc CookieConfig) set(c echo.Context, token string) {
	maxAge := cc.MaxAge
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	c.SetCookie(&http.Cookie{
		Name:     cc.name(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (cc CookieConfig) clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     cc.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
