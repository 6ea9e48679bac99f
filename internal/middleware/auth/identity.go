package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/K-dubey09/bookstore/internal/token"
)

const identityKey = "identity"

// Identity resolves the bearer token on every request and stashes the
// result in the echo context. A bad or missing token means the request runs
// as a guest; this middleware never rejects on its own.
func Identity(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(echo.HeaderAuthorization)
			raw = strings.TrimPrefix(raw, "Bearer ")
			c.Set(identityKey, token.Resolve(raw, secret))
			return next(c)
		}
	}
}

// From returns the identity attached by the Identity middleware, or
// Anonymous when the middleware did not run.
func From(c echo.Context) token.Identity {
	if v, ok := c.Get(identityKey).(token.Identity); ok {
		return v
	}
	return token.Anonymous
}

// RequireLogin rejects guests. The message never distinguishes missing,
// expired and malformed tokens.
func RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if From(c).IsAnonymous() {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		return next(c)
	}
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := From(c)
		if id.IsAnonymous() {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		if !id.IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "admin only")
		}
		return next(c)
	}
}
