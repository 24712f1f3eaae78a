package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes
	"time"

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireRole aborts with 403 unless the authenticated caller has one of
// roles.  It must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[Role(c)] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "code": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireRecentLogin guards sensitive account changes.  The caller's
// auth_time must lie within maxAge, otherwise the client is told to ask for
// the password again.
func RequireRecentLogin(maxAge time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			at := AuthTime(c)
			if at.IsZero() || time.Since(at) > maxAge {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "please sign in again", "code": "requires_recent_login"})
			}
			return next(c)
		}
	}
}
