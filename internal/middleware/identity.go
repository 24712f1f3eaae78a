package middleware

// identity.go holds the context keys the auth middleware fills and the
// accessors handlers and other middleware read them through.

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/model"
)

const (
	ctxUserID   = "user_id"
	ctxRole     = "role"
	ctxAuthTime = "auth_time"
)

// UserID returns the authenticated user's id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	s, _ := c.Get(ctxUserID).(string)
	return s
}

// Role returns the authenticated user's role, or "".
func Role(c echo.Context) string {
	s, _ := c.Get(ctxRole).(string)
	return s
}

// IsAdmin reports whether the caller holds the admin role.
func IsAdmin(c echo.Context) bool { return Role(c) == model.RoleAdmin }

// AuthTime returns when the caller last entered their password.
func AuthTime(c echo.Context) time.Time {
	t, _ := c.Get(ctxAuthTime).(time.Time)
	return t
}

// subject identifies the caller for rate limit and replay keys.
func subject(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
