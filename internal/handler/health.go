package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"net/http" // net/http provides status codes and response helpers
	"time"

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Pinger is anything health can probe: the database and the Redis client.
type Pinger func(ctx context.Context) error

// Health reports "ok" when every dependency answers within two seconds and
// 503 naming the first one that does not.
func Health(deps map[string]Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		for name, ping := range deps {
			if ping == nil {
				continue
			}
			if err := ping(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "down", "dependency": name})
			}
		}
		return c.String(http.StatusOK, "ok")
	}
}
