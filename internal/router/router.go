package router // package router defines how HTTP routes are registered for the API

import (
	"time"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/studio-booking/internal/handler"    // handlers that implement business logic
	"github.com/iliyamo/studio-booking/internal/middleware" // JWT, role, rate limit and replay middleware
)

// emailChangeWindow is how old a password login may be for PUT /v1/me/email.
const emailChangeWindow = 5 * time.Minute

// Guards are the Redis-backed middlewares shared by the route tables.  A nil
// entry is treated as pass-through so tests can register routes without Redis.
type Guards struct {
	Cache       echo.MiddlewareFunc // public GET cache
	Idempotency echo.MiddlewareFunc // Idempotency-Key replay on mutating routes
	AuthLimit   echo.MiddlewareFunc // token bucket for /v1/auth/*
	PayLimit    echo.MiddlewareFunc // token bucket for checkout, redeem and promo checks
}

func orPass(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return m
}

// RegisterRoutes registers routes that do not require authentication and
// belong to no feature: the health check.
func RegisterRoutes(e *echo.Echo, deps map[string]handler.Pinger) {
	// load balancers probe this; it fails when MySQL or Redis stop answering
	e.GET("/healthz", handler.Health(deps))
}

// RegisterAuth registers the built-in identity issuer under /v1/auth and the
// caller's own profile under /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, p *handler.ProfileHandler, jwtSecret string, g Guards) {
	// register, login and refresh need no session; all of them are rate limited
	auth := e.Group("/v1/auth", orPass(g.AuthLimit))
	auth.POST("/register", a.Register)
	auth.POST("/login", a.Login)
	auth.POST("/refresh", a.Refresh)
	// logout accepts either a refresh token in the body or the bearer itself
	auth.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))

	me := e.Group("/v1/me", middleware.JWTAuth(jwtSecret))
	me.GET("", p.Me)
	me.PUT("", p.Update)
	me.PUT("/email", p.UpdateEmail, middleware.RequireRecentLogin(emailChangeWindow))
}

// RegisterPublic registers the unauthenticated browse endpoints.  Every GET
// is served through the response cache.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, g Guards) {
	cache := orPass(g.Cache)
	e.GET("/v1/catalog", p.Catalog, cache)
	e.GET("/v1/courses/:key/sessions", p.CourseSessions, cache)
	e.GET("/v1/events", p.Events, cache)
	e.GET("/v1/rentals", p.Rentals, cache)
	e.POST("/v1/rentals/:id/request", p.RequestRental, orPass(g.PayLimit))
}
