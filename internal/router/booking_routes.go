package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/handler"
	"github.com/iliyamo/studio-booking/internal/middleware"
)

// RegisterBookings registers the ledger and checkout routes.  Credit
// bookings, cancellations and listings need a session; checkout and pack
// code redemption are open to guests.  Every route that moves credits or
// money accepts an Idempotency-Key.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, co *handler.CheckoutHandler, jwtSecret string, g Guards) {
	idem := orPass(g.Idempotency)
	limit := orPass(g.PayLimit)

	member := e.Group("/v1/bookings")
	member.GET("", b.List, middleware.JWTAuth(jwtSecret))
	member.POST("/credits", b.BookWithCredits, middleware.JWTAuth(jwtSecret), idem)
	member.DELETE("/:id", b.Cancel, middleware.JWTAuth(jwtSecret), idem)
	member.POST("/redeem", b.Redeem, middleware.OptionalJWT(jwtSecret), limit, idem)

	e.POST("/v1/checkout", co.Create, middleware.OptionalJWT(jwtSecret), limit, idem)
	e.POST("/v1/checkout/confirm", co.Confirm, limit)
	e.POST("/v1/promos/check", co.CheckPromo, limit)

	// the processor signs its calls; no session and no rate limit
	e.POST("/v1/webhooks/stripe", co.Webhook)
}
