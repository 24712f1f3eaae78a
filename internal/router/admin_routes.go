package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/handler"    // admin and booking handlers
	"github.com/iliyamo/studio-booking/internal/middleware" // JWT + role middlewares
	"github.com/iliyamo/studio-booking/internal/model"
)

// RegisterAdmin registers admin-scoped endpoints under /v1/admin.
// All routes require a valid JWT and the admin role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, b *handler.BookingHandler, jwtSecret string, g Guards) {
	// Attach middlewares at group construction time for clarity.
	adm := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Course settings ----
	adm.GET("/courses", a.ListCourses)
	adm.GET("/courses/:key", a.GetCourse)
	adm.PUT("/courses/:key", a.PutCourse)

	// ---- Events ----
	adm.GET("/events", a.ListEvents)
	adm.POST("/events", a.CreateEvent)
	adm.PUT("/events/:id", a.UpdateEvent)
	adm.DELETE("/events/:id", a.DeleteEvent, orPass(g.Idempotency)) // ?force=true refunds bookings
	adm.GET("/events/:id/bookings", b.EventBookings)

	// ---- Bookings ----
	// admins skip the lead time and the ownership check
	adm.DELETE("/bookings/:id", b.Cancel, orPass(g.Idempotency))

	// ---- Promos ----
	adm.GET("/promos", a.ListPromos)
	adm.POST("/promos", a.CreatePromo)
	adm.DELETE("/promos/:code", a.DeletePromo)

	// ---- Rentals ----
	adm.GET("/rentals", a.ListRentalSlots)
	adm.POST("/rentals", a.CreateRentalSlot)
	adm.DELETE("/rentals/:id", a.DeleteRentalSlot)
	adm.GET("/rent-requests", a.ListRentRequests)
	adm.POST("/rent-requests/:id/approve", a.ApproveRentRequest)
	adm.POST("/rent-requests/:id/reject", a.RejectRentRequest)
}
