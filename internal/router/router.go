// Package router wires the HTTP routes of the reservation service.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-reservation/internal/handler"
)

// Register attaches all routes to the Echo instance.  The extra
// middleware (rate limiting on the mutating reservation routes, response
// caching on the public catalog reads) is passed in by main so the
// router stays free of Redis wiring.
func Register(e *echo.Echo, events *handler.EventHandler, reservations *handler.ReservationHandler, limit, cache echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1")

	// Catalog.
	v1.POST("/events", events.CreateEvent)
	v1.GET("/events", events.ListEvents, cache)
	v1.GET("/events/:id", events.GetEvent, cache)
	v1.GET("/events/:id/seats", events.GetSeats)
	v1.GET("/bookings/:id", events.GetBooking)

	// Reservation protocol.
	v1.POST("/events/:id/lock", reservations.Lock, limit)
	v1.POST("/events/:id/confirm", reservations.Confirm, limit)
	v1.POST("/events/:id/release", reservations.Release, limit)
}
