package router

import (
	"github.com/labstack/echo/v4"

	"github.com/tappy-heartful/streak-navi-sub000/internal/handler"
	"github.com/tappy-heartful/streak-navi-sub000/internal/middleware"
)

// RegisterReservations registers the member-facing reservation endpoints
// under /v1.  A reservation is addressed by its event: each member holds
// at most one per event, so the routes carry no reservation ID.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN", "MEMBER"),
	)
	g.PUT("/events/:id/reservation", h.Commit) // create or edit
	g.GET("/events/:id/reservation", h.Get)
	g.DELETE("/events/:id/reservation", h.Cancel)
	g.GET("/my-reservations", h.ListMine)
}
