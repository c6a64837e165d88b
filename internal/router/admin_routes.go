package router

import (
	"github.com/labstack/echo/v4"

	"github.com/tappy-heartful/streak-navi-sub000/internal/handler"
	"github.com/tappy-heartful/streak-navi-sub000/internal/middleware"
)

// RegisterAdmin registers the event management endpoints.  All routes
// require a valid JWT carrying the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminEventHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	g.POST("/events", h.Create)
	g.PUT("/events/:id", h.Update)
	g.DELETE("/events/:id", h.Delete)
	g.GET("/events/:id/reservations", h.ListReservations)
}
