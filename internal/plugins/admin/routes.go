package admin

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all admin routes on a /admin group. Tier checks
// happen in the service after the session token resolves, so an expired
// administrator session reads as unauthorized, not forbidden.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/admin")

	g.GET("/users", h.Users)
	g.POST("/tier", h.ChangeTier)
	g.GET("/audit", h.Audit)
}
