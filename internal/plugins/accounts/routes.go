package accounts

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/asimpleforum/server/internal/middleware"
)

// RegisterRoutes sets up all account routes on the given Echo instance.
// All of them are public -- session requirements are enforced inside the
// service, not by route-level middleware, because the token travels in the
// request body rather than a cookie.
//
// Login and register are rate-limited to slow brute-force and credential
// stuffing attacks.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))
	e.POST("/register", h.Register, middleware.RateLimit(5, time.Minute))
	e.POST("/logout", h.Logout)
	e.GET("/me", h.Me)
}
