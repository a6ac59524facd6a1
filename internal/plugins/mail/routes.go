package mail

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/asimpleforum/server/internal/middleware"
)

// RegisterRoutes sets up all mail routes on a /mail group. The session
// token travels in the request body; the service rejects requests
// without a live session. Sending is rate-limited to slow spam.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/mail")

	g.POST("/send", h.Send, middleware.RateLimit(20, time.Minute))
	g.POST("/inbox", h.Inbox)
	g.POST("/outbox", h.Outbox)
	g.POST("/msg", h.Message)
	g.POST("/mark", h.Mark)
}
