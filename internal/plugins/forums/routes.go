package forums

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all forum routes on a /forums group. Reads accept
// an optional session token in the request (public forums are readable
// anonymously); the write endpoints require one, enforced in the service.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/forums")

	g.GET("/index", h.Index)
	g.POST("/posts", h.Posts)
	g.POST("/post", h.Post)
	g.POST("/replies", h.Replies)
	g.POST("/create-post", h.CreatePost)
	g.POST("/create-reply", h.CreateReply)
}
