package forums

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/asimpleforum/server/internal/apperror"
)

// Handler handles HTTP requests for forums. Handlers are thin: bind, call
// the service, shape the response.
type Handler struct {
	service ForumService
}

// NewHandler creates a new forums handler with the given service.
func NewHandler(service ForumService) *Handler {
	return &Handler{service: service}
}

// Index lists forums (GET /forums/index?offset=&limit=&filter=).
// filter=true additionally includes private forums the caller is
// authorized for; the token, if any, comes in the sessionId query param.
func (h *Handler) Index(c echo.Context) error {
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	includePrivate, _ := strconv.ParseBool(c.QueryParam("filter"))
	token := c.QueryParam("sessionId")

	summaries, err := h.service.Index(c.Request().Context(), token, offset, limit, includePrivate)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, summaries)
}

// Posts lists a forum's posts (POST /forums/posts).
func (h *Handler) Posts(c echo.Context) error {
	var req PostIndexRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	summaries, err := h.service.Posts(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, summaries)
}

// Post returns a single post (POST /forums/post).
func (h *Handler) Post(c echo.Context) error {
	var req PostRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	view, err := h.service.Post(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, view)
}

// Replies lists replies under a parent (POST /forums/replies).
func (h *Handler) Replies(c echo.Context) error {
	var req RepliesRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	views, err := h.service.Replies(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, views)
}

// CreatePost submits a new post (POST /forums/create-post).
func (h *Handler) CreatePost(c echo.Context) error {
	var req CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	post, err := h.service.CreatePost(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"id": post.ID})
}

// CreateReply submits a new reply (POST /forums/create-reply).
func (h *Handler) CreateReply(c echo.Context) error {
	var req CreateReplyRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	reply, err := h.service.CreateReply(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"id": reply.ID})
}
