package mail

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/asimpleforum/server/internal/apperror"
)

// Handler handles HTTP requests for mail. Thin bind-call-respond layer
// over the service.
type Handler struct {
	service MailService
}

// NewHandler creates a new mail handler with the given service.
func NewHandler(service MailService) *Handler {
	return &Handler{service: service}
}

// Send submits a new direct message (POST /mail/send).
func (h *Handler) Send(c echo.Context) error {
	var req SendRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	msg, err := h.service.Send(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"id": msg.ID})
}

// Inbox lists the caller's received messages (POST /mail/inbox).
func (h *Handler) Inbox(c echo.Context) error {
	var req InboxRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	summaries, err := h.service.Inbox(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, summaries)
}

// Outbox lists the caller's sent messages (POST /mail/outbox).
func (h *Handler) Outbox(c echo.Context) error {
	var req OutboxRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	summaries, err := h.service.Outbox(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, summaries)
}

// Message returns a single full message (POST /mail/msg).
func (h *Handler) Message(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	view, err := h.service.Message(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, view)
}

// Mark sets read/flagged marks on a message (POST /mail/mark).
func (h *Handler) Mark(c echo.Context) error {
	var req MarkRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if err := h.service.Mark(c.Request().Context(), req); err != nil {
		return err
	}

	return c.NoContent(http.StatusOK)
}
