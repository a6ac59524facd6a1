package admin

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/asimpleforum/server/internal/apperror"
)

// Handler handles HTTP requests for administration.
type Handler struct {
	service AdminService
}

// NewHandler creates a new admin handler with the given service.
func NewHandler(service AdminService) *Handler {
	return &Handler{service: service}
}

// tierChangeRequest carries a tier change submission.
type tierChangeRequest struct {
	SessionID string `form:"sessionId" json:"sessionId"`
	UserID    string `form:"userId" json:"userId"`
	Tier      string `form:"tier" json:"tier"`
}

// Users lists user records (GET /admin/users?sessionId=&page=).
func (h *Handler) Users(c echo.Context) error {
	token := c.QueryParam("sessionId")
	page, _ := strconv.Atoi(c.QueryParam("page"))

	rows, total, err := h.service.ListUsers(c.Request().Context(), token, page)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"users": rows,
		"total": total,
	})
}

// ChangeTier moves a user to a new tier (POST /admin/tier).
func (h *Handler) ChangeTier(c echo.Context) error {
	var req tierChangeRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.UserID == "" || req.Tier == "" {
		return apperror.NewBadRequest("userId and tier are required")
	}

	if err := h.service.ChangeTier(c.Request().Context(), req.SessionID, req.UserID, req.Tier); err != nil {
		return err
	}

	return c.NoContent(http.StatusOK)
}

// Audit returns a page of the audit feed (GET /admin/audit?sessionId=&page=).
func (h *Handler) Audit(c echo.Context) error {
	token := c.QueryParam("sessionId")
	page, _ := strconv.Atoi(c.QueryParam("page"))

	entries, total, err := h.service.AuditFeed(c.Request().Context(), token, page)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"entries": entries,
		"total":   total,
	})
}
