package accounts

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/asimpleforum/server/internal/apperror"
)

// Handler handles HTTP requests for accounts (login, register, logout).
// Handlers are thin: they bind the request, call the service, and shape
// the response. No business logic lives here.
type Handler struct {
	service AccountService
}

// NewHandler creates a new accounts handler with the given service.
func NewHandler(service AccountService) *Handler {
	return &Handler{service: service}
}

// sessionResponse is the JSON body returned by login and register.
type sessionResponse struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login processes a login submission (POST /login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Identifier == "" || req.Password == "" {
		return apperror.NewBadRequest("username and password are required")
	}

	sess, _, err := h.service.Login(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sessionResponse{
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
	})
}

// Register processes a registration submission (POST /register). A
// successful registration logs the new account straight in.
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	sess, _, err := h.service.Register(c.Request().Context(), RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sessionResponse{
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
	})
}

// Logout removes the submitted session (POST /logout).
func (h *Handler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.SessionID == "" {
		return apperror.NewBadRequest("sessionId is required")
	}

	if err := h.service.Logout(c.Request().Context(), req.SessionID); err != nil {
		return err
	}

	return c.NoContent(http.StatusOK)
}

// Me returns the profile behind a session token (GET /me?sessionId=...).
func (h *Handler) Me(c echo.Context) error {
	token := c.QueryParam("sessionId")
	if token == "" {
		return apperror.NewBadRequest("sessionId is required")
	}

	user, err := h.service.CurrentUser(c.Request().Context(), token)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"id":             user.ID,
		"username":       user.Username,
		"email":          user.Email,
		"tier":           user.TierName(),
		"emailConfirmed": user.EmailConfirmed,
		"createdAt":      user.CreatedAt,
	})
}
