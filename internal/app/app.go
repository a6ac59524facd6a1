// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, Redis client,
// session registry, Echo instance) and wires together all plugins.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/asimpleforum/server/internal/apperror"
	"github.com/asimpleforum/server/internal/config"
	"github.com/asimpleforum/server/internal/middleware"
	"github.com/asimpleforum/server/internal/session"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool shared by all plugins.
	DB *sql.DB

	// Redis is the Redis client used for the identifier cache.
	Redis *redis.Client

	// Registry is the in-memory session registry. Process-local: sessions
	// do not survive a restart.
	Registry *session.Registry

	// Echo is the HTTP server instance.
	Echo *echo.Echo
}

// New creates a new App instance with the given dependencies and
// configures the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client, registry *session.Registry) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// Configure trusted reverse proxy IPs so c.RealIP() returns the actual
	// client IP instead of the proxy's. Needed for rate limiting and
	// request logging behind Docker networks.
	middleware.TrustedProxies(e, []string{
		"127.0.0.0/8",    // Localhost
		"10.0.0.0/8",     // Docker default bridge
		"172.16.0.0/12",  // Docker bridge (alternate range)
		"192.168.0.0/16", // Common LAN
		"fd00::/8",       // IPv6 private
	})

	app := &App{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Registry: registry,
		Echo:     e,
	}

	// Register global middleware in order of execution.
	app.setupMiddleware()

	// Register the custom error handler that maps AppErrors to JSON.
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// Start begins serving HTTP on the configured port. Blocks until the
// server stops.
func (a *App) Start() error {
	return a.Echo.Start(fmt.Sprintf(":%d", a.Config.Port))
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other
	// middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- method, path, status, latency, remote IP.
	a.Echo.Use(middleware.RequestLogger())

	// Security headers. This server only speaks JSON, so the CSP locks
	// everything down.
	a.Echo.Use(middleware.SecurityHeaders())

	// CORS for browser clients on other origins. Credentials stay off:
	// session tokens travel in request bodies, never in cookies.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   a.Config.AllowedOrigins,
		AllowCredentials: false,
	}))
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to JSON responses. Unknown/expired sessions come through as
// 401, session id collisions as 409, authorization denials as 403.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if the response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "an unexpected error occurred"

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError

	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message

		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}

	case errors.As(err, &echoErr):
		// Echo's built-in errors, e.g. 404 from the router.
		code = echoErr.Code
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(code)
		}

	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
	}

	c.JSON(code, map[string]string{
		"error":   http.StatusText(code),
		"message": message,
	})
}
