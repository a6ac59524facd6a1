package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/asimpleforum/server/internal/plugins/accounts"
	"github.com/asimpleforum/server/internal/plugins/admin"
	"github.com/asimpleforum/server/internal/plugins/audit"
	"github.com/asimpleforum/server/internal/plugins/forums"
	"github.com/asimpleforum/server/internal/plugins/mail"
)

// RegisterRoutes wires every plugin together and registers all routes.
// This is the single place where the dependency graph is assembled: the
// accounts service doubles as the identity resolver the other plugins
// authorize through.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check endpoint for container orchestration.
	e.GET("/healthz", func(c echo.Context) error {
		if err := a.DB.PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Shared services ---

	auditRepo := audit.NewAuditRepository(a.DB)
	auditService := audit.NewAuditService(auditRepo)

	userRepo := accounts.NewUserRepository(a.DB)
	identifierCache := accounts.NewIdentifierCache(a.Redis)
	accountService := accounts.NewAccountService(userRepo, a.Registry, identifierCache, auditService)

	// --- Plugins ---

	accounts.RegisterRoutes(e, accounts.NewHandler(accountService))

	forumRepo := forums.NewForumRepository(a.DB)
	forumService := forums.NewForumService(forumRepo, accountService, auditService)
	forums.RegisterRoutes(e, forums.NewHandler(forumService))

	messageRepo := mail.NewMessageRepository(a.DB)
	mailService := mail.NewMailService(messageRepo, userRepo, accountService, auditService)
	mail.RegisterRoutes(e, mail.NewHandler(mailService))

	adminService := admin.NewAdminService(userRepo, accountService, auditService)
	admin.RegisterRoutes(e, admin.NewHandler(adminService))
}
