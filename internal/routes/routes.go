package routes

import (
	"github.com/ahmetk3436/powerboard/internal/config"
	"github.com/ahmetk3436/powerboard/internal/handlers"
	"github.com/ahmetk3436/powerboard/internal/metrics"
	"github.com/ahmetk3436/powerboard/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// Setup registers every route. auditHandler may be nil when auditing is
// disabled. Without a JWT secret all routes are open.
func Setup(
	app *fiber.App,
	cfg *config.Config,
	m *metrics.Metrics,
	authHandler *handlers.AuthHandler,
	dashboardHandler *handlers.DashboardHandler,
	actionHandler *handlers.ActionHandler,
	liveHandler *handlers.LiveHandler,
	systemHandler *handlers.SystemHandler,
	auditHandler *handlers.AuditHandler,
) {
	// ─── Public ──────────────────────────────────────────────────────────
	app.Get("/api/health", systemHandler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	// ─── Auth ────────────────────────────────────────────────────────────
	var apiGuard, pageGuard []fiber.Handler
	if cfg.AuthEnabled() {
		app.Post("/api/auth/login", authHandler.Login)
		app.Post("/api/auth/refresh", authHandler.Refresh)
		app.Get("/login", authHandler.LoginPage)
		app.Post("/login", authHandler.LoginForm)
		app.Post("/logout", authHandler.Logout)

		apiGuard = append(apiGuard, middleware.JWTProtected(cfg.JWTSecret))
		pageGuard = append(pageGuard, middleware.PageProtected(cfg.JWTSecret))
	} else {
		app.Get("/login", func(c *fiber.Ctx) error {
			return c.Redirect("/", fiber.StatusSeeOther)
		})
	}

	// ─── JSON API ────────────────────────────────────────────────────────
	api := app.Group("/api", apiGuard...)

	if cfg.AuthEnabled() {
		api.Get("/auth/me", authHandler.Me)
		api.Put("/auth/password", authHandler.ChangePassword)
	}

	api.Get("/dashboard/servers", dashboardHandler.Snapshot)
	api.Get("/dashboard/servers/:name", dashboardHandler.ServerStatus)

	if auditHandler != nil {
		api.Get("/audit", auditHandler.ListAuditLogs)
	}

	// ─── Dashboard ───────────────────────────────────────────────────────
	page := func(h ...fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, pageGuard...), h...)
	}

	app.Get("/", page(dashboardHandler.Page)...)
	app.Get("/servers/rows", page(dashboardHandler.Rows)...)

	// Actions
	app.Post("/servers", page(actionHandler.AddServer)...)
	app.Post("/servers/:name/power", page(actionHandler.TogglePower)...)
	app.Post("/servers/:name/idle-settings", page(actionHandler.UpdateIdleSettings)...)
	app.Post("/servers/:name/update", page(actionHandler.UpdateServer)...)
	app.Post("/servers/:name/delete", page(actionHandler.DeleteServer)...)

	// Live updates (WebSocket)
	app.Get("/ws", page(liveHandler.UpgradeCheck(), liveHandler.HandleLive())...)
}
