package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahmetk3436/powerboard/internal/backend"
	"github.com/ahmetk3436/powerboard/internal/config"
	"github.com/ahmetk3436/powerboard/internal/database"
	"github.com/ahmetk3436/powerboard/internal/handlers"
	"github.com/ahmetk3436/powerboard/internal/metrics"
	"github.com/ahmetk3436/powerboard/internal/routes"
	"github.com/ahmetk3436/powerboard/internal/services"
	"github.com/ahmetk3436/powerboard/internal/view"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

func main() {
	// JSON structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting Powerboard", "version", handlers.Version)

	// ─── Config ──────────────────────────────────────────────────────────
	cfg := config.Load()
	slog.Info("Dashboard configured",
		"variant", cfg.Variant,
		"backend", cfg.BackendURL,
		"poll_interval", cfg.PollInterval.String(),
		"confirm_power", cfg.ConfirmPower,
		"add_server_policy", cfg.AddServerPolicy,
		"auth", cfg.AuthEnabled(),
	)

	if !cfg.AuthEnabled() {
		slog.Warn("JWT_SECRET not set, dashboard is open to anyone who can reach it")
	}

	// ─── Audit Database (optional) ───────────────────────────────────────
	var db *gorm.DB
	var auditor services.AuditRecorder
	if cfg.AuditEnabled {
		if err := database.Connect(cfg); err != nil {
			slog.Error("Database connection failed", "error", err)
			os.Exit(1)
		}
		if err := database.Migrate(); err != nil {
			slog.Error("Database migration failed", "error", err)
			os.Exit(1)
		}
		db = database.DB
		auditor = services.NewAuditor(db)
	} else {
		slog.Info("Audit logging disabled")
	}

	// ─── Metrics ─────────────────────────────────────────────────────────
	m := metrics.New()

	// ─── Backend + Board ─────────────────────────────────────────────────
	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	board := services.NewBoard()

	presenter := &view.Presenter{
		IdleVariant: cfg.IdleVariant(),
		Offset:      cfg.TimeOffset,
		Location:    cfg.DisplayLocation,
	}
	engine := view.NewEngine()
	hub := services.NewHub(view.NewRenderer(engine), presenter)
	board.Subscribe(hub.Publish)

	// ─── Poller ──────────────────────────────────────────────────────────
	poller := services.NewPoller(client, board, m, cfg.PollInterval)
	poller.Start(context.Background())

	dispatcher := services.NewDispatcher(client, poller, auditor, m, services.DispatcherOptions{
		ConfirmPower:    cfg.ConfirmPower,
		AddServerPolicy: cfg.AddServerPolicy,
	})

	// ─── Handlers ────────────────────────────────────────────────────────
	title := "Server Power Dashboard"
	if cfg.IdleVariant() {
		title = "Server Idle Dashboard"
	}

	authHandler := handlers.NewAuthHandler(cfg)
	dashboardHandler := handlers.NewDashboardHandler(board, presenter, dispatcher, title)
	actionHandler := handlers.NewActionHandler(dispatcher)
	liveHandler := handlers.NewLiveHandler(hub)
	systemHandler := handlers.NewSystemHandler(db, board, client.BaseURL())
	var auditHandler *handlers.AuditHandler
	if db != nil {
		auditHandler = handlers.NewAuditHandler(db)
	}

	// ─── Fiber App ───────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      "powerboard v" + handlers.Version,
		ServerHeader: "powerboard",
		Views:        engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal server error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": message,
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	app.Use(recover.New(recover.Config{
		EnableStackTrace: false,
	}))

	// Security headers
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Request logger
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		switch c.Path() {
		case "/api/health", "/metrics", "/servers/rows":
			return err
		}
		slog.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.IP(),
		)
		return err
	})

	// ─── Routes ──────────────────────────────────────────────────────────
	routes.Setup(app, cfg, m, authHandler, dashboardHandler, actionHandler,
		liveHandler, systemHandler, auditHandler)

	// ─── Graceful Shutdown ───────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down Powerboard...")

		poller.Stop()

		if err := app.Shutdown(); err != nil {
			slog.Error("Fiber shutdown error", "error", err)
		}

		database.Close()
	}()

	// ─── Start ───────────────────────────────────────────────────────────
	listenAddr := ":" + cfg.Port
	slog.Info("Powerboard listening", "addr", listenAddr)

	if err := app.Listen(listenAddr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}
