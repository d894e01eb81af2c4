package handlers

import (
	"time"

	"github.com/ahmetk3436/powerboard/internal/services"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var startTime = time.Now()
var Version = "1.0.0"

type SystemHandler struct {
	db         *gorm.DB
	board      *services.Board
	backendURL string
}

// NewSystemHandler builds the health handler. db may be nil when auditing is
// disabled.
func NewSystemHandler(db *gorm.DB, board *services.Board, backendURL string) *SystemHandler {
	return &SystemHandler{db: db, board: board, backendURL: backendURL}
}

// Health reports degraded when the backend could not be polled recently or
// the audit database is unreachable. The dashboard keeps serving the last
// snapshot in both cases.
func (h *SystemHandler) Health(c *fiber.Ctx) error {
	statusCode := fiber.StatusOK

	dbStatus := "disabled"
	if h.db != nil {
		dbStatus = "ok"
		sqlDB, err := h.db.DB()
		if err != nil {
			dbStatus = "error: " + err.Error()
			statusCode = fiber.StatusServiceUnavailable
		} else if err := sqlDB.PingContext(c.UserContext()); err != nil {
			dbStatus = "unreachable: " + err.Error()
			statusCode = fiber.StatusServiceUnavailable
		}
	}

	snap := h.board.Snapshot()
	backendStatus := fiber.Map{
		"url":      h.backendURL,
		"status":   "ok",
		"servers":  len(snap.Servers),
		"last_ok":  nil,
		"last_err": nil,
	}
	if !snap.FetchedAt.IsZero() {
		backendStatus["last_ok"] = snap.FetchedAt.UTC().Format(time.RFC3339)
	} else {
		backendStatus["status"] = "pending"
	}
	if lastErr, at := h.board.LastError(); lastErr != nil {
		backendStatus["status"] = "unreachable"
		backendStatus["last_err"] = fiber.Map{
			"message": lastErr.Error(),
			"at":      at.UTC().Format(time.RFC3339),
		}
		statusCode = fiber.StatusServiceUnavailable
	}

	overall := "ok"
	if statusCode != fiber.StatusOK {
		overall = "degraded"
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":  overall,
		"service": "powerboard",
		"version": Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"uptime":  time.Since(startTime).String(),
		"db":      dbStatus,
		"backend": backendStatus,
	})
}
