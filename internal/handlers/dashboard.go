package handlers

import (
	"log/slog"

	"github.com/ahmetk3436/powerboard/internal/models"
	"github.com/ahmetk3436/powerboard/internal/services"
	"github.com/ahmetk3436/powerboard/internal/view"
	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	board      *services.Board
	presenter  *view.Presenter
	dispatcher *services.Dispatcher
	title      string
}

func NewDashboardHandler(board *services.Board, presenter *view.Presenter, dispatcher *services.Dispatcher, title string) *DashboardHandler {
	return &DashboardHandler{board: board, presenter: presenter, dispatcher: dispatcher, title: title}
}

// Page renders the full dashboard from the last applied snapshot.
func (h *DashboardHandler) Page(c *fiber.Ctx) error {
	snap := h.board.Snapshot()
	flash, flashOK := takeFlash(c)
	user, _ := c.Locals("display_name").(string)

	return c.Render("dashboard", view.Page{
		Title:     h.title,
		User:      user,
		Flash:     flash,
		FlashOK:   flashOK,
		FetchedAt: h.presenter.Stamp(snap.FetchedAt),
		Table:     h.presenter.Table(snap.Servers),
	})
}

// Rows renders only the table body, for clients that poll instead of using
// the websocket.
func (h *DashboardHandler) Rows(c *fiber.Ctx) error {
	snap := h.board.Snapshot()
	return c.Render("rows", h.presenter.Table(snap.Servers))
}

// Snapshot returns the raw server list together with the rendered rows.
func (h *DashboardHandler) Snapshot(c *fiber.Ctx) error {
	snap := h.board.Snapshot()
	table := h.presenter.Table(snap.Servers)
	lastErr, _ := h.board.LastError()

	resp := fiber.Map{
		"servers":    snap.Servers,
		"rows":       table.Rows,
		"fetched_at": h.presenter.Stamp(snap.FetchedAt),
		"stale":      lastErr != nil,
	}
	if lastErr != nil {
		resp["error"] = lastErr.Error()
	}
	return c.JSON(resp)
}

// ServerStatus asks the backend for the current state of one server.
func (h *DashboardHandler) ServerStatus(c *fiber.Ctx) error {
	name, ok := serverName(c)
	if !ok {
		return badRequest(c, "Server name is required")
	}

	server, err := h.dispatcher.ServerStatus(c.UserContext(), name)
	if err != nil {
		slog.Warn("Failed to get server status", "server", name, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to get server status",
		})
	}

	table := h.presenter.Table([]models.ServerView{*server})
	return c.JSON(fiber.Map{
		"server": server,
		"row":    table.Rows[0],
	})
}
