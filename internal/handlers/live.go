package handlers

import (
	"log/slog"

	"github.com/ahmetk3436/powerboard/internal/services"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type LiveHandler struct {
	hub *services.Hub
}

func NewLiveHandler(hub *services.Hub) *LiveHandler {
	return &LiveHandler{hub: hub}
}

// UpgradeCheck is middleware that checks if the request is a websocket upgrade
func (h *LiveHandler) UpgradeCheck() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// HandleLive streams a fresh table body after every applied poll until the
// browser goes away.
func (h *LiveHandler) HandleLive() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		id, updates := h.hub.Register()
		defer h.hub.Unregister(id)

		slog.Info("Live client connected", "client", id, "clients", h.hub.Clients())

		done := make(chan struct{})

		// Incoming messages are ignored; reading detects the close.
		go func() {
			defer close(done)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				slog.Info("Live client disconnected", "client", id)
				return
			case msg, ok := <-updates:
				if !ok {
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					slog.Debug("Live write failed", "client", id, "error", err)
					return
				}
			}
		}
	})
}
