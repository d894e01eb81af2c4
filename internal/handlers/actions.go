package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/ahmetk3436/powerboard/internal/models"
	"github.com/ahmetk3436/powerboard/internal/services"
	"github.com/ahmetk3436/powerboard/internal/view"
	"github.com/gofiber/fiber/v2"
)

type ActionHandler struct {
	dispatcher *services.Dispatcher
}

func NewActionHandler(dispatcher *services.Dispatcher) *ActionHandler {
	return &ActionHandler{dispatcher: dispatcher}
}

// TogglePower flips the power state that was displayed when the operator
// clicked. When confirmation is enabled the first post answers with a
// confirmation page (or 409 for JSON callers) and nothing is sent.
func (h *ActionHandler) TogglePower(c *fiber.Ctx) error {
	name, ok := serverName(c)
	if !ok {
		return badRequest(c, "Server name is required")
	}

	var req struct {
		State   string `json:"state" form:"state"`
		Confirm string `json:"confirm" form:"confirm"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	displayed := models.PowerState(req.State)
	confirmed := isYes(req.Confirm)
	outcome, err := h.dispatcher.TogglePower(actorContext(c), name, displayed, func(string) bool {
		return confirmed
	})

	if errors.Is(err, services.ErrNotConfirmed) {
		if wantsJSON(c) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"message": services.PowerPrompt(name, displayed),
				"confirm": true,
			})
		}
		return c.Render("confirm", view.ConfirmPage{
			Name:   name,
			State:  string(displayed),
			Action: string(displayed.Inverse()),
		})
	}
	return h.respond(c, outcome, err)
}

// UpdateIdleSettings accepts either JSON or the dashboard's inline form.
func (h *ActionHandler) UpdateIdleSettings(c *fiber.Ctx) error {
	name, ok := serverName(c)
	if !ok {
		return badRequest(c, "Server name is required")
	}

	threshold, autoShutdown, err := parseIdleSettings(c)
	if err != nil {
		// Zero fails validation and yields the operator-facing message.
		threshold = 0
	}

	outcome, err := h.dispatcher.UpdateIdleSettings(actorContext(c), name, threshold, autoShutdown)
	return h.respond(c, outcome, err)
}

type serverRequest struct {
	Name     string `json:"name" form:"name"`
	IPMIHost string `json:"ipmi_host" form:"ipmi_host"`
	IPMIUser string `json:"ipmi_user" form:"ipmi_user"`
	IPMIPass string `json:"ipmi_pass" form:"ipmi_pass"`
}

func (h *ActionHandler) AddServer(c *fiber.Ctx) error {
	var req serverRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	outcome, err := h.dispatcher.AddServer(actorContext(c), models.ServerCreate{
		Name:     strings.TrimSpace(req.Name),
		IPMIHost: strings.TrimSpace(req.IPMIHost),
		IPMIUser: req.IPMIUser,
		IPMIPass: req.IPMIPass,
	})
	return h.respond(c, outcome, err)
}

// UpdateServer forwards only the fields that were filled in.
func (h *ActionHandler) UpdateServer(c *fiber.Ctx) error {
	name, ok := serverName(c)
	if !ok {
		return badRequest(c, "Server name is required")
	}

	var req serverRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	update := models.ServerUpdate{
		IPMIHost: optional(strings.TrimSpace(req.IPMIHost)),
		IPMIUser: optional(req.IPMIUser),
		IPMIPass: optional(req.IPMIPass),
	}
	outcome, err := h.dispatcher.UpdateServer(actorContext(c), name, update)
	return h.respond(c, outcome, err)
}

func (h *ActionHandler) DeleteServer(c *fiber.Ctx) error {
	name, ok := serverName(c)
	if !ok {
		return badRequest(c, "Server name is required")
	}

	outcome, err := h.dispatcher.DeleteServer(actorContext(c), name)
	return h.respond(c, outcome, err)
}

// respond answers JSON callers with {success, message} and browsers with a
// redirect back to the dashboard carrying a flash message.
func (h *ActionHandler) respond(c *fiber.Ctx, outcome *services.Outcome, err error) error {
	if err != nil {
		message := "Internal server error"
		status := fiber.StatusInternalServerError
		var actionErr *services.ActionError
		if errors.As(err, &actionErr) {
			message = actionErr.Message
			status = fiber.StatusBadGateway
			if actionErr.Err == nil {
				status = fiber.StatusBadRequest
			}
		}
		if wantsJSON(c) {
			return c.Status(status).JSON(fiber.Map{
				"success": false,
				"message": message,
			})
		}
		setFlash(c, message, false)
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	if wantsJSON(c) {
		return c.JSON(fiber.Map{
			"success": true,
			"message": outcome.Message,
		})
	}
	if outcome.Message != "" {
		setFlash(c, outcome.Message, true)
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

// parseIdleSettings reads the threshold and the auto-shutdown flag. A JSON
// body may leave the flag out; the form always carries the full state.
func parseIdleSettings(c *fiber.Ctx) (int, *bool, error) {
	if c.Is("json") {
		var req struct {
			IdleThresholdMins   *int  `json:"idle_threshold_mins"`
			AutoShutdownEnabled *bool `json:"auto_shutdown_enabled"`
		}
		if err := c.BodyParser(&req); err != nil {
			return 0, nil, err
		}
		if req.IdleThresholdMins == nil {
			return 0, nil, errors.New("idle_threshold_mins is required")
		}
		return *req.IdleThresholdMins, req.AutoShutdownEnabled, nil
	}

	// Unchecked checkboxes are not submitted at all.
	auto := isYes(c.FormValue("auto_shutdown_enabled"))
	threshold, err := strconv.Atoi(strings.TrimSpace(c.FormValue("idle_threshold_mins")))
	if err != nil {
		return 0, &auto, err
	}
	return threshold, &auto, nil
}

func actorContext(c *fiber.Ctx) context.Context {
	username, _ := c.Locals("username").(string)
	return services.WithActor(c.UserContext(), username)
}

func isYes(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "on", "1":
		return true
	}
	return false
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
