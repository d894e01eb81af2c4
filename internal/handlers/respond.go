package handlers

import (
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const flashCookie = "flash"

// wantsJSON is true for API callers; browsers posting forms get redirects.
func wantsJSON(c *fiber.Ctx) bool {
	return c.Is("json") || strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON)
}

// serverName returns the unescaped :name route parameter.
func serverName(c *fiber.Ctx) (string, bool) {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil || strings.TrimSpace(name) == "" {
		return "", false
	}
	return name, true
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

// setFlash stores a one-shot notification shown on the next page load.
func setFlash(c *fiber.Ctx, message string, ok bool) {
	prefix := "err:"
	if ok {
		prefix = "ok:"
	}
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(prefix + message),
		Path:     "/",
		Expires:  time.Now().Add(time.Minute),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// takeFlash reads and clears the notification set by setFlash.
func takeFlash(c *fiber.Ctx) (string, bool) {
	raw := c.Cookies(flashCookie)
	if raw == "" {
		return "", false
	}
	c.ClearCookie(flashCookie)

	value, err := url.QueryUnescape(raw)
	if err != nil {
		return "", false
	}
	if msg, found := strings.CutPrefix(value, "ok:"); found {
		return msg, true
	}
	return strings.TrimPrefix(value, "err:"), false
}
