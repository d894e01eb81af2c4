package handlers

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ahmetk3436/powerboard/internal/config"
	"github.com/ahmetk3436/powerboard/internal/middleware"
	"github.com/ahmetk3436/powerboard/internal/view"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	cfg *config.Config

	mu           sync.RWMutex
	passwordHash string
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	// Hash the admin password on startup
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash admin password", "error", err)
	}
	return &AuthHandler{
		cfg:          cfg,
		passwordHash: string(hash),
	}
}

func (h *AuthHandler) checkCredentials(username, password string) bool {
	if username != h.cfg.AdminUsername {
		return false
	}
	h.mu.RLock()
	hash := h.passwordHash
	h.mu.RUnlock()
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if !h.checkCredentials(req.Username, req.Password) {
		slog.Warn("Failed login attempt", "username", req.Username, "ip", c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid credentials",
		})
	}

	access, refresh, err := middleware.GenerateTokens(req.Username, h.cfg.JWTSecret, h.cfg.AdminDisplayName, h.cfg.AdminRole)
	if err != nil {
		slog.Error("Failed to generate tokens", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to generate tokens",
		})
	}

	return c.JSON(fiber.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          userInfo(req.Username, h.cfg.AdminDisplayName, h.cfg.AdminRole),
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	claims, err := middleware.ParseToken(req.RefreshToken, h.cfg.JWTSecret)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid or expired refresh token",
		})
	}

	access, refresh, err := middleware.GenerateTokens(claims.Username, h.cfg.JWTSecret, claims.DisplayName, claims.Role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to generate tokens",
		})
	}

	return c.JSON(fiber.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          userInfo(claims.Username, claims.DisplayName, claims.Role),
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	displayName, _ := c.Locals("display_name").(string)
	role, _ := c.Locals("role").(string)

	return c.JSON(userInfo(username, displayName, role))
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		return badRequest(c, "Both old_password and new_password are required")
	}
	if len(req.NewPassword) < 8 {
		return badRequest(c, "New password must be at least 8 characters")
	}

	if !h.checkCredentials(h.cfg.AdminUsername, req.OldPassword) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Current password is incorrect",
		})
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash new password", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to update password",
		})
	}

	h.mu.Lock()
	h.passwordHash = string(newHash)
	h.mu.Unlock()
	slog.Info("Admin password changed successfully")

	return c.JSON(fiber.Map{
		"message": "Password changed successfully",
	})
}

// LoginPage serves the browser login form.
func (h *AuthHandler) LoginPage(c *fiber.Ctx) error {
	return c.Render("login", view.LoginPage{})
}

// LoginForm handles the browser login form and sets the session cookie.
func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	username := c.FormValue("username")
	if !h.checkCredentials(username, c.FormValue("password")) {
		slog.Warn("Failed login attempt", "username", username, "ip", c.IP())
		return c.Status(fiber.StatusUnauthorized).Render("login", view.LoginPage{Error: "Invalid credentials"})
	}

	token, err := middleware.GenerateSessionToken(username, h.cfg.JWTSecret, h.cfg.AdminDisplayName, h.cfg.AdminRole)
	if err != nil {
		slog.Error("Failed to generate session token", "error", err)
		return c.Status(fiber.StatusInternalServerError).Render("login", view.LoginPage{Error: "Login failed"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(12 * time.Hour),
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.ClearCookie(middleware.TokenCookie)
	return c.Redirect("/login", fiber.StatusSeeOther)
}

func userInfo(username, displayName, role string) fiber.Map {
	return fiber.Map{
		"username":        username,
		"display_name":    displayName,
		"role":            role,
		"avatar_initials": buildInitials(displayName),
	}
}

// buildInitials extracts uppercase initials from a display name.
// e.g. "Grace Hopper" -> "GH", "Grace" -> "G"
func buildInitials(name string) string {
	if name == "" {
		return "?"
	}
	initials := ""
	for _, p := range strings.Fields(name) {
		initials += strings.ToUpper(p[:1])
	}
	if len(initials) > 2 {
		initials = initials[:2]
	}
	return initials
}
