package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// TokenCookie carries the access token for browser sessions.
const TokenCookie = "access_token"

type Claims struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func GenerateTokens(username, secret, displayName, role string) (string, string, error) {
	// Access token (15 min)
	access, err := signToken(username, secret, displayName, role, 15*time.Minute)
	if err != nil {
		return "", "", err
	}

	// Refresh token (7 days)
	refresh, err := signToken(username, secret, displayName, role, 7*24*time.Hour)
	if err != nil {
		return "", "", err
	}

	return access, refresh, nil
}

// GenerateSessionToken issues the cookie token used by the HTML dashboard.
func GenerateSessionToken(username, secret, displayName, role string) (string, error) {
	return signToken(username, secret, displayName, role, 12*time.Hour)
}

func signToken(username, secret, displayName, role string, ttl time.Duration) (string, error) {
	claims := &Claims{
		Username:    username,
		DisplayName: displayName,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates tokenStr and returns its claims.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// JWTProtected guards JSON endpoints. The token is read from the
// Authorization header, falling back to the session cookie.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   true,
				"message": "Missing authorization header",
			})
		}

		claims, err := ParseToken(tokenStr, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   true,
				"message": "Invalid or expired token",
			})
		}

		setLocals(c, claims)
		return c.Next()
	}
}

// PageProtected guards HTML pages and form posts, redirecting to the login
// page instead of answering 401.
func PageProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, ok := bearerToken(c)
		if !ok {
			return c.Redirect("/login", fiber.StatusSeeOther)
		}
		claims, err := ParseToken(tokenStr, secret)
		if err != nil {
			c.ClearCookie(TokenCookie)
			return c.Redirect("/login", fiber.StatusSeeOther)
		}

		setLocals(c, claims)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	if auth := c.Get("Authorization"); auth != "" {
		tokenStr := strings.TrimPrefix(auth, "Bearer ")
		if tokenStr == auth || tokenStr == "" {
			return "", false
		}
		return tokenStr, true
	}
	if cookie := c.Cookies(TokenCookie); cookie != "" {
		return cookie, true
	}
	return "", false
}

func setLocals(c *fiber.Ctx, claims *Claims) {
	c.Locals("username", claims.Username)
	c.Locals("display_name", claims.DisplayName)
	c.Locals("role", claims.Role)
}
