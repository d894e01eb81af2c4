package handlers

import (
	"strconv"

	"github.com/ahmetk3436/powerboard/internal/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditHandler struct {
	db *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

// ListAuditLogs returns paginated audit logs, filterable by actor, action and
// target server.
func (h *AuditHandler) ListAuditLogs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	perPage, _ := strconv.Atoi(c.Query("per_page", "50"))
	actor := c.Query("actor", "")
	action := c.Query("action", "")
	target := c.Query("target", "")

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	filtered := func() *gorm.DB {
		query := h.db.WithContext(c.UserContext()).Model(&models.AuditLog{})
		if actor != "" {
			query = query.Where("actor = ?", actor)
		}
		if action != "" {
			query = query.Where("action = ?", action)
		}
		if target != "" {
			query = query.Where("target = ?", target)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to count audit logs",
		})
	}

	var logs []models.AuditLog
	if err := filtered().Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to list audit logs",
		})
	}

	return c.JSON(fiber.Map{
		"logs":     logs,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}
