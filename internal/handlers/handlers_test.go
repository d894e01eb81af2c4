package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestFlashRoundTrip(t *testing.T) {
	app := fiber.New()
	app.Get("/set", func(c *fiber.Ctx) error {
		setFlash(c, "Server srv1: powered off & logged", true)
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/get", func(c *fiber.Ctx) error {
		msg, ok := takeFlash(c)
		return c.JSON(fiber.Map{"msg": msg, "ok": ok})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/set", nil))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/get", nil)
	for _, c := range resp.Cookies() {
		req.AddCookie(c)
	}
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"msg":"Server srv1: powered off & logged","ok":true}`, string(body))
}

func TestServerName(t *testing.T) {
	app := fiber.New()
	app.Get("/servers/:name", func(c *fiber.Ctx) error {
		name, ok := serverName(c)
		if !ok {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		return c.SendString(name)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/servers/rack%201%2Fb", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "rack 1/b", string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/servers/%20", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestIsYes(t *testing.T) {
	for _, v := range []string{"yes", "YES", "true", "on", "1", " yes "} {
		assert.True(t, isYes(v), v)
	}
	for _, v := range []string{"", "no", "false", "0", "maybe"} {
		assert.False(t, isYes(v), v)
	}
}

func TestBuildInitials(t *testing.T) {
	assert.Equal(t, "?", buildInitials(""))
	assert.Equal(t, "G", buildInitials("Grace"))
	assert.Equal(t, "GH", buildInitials("Grace Brewster Hopper"))
}

func TestListAuditLogs(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "audit_logs" WHERE action = \$1`).
		WithArgs("power_off").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "audit_logs" WHERE action = \$1 ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "actor", "action", "target", "success", "details", "created_at"}).
			AddRow(uuid.New().String(), "admin", "power_off", "srv1", true, []byte(`{"message":"ok"}`), time.Now()))

	app := fiber.New()
	app.Get("/api/audit", NewAuditHandler(db).ListAuditLogs)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/audit?action=power_off&per_page=500", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got struct {
		Logs []struct {
			Actor  string `json:"actor"`
			Target string `json:"target"`
		} `json:"logs"`
		Total   int `json:"total"`
		PerPage int `json:"per_page"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, 50, got.PerPage)
	require.Len(t, got.Logs, 1)
	assert.Equal(t, "srv1", got.Logs[0].Target)
	assert.NoError(t, mock.ExpectationsWereMet())
}
