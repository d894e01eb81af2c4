package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	VariantInventory = "inventory"
	VariantIdle      = "idle"

	AddServerOptimistic = "optimistic"
	AddServerStrict     = "strict"
)

type Config struct {
	// Server
	Port string

	// Backend (remote server-management API)
	BackendURL     string
	BackendTimeout time.Duration

	// Dashboard behaviour
	Variant         string
	PollInterval    time.Duration
	ConfirmPower    bool
	AddServerPolicy string
	DisplayLocation *time.Location
	TimeOffset      time.Duration

	// Auth (single operator)
	AdminUsername    string
	AdminPassword    string // bcrypt hash is computed at startup
	AdminDisplayName string
	AdminRole        string
	JWTSecret        string

	// Audit database. DatabaseURL, when set, wins over the DB_* parts.
	AuditEnabled   bool
	DatabaseURL    string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	DBLogLevel     string
	DBMaxOpenConns int
}

// Load reads configuration from the environment. A .env file in the working
// directory is honoured when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to read .env file", "error", err)
	}

	variant := strings.ToLower(getEnv("DASHBOARD_VARIANT", VariantInventory))
	if variant != VariantIdle {
		variant = VariantInventory
	}

	defaultInterval, defaultConfirm := "30", "false"
	if variant == VariantIdle {
		defaultInterval, defaultConfirm = "1", "true"
	}

	pollSecs, _ := strconv.Atoi(getEnv("POLL_INTERVAL", defaultInterval))
	if pollSecs < 1 {
		pollSecs = 1
	}
	timeoutSecs, _ := strconv.Atoi(getEnv("BACKEND_TIMEOUT", "10"))
	if timeoutSecs < 1 {
		timeoutSecs = 10
	}
	offsetMins, _ := strconv.Atoi(getEnv("TIME_OFFSET", "0"))

	dbLogLevel := strings.ToLower(getEnv("DB_LOG_LEVEL", "warn"))
	switch dbLogLevel {
	case "silent", "error", "warn", "info":
	default:
		dbLogLevel = "warn"
	}
	maxOpen, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "4"))
	if maxOpen < 1 {
		maxOpen = 4
	}

	policy := strings.ToLower(getEnv("ADD_SERVER_POLICY", AddServerOptimistic))
	if policy != AddServerStrict {
		policy = AddServerOptimistic
	}

	return &Config{
		Port:             getEnv("PORT", "8098"),
		BackendURL:       strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:5001"), "/"),
		BackendTimeout:   time.Duration(timeoutSecs) * time.Second,
		Variant:          variant,
		PollInterval:     time.Duration(pollSecs) * time.Second,
		ConfirmPower:     getBool("CONFIRM_POWER", defaultConfirm),
		AddServerPolicy:  policy,
		DisplayLocation:  loadLocation(getEnv("DISPLAY_TIMEZONE", "Local")),
		TimeOffset:       time.Duration(offsetMins) * time.Minute,
		AdminUsername:    getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:    getEnv("ADMIN_PASSWORD", ""),
		AdminDisplayName: getEnv("ADMIN_DISPLAY_NAME", "Admin"),
		AdminRole:        getEnv("ADMIN_ROLE", "admin"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		AuditEnabled:     getBool("AUDIT_ENABLED", "false"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", ""),
		DBName:           getEnv("DB_NAME", "powerboard_db"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		DBLogLevel:       dbLogLevel,
		DBMaxOpenConns:   maxOpen,
	}
}

// AuthEnabled is false when no JWT secret is configured.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// IdleVariant reports whether the dashboard shows idle columns and the
// idle-settings editor instead of the host column and add-server form.
func (c *Config) IdleVariant() bool {
	return c.Variant == VariantIdle
}

// DatabaseDSN is the postgres connection string for the audit database.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	parts := []string{
		"host=" + dsnValue(c.DBHost),
		"port=" + dsnValue(c.DBPort),
		"user=" + dsnValue(c.DBUser),
		"dbname=" + dsnValue(c.DBName),
		"sslmode=" + dsnValue(c.DBSSLMode),
	}
	if c.DBPassword != "" {
		parts = append(parts, "password="+dsnValue(c.DBPassword))
	}
	return strings.Join(parts, " ")
}

// dsnValue quotes a libpq keyword value when it is empty or holds spaces,
// quotes or backslashes.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key, fallback string) bool {
	b, err := strconv.ParseBool(getEnv(key, fallback))
	if err != nil {
		b, _ = strconv.ParseBool(fallback)
	}
	return b
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("Unknown DISPLAY_TIMEZONE, falling back to UTC", "zone", name, "error", err)
		return time.UTC
	}
	return loc
}
