package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetk3436/powerboard/internal/config"
	"github.com/ahmetk3436/powerboard/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the audit database. It is only called when AUDIT_ENABLED is
// set; the dashboard itself persists nothing else.
func Connect(cfg *config.Config) error {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(cfg.DBLogLevel)),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	// Audit writes are one insert per operator action.
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	DB = db
	if cfg.DatabaseURL != "" {
		slog.Info("Database connected", "source", "DATABASE_URL")
	} else {
		slog.Info("Database connected", "host", cfg.DBHost, "db", cfg.DBName)
	}
	return nil
}

func Migrate() error {
	return DB.AutoMigrate(
		&models.AuditLog{},
	)
}

func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		sqlDB.Close()
	}
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
