package main

import (
	"fmt"
	"os"
	"strings"

	"journalbe/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// openDB connects to Postgres and optionally runs schema migrations. The
// returned handle is passed into App; nothing holds it globally.
func openDB(cfg Config, log zerolog.Logger) (*gorm.DB, error) {
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is not set; a Postgres DSN is required")
	}
	db, err := gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	// Schema migrations are controlled by DB_AUTO_MIGRATE (default true).
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	if shouldMigrate {
		// Migrate models individually so a failure on one doesn't block others.
		if err := db.AutoMigrate(&models.User{}); err != nil {
			log.Warn().Err(err).Msg("migration warning (users)")
		}
		if err := db.AutoMigrate(&models.Entry{}); err != nil {
			log.Warn().Err(err).Msg("migration warning (entries)")
		}
	}
	return db, nil
}
