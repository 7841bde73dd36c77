package cmd

import (
	"fmt"
	"time"

	"codefocus/internal/config"
	"codefocus/internal/database"
	"codefocus/internal/models"
)

// loadConfig loads the application configuration, generating the default
// file on first run.
func loadConfig() (*config.Manager, *models.Config, error) {
	manager := config.NewManager()
	cfg, err := manager.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return manager, cfg, nil
}

// openDatabase loads the configuration and opens the activity store.
func openDatabase() (*database.DB, *models.Config, error) {
	_, cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, cfg, nil
}

// parseDateFlag interprets a --date value in local time, defaulting to today.
func parseDateFlag(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}

	date, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", value, err)
	}

	return date, nil
}
