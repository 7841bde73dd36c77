package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"codefocus/internal/models"
)

// Manager handles configuration loading, validation, and generation
type Manager struct {
	config     *models.Config
	configPath string
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{}
}

// Load loads the configuration from the default or specified path
func (m *Manager) Load(configPath ...string) (*models.Config, error) {
	var path string
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	} else {
		var err error
		path, err = m.getDefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	m.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// First run, write the defaults and continue with them
		return m.generateDefaultConfig(path)
	}

	return m.loadFromFile(path)
}

// loadFromFile loads configuration from the specified file
func (m *Manager) loadFromFile(path string) (*models.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := models.DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := m.validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	m.config = config
	return config, nil
}

// generateDefaultConfig creates a default configuration file
func (m *Manager) generateDefaultConfig(path string) (*models.Config, error) {
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	config := models.DefaultConfig()

	if err := m.saveToFile(config, path); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}

	m.config = config
	return config, nil
}

// saveToFile saves configuration to the specified file
func (m *Manager) saveToFile(config *models.Config, path string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// validateConfig validates the configuration for common issues
func (m *Manager) validateConfig(config *models.Config) error {
	var errors []string

	if config.General.TickIntervalSeconds < 1 {
		errors = append(errors, "tick_interval_seconds must be at least 1 second")
	}
	if len(config.General.BrowserProcesses) == 0 {
		errors = append(errors, "browser_processes cannot be empty")
	}
	for _, proc := range config.General.BrowserProcesses {
		if proc != strings.ToLower(proc) {
			errors = append(errors, fmt.Sprintf("browser process %q must be lowercase", proc))
		}
	}

	if config.Database.Path == "" {
		errors = append(errors, "database path cannot be empty")
	}

	if config.UI.HistoryDays < 1 {
		errors = append(errors, "history_days must be at least 1")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getDefaultConfigPath returns the default configuration file path
func (m *Manager) getDefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".codefocus", "config.toml"), nil
}

// GetConfig returns the loaded configuration
func (m *Manager) GetConfig() *models.Config {
	return m.config
}

// GetConfigPath returns the path to the configuration file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// SaveConfig saves a configuration to the file
func (m *Manager) SaveConfig(config *models.Config) error {
	if m.configPath == "" {
		return fmt.Errorf("no config path set")
	}

	if err := m.validateConfig(config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if err := m.saveToFile(config, m.configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	m.config = config

	return nil
}

// ExpandPath expands ~ in file paths to the user's home directory
func (m *Manager) ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[2:]), nil
}
