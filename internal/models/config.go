package models

// Config represents the application configuration file
type Config struct {
	General  GeneralConfig  `toml:"general"`
	Database DatabaseConfig `toml:"database"`
	UI       UIConfig       `toml:"ui"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	TickIntervalSeconds int      `toml:"tick_interval_seconds"`
	BrowserProcesses    []string `toml:"browser_processes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// UIConfig contains terminal dashboard settings
type UIConfig struct {
	ShowActivity bool `toml:"show_activity"`
	HistoryDays  int  `toml:"history_days"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			TickIntervalSeconds: 1,
			BrowserProcesses:    []string{"chrome.exe", "msedge.exe", "brave.exe", "firefox.exe"},
		},
		Database: DatabaseConfig{
			Path: "~/.codefocus/codefocus.db",
		},
		UI: UIConfig{
			ShowActivity: true,
			HistoryDays:  7,
		},
	}
}
