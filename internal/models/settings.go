package models

import "time"

// Setting keys stored in the settings table.
const (
	SettingWorkMinutes        = "pomodoro_minutes"
	SettingBreakMinutes       = "break_minutes"
	SettingGraceSeconds       = "grace_period_seconds"
	SettingLogIntervalSeconds = "log_interval_seconds"
)

// Defaults seeded on first run and used whenever a setting cannot be read.
const (
	DefaultWorkMinutes        = 25
	DefaultBreakMinutes       = 5
	DefaultGraceSeconds       = 60
	DefaultLogIntervalSeconds = 30
)

// EngineSettings is the snapshot of behavior settings the session engine
// reads when it (re)configures itself in the idle state.
type EngineSettings struct {
	WorkMinutes        int
	BreakMinutes       int
	GraceSeconds       int
	LogIntervalSeconds int
}

// DefaultEngineSettings returns the documented fallback values.
func DefaultEngineSettings() EngineSettings {
	return EngineSettings{
		WorkMinutes:        DefaultWorkMinutes,
		BreakMinutes:       DefaultBreakMinutes,
		GraceSeconds:       DefaultGraceSeconds,
		LogIntervalSeconds: DefaultLogIntervalSeconds,
	}
}

// WorkDuration returns the configured work period.
func (s EngineSettings) WorkDuration() time.Duration {
	return time.Duration(s.WorkMinutes) * time.Minute
}

// BreakDuration returns the configured break period.
func (s EngineSettings) BreakDuration() time.Duration {
	return time.Duration(s.BreakMinutes) * time.Minute
}
