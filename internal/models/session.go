package models

import "time"

// SessionMode identifies the kind of focus cycle a session represents.
// Only the classic pomodoro cycle exists today.
const ModePomodoro = "Pomodoro"

// Category classifies a logged activity sample.
type Category string

const (
	CategoryWork        Category = "Work"
	CategoryDistraction Category = "Distraction"
)

// Session represents one focus-period attempt, complete or aborted.
type Session struct {
	ID              string     `db:"id"`               // UUID string
	StartTime       time.Time  `db:"start_time"`
	EndTime         *time.Time `db:"end_time"`         // nil while the session is open
	DurationSeconds int        `db:"duration_seconds"` // meaningful once closed
	Mode            string     `db:"mode"`
	Completed       bool       `db:"completed"` // true when the timer ran out naturally
}

// Open returns true while the session has not been closed.
func (s *Session) Open() bool {
	return s.EndTime == nil
}

// Duration returns the recorded session length.
func (s *Session) Duration() time.Duration {
	return time.Duration(s.DurationSeconds) * time.Second
}

// DurationMinutes returns the recorded session length in whole minutes.
func (s *Session) DurationMinutes() int {
	return s.DurationSeconds / 60
}

// ActivityLogEntry is one classified observation tied to a session.
type ActivityLogEntry struct {
	ID          int64     `db:"id"`
	SessionID   string    `db:"session_id"`
	Timestamp   time.Time `db:"timestamp"`
	ProcessName string    `db:"process_name"`
	WindowTitle *string   `db:"window_title"`
	URL         *string   `db:"url"`
	Category    Category  `db:"category"`
}

// Title returns the window title, or the process name when no title was captured.
func (e *ActivityLogEntry) Title() string {
	if e.WindowTitle != nil && *e.WindowTitle != "" {
		return *e.WindowTitle
	}
	return e.ProcessName
}
