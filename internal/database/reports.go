package database

import (
	"fmt"
	"time"

	"codefocus/internal/models"
)

// topAppsLimit caps the per-day breakdown at the most frequent window titles.
const topAppsLimit = 15

// Health report thresholds.
const (
	overworkThresholdMinutes    = 480
	distractionThresholdEntries = 20
)

// DayBounds returns the half-open [start, end) range covering the calendar
// day of t in local time. All report queries scope themselves through this
// so the timezone policy lives in exactly one place.
func DayBounds(t time.Time) (time.Time, time.Time) {
	t = t.Local()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// DayKey formats a time as the YYYY-MM-DD bucket key used in reports.
func DayKey(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

// TotalWorkSeconds sums the recorded durations of pomodoro sessions that
// started on the given calendar day.
func (db *DB) TotalWorkSeconds(date time.Time) (int, error) {
	start, end := DayBounds(date)

	query := `
	SELECT COALESCE(SUM(duration_seconds), 0)
	FROM sessions
	WHERE start_time >= ? AND start_time < ? AND mode = ?`

	var total int
	err := db.conn.QueryRow(query, start.Unix(), end.Unix(), models.ModePomodoro).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum work seconds: %w", err)
	}

	return total, nil
}

// AppStat is one window-title bucket in a daily breakdown.
type AppStat struct {
	Title       string          `json:"title"`
	ProcessName string          `json:"process_name"`
	Category    models.Category `json:"category"`
	Count       int             `json:"count"`
}

// DailyBreakdown lists a day's sessions and its most frequent window titles.
type DailyBreakdown struct {
	Date     string           `json:"date"`
	Sessions []models.Session `json:"sessions"`
	TopApps  []AppStat        `json:"top_apps"`
}

// GetDailyBreakdown returns the sessions starting on the given day plus the
// top window titles by entry count, ties broken by insertion order.
func (db *DB) GetDailyBreakdown(date time.Time) (*DailyBreakdown, error) {
	start, end := DayBounds(date)

	breakdown := &DailyBreakdown{Date: DayKey(date)}

	sessionQuery := `
	SELECT id, start_time, end_time, duration_seconds, mode, completed
	FROM sessions
	WHERE start_time >= ? AND start_time < ?
	ORDER BY start_time`

	rows, err := db.conn.Query(sessionQuery, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		breakdown.Sessions = append(breakdown.Sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily sessions: %w", err)
	}

	appQuery := `
	SELECT COALESCE(window_title, process_name) AS title, process_name, category, COUNT(*) AS entries
	FROM activity_logs
	WHERE timestamp >= ? AND timestamp < ?
	GROUP BY window_title
	ORDER BY entries DESC, MIN(id) ASC
	LIMIT ?`

	appRows, err := db.conn.Query(appQuery, start.Unix(), end.Unix(), topAppsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query app stats: %w", err)
	}
	defer appRows.Close()

	for appRows.Next() {
		var stat AppStat
		var category string
		if err := appRows.Scan(&stat.Title, &stat.ProcessName, &category, &stat.Count); err != nil {
			return nil, fmt.Errorf("failed to scan app stat: %w", err)
		}
		stat.Category = models.Category(category)
		breakdown.TopApps = append(breakdown.TopApps, stat)
	}
	if err := appRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating app stats: %w", err)
	}

	return breakdown, nil
}

// HealthStatus classifies a working day.
type HealthStatus string

const (
	HealthNoData     HealthStatus = "no_data"
	HealthOverwork   HealthStatus = "overwork"
	HealthDistracted HealthStatus = "distracted"
	HealthNormal     HealthStatus = "normal"
)

// HealthReport is the daily advisory produced from work totals and
// distraction counts.
type HealthReport struct {
	Status           HealthStatus `json:"status"`
	Advice           string       `json:"advice"`
	Color            string       `json:"color"`
	TotalMinutes     int          `json:"total_minutes"`
	DistractionCount int          `json:"distraction_count"`
}

// GetHealthReport classifies a day. Precedence: no data, then overwork,
// then distracted, else normal.
func (db *DB) GetHealthReport(date time.Time) (*HealthReport, error) {
	totalSeconds, err := db.TotalWorkSeconds(date)
	if err != nil {
		return nil, err
	}

	start, end := DayBounds(date)
	countQuery := `
	SELECT COUNT(*)
	FROM activity_logs
	WHERE timestamp >= ? AND timestamp < ? AND category = ?`

	var distractionCount int
	err = db.conn.QueryRow(countQuery, start.Unix(), end.Unix(), string(models.CategoryDistraction)).
		Scan(&distractionCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count distraction entries: %w", err)
	}

	report := &HealthReport{
		TotalMinutes:     totalSeconds / 60,
		DistractionCount: distractionCount,
	}

	switch {
	case report.TotalMinutes == 0:
		report.Status = HealthNoData
		report.Advice = "No work recorded for this day yet."
		report.Color = "#94a3b8"
	case report.TotalMinutes > overworkThresholdMinutes:
		report.Status = HealthOverwork
		report.Advice = "You have worked past 8 hours. Step away and rest."
		report.Color = "#ef4444"
	case report.DistractionCount > distractionThresholdEntries:
		report.Status = HealthDistracted
		report.Advice = "Focus slipped today. Cut the distractions short."
		report.Color = "#f59e0b"
	default:
		report.Status = HealthNormal
		report.Advice = "Great form. A focused, healthy working day."
		report.Color = "#10b981"
	}

	return report, nil
}

// DailyTotal is one point in a historical work-time series.
type DailyTotal struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Minutes int    `json:"minutes"`
}

// GetHistoricalSeries returns work minutes per day for the last `days` days
// plus today, oldest first. Every date in range is present, zero-filled when
// no pomodoro session started that day; dates outside the range never appear.
func (db *DB) GetHistoricalSeries(days int) ([]DailyTotal, error) {
	if days < 0 {
		days = 0
	}

	todayStart, todayEnd := DayBounds(time.Now())
	rangeStart := todayStart.AddDate(0, 0, -days)

	series := make([]DailyTotal, 0, days+1)
	index := make(map[string]int, days+1)
	for i := 0; i <= days; i++ {
		day := rangeStart.AddDate(0, 0, i)
		key := DayKey(day)
		index[key] = len(series)
		series = append(series, DailyTotal{Date: key})
	}
	seconds := make([]int, len(series))

	query := `
	SELECT start_time, duration_seconds
	FROM sessions
	WHERE start_time >= ? AND start_time < ? AND mode = ?`

	rows, err := db.conn.Query(query, rangeStart.Unix(), todayEnd.Unix(), models.ModePomodoro)
	if err != nil {
		return nil, fmt.Errorf("failed to query historical sessions: %w", err)
	}
	defer rows.Close()

	// Bucket per row in Go so the day boundary logic stays in DayKey
	for rows.Next() {
		var startUnix int64
		var durationSeconds int
		if err := rows.Scan(&startUnix, &durationSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan historical session: %w", err)
		}

		key := DayKey(time.Unix(startUnix, 0))
		if i, ok := index[key]; ok {
			seconds[i] += durationSeconds
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating historical sessions: %w", err)
	}

	// Sum the day's seconds first, convert to minutes once
	for i := range series {
		series[i].Minutes = seconds[i] / 60
	}

	return series, nil
}

// GetActivityCounts returns the work and distraction entry counts for the
// given day, for the dashboard's at-a-glance split.
func (db *DB) GetActivityCounts(date time.Time) (work, distraction int, err error) {
	start, end := DayBounds(date)

	query := `
	SELECT category, COUNT(*)
	FROM activity_logs
	WHERE timestamp >= ? AND timestamp < ?
	GROUP BY category`

	rows, err := db.conn.Query(query, start.Unix(), end.Unix())
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query activity counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return 0, 0, fmt.Errorf("failed to scan activity count: %w", err)
		}
		switch models.Category(category) {
		case models.CategoryWork:
			work = count
		case models.CategoryDistraction:
			distraction = count
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("error iterating activity counts: %w", err)
	}

	return work, distraction, nil
}
