package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"codefocus/internal/models"
)

// DB wraps the SQLite database connection and provides the activity log
// store: sessions, activity entries, blacklist rules, and settings.
type DB struct {
	conn   *sql.DB
	dbPath string
}

// NewDB creates a new database instance and initializes the schema
func NewDB(dbPath string) (*DB, error) {
	// Expand ~ in path
	if strings.HasPrefix(dbPath, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, dbPath[2:])
	}

	// Create directory if it doesn't exist
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
	}

	_, statErr := os.Stat(dbPath)
	firstRun := os.IsNotExist(statErr)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	// Single connection keeps the cascade writes serialized
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn:   conn,
		dbPath: dbPath,
	}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	if err := db.seedDefaults(firstRun); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to seed default rows: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// initSchema creates the necessary tables if they don't exist
func (db *DB) initSchema() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.conn.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply pragma: %w", err)
		}
	}

	// Timestamps are stored as unix seconds; all date bucketing happens in
	// Go against explicit range bounds, never via SQL date functions.
	createSessionsTable := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		start_time INTEGER NOT NULL,
		end_time INTEGER,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		mode TEXT NOT NULL DEFAULT 'Pomodoro',
		completed BOOLEAN NOT NULL DEFAULT FALSE
	);`

	if _, err := db.conn.Exec(createSessionsTable); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	createActivityLogsTable := `
	CREATE TABLE IF NOT EXISTS activity_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		timestamp INTEGER NOT NULL,
		process_name TEXT NOT NULL,
		window_title TEXT,
		url TEXT,
		category TEXT NOT NULL DEFAULT 'Work'
	);`

	if _, err := db.conn.Exec(createActivityLogsTable); err != nil {
		return fmt.Errorf("failed to create activity_logs table: %w", err)
	}

	createBlacklistTable := `
	CREATE TABLE IF NOT EXISTS blacklist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		value TEXT UNIQUE NOT NULL,
		type TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`

	if _, err := db.conn.Exec(createBlacklistTable); err != nil {
		return fmt.Errorf("failed to create blacklist table: %w", err)
	}

	createSettingsTable := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`

	if _, err := db.conn.Exec(createSettingsTable); err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}

	createIndexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions(start_time);",
		"CREATE INDEX IF NOT EXISTS idx_activity_logs_session ON activity_logs(session_id);",
		"CREATE INDEX IF NOT EXISTS idx_activity_logs_timestamp ON activity_logs(timestamp);",
	}

	for _, indexSQL := range createIndexes {
		if _, err := db.conn.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// seedDefaults inserts the documented default settings and, on first run
// only, the starter blacklist rules.
func (db *DB) seedDefaults(firstRun bool) error {
	defaults := map[string]string{
		models.SettingWorkMinutes:        strconv.Itoa(models.DefaultWorkMinutes),
		models.SettingBreakMinutes:       strconv.Itoa(models.DefaultBreakMinutes),
		models.SettingGraceSeconds:       strconv.Itoa(models.DefaultGraceSeconds),
		models.SettingLogIntervalSeconds: strconv.Itoa(models.DefaultLogIntervalSeconds),
	}

	for key, value := range defaults {
		query := `INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`
		if _, err := db.conn.Exec(query, key, value); err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", key, err)
		}
	}

	if !firstRun {
		return nil
	}

	starterRules := []models.BlacklistRule{
		{Value: "league of legends", Type: models.RuleApp},
		{Value: "facebook", Type: models.RuleURL},
		{Value: "youtube", Type: models.RuleURL},
		{Value: "tiktok", Type: models.RuleURL},
	}

	for _, rule := range starterRules {
		if err := db.AddRule(rule.Value, rule.Type); err != nil {
			return fmt.Errorf("failed to seed blacklist rule %s: %w", rule.Value, err)
		}
	}

	return nil
}

// CreateSession opens a new session row and returns it
func (db *DB) CreateSession(mode string) (*models.Session, error) {
	session := &models.Session{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
		Mode:      mode,
	}

	query := `
	INSERT INTO sessions (id, start_time, duration_seconds, mode, completed)
	VALUES (?, ?, 0, ?, FALSE)`

	if _, err := db.conn.Exec(query, session.ID, session.StartTime.Unix(), session.Mode); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// CloseSession finalizes an open session with its duration and completion flag
func (db *DB) CloseSession(id string, durationSeconds int, completed bool) error {
	query := `
	UPDATE sessions
	SET end_time = ?, duration_seconds = ?, completed = ?
	WHERE id = ? AND end_time IS NULL`

	result, err := db.conn.Exec(query, time.Now().Unix(), durationSeconds, completed, id)
	if err != nil {
		return fmt.Errorf("failed to close session %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no open session with id %s", id)
	}

	return nil
}

// GetSession returns a session by id
func (db *DB) GetSession(id string) (*models.Session, error) {
	query := `
	SELECT id, start_time, end_time, duration_seconds, mode, completed
	FROM sessions
	WHERE id = ?`

	session, err := scanSession(db.conn.QueryRow(query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}

	return session, nil
}

// DeleteSession removes a session; its activity entries cascade away with it
func (db *DB) DeleteSession(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// AppendEntry persists one classified activity sample. Appending against a
// session id that does not exist is a silent no-op, not an error.
func (db *DB) AppendEntry(entry *models.ActivityLogEntry) error {
	query := `
	INSERT INTO activity_logs (session_id, timestamp, process_name, window_title, url, category)
	SELECT ?, ?, ?, ?, ?, ?
	WHERE EXISTS (SELECT 1 FROM sessions WHERE id = ?)`

	_, err := db.conn.Exec(query,
		entry.SessionID, entry.Timestamp.Unix(), entry.ProcessName,
		entry.WindowTitle, entry.URL, string(entry.Category),
		entry.SessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to append activity entry: %w", err)
	}

	return nil
}

// CountEntries returns the number of activity entries for a session
func (db *DB) CountEntries(sessionID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM activity_logs WHERE session_id = ?`
	if err := db.conn.QueryRow(query, sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// AddRule inserts a blacklist rule. The value is lowercased; uniqueness is
// enforced across both rule types.
func (db *DB) AddRule(value string, ruleType models.RuleType) error {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fmt.Errorf("blacklist value cannot be empty")
	}
	if !ruleType.Valid() {
		return fmt.Errorf("invalid rule type %q", ruleType)
	}

	query := `INSERT INTO blacklist (value, type, created_at) VALUES (?, ?, ?)`
	if _, err := db.conn.Exec(query, value, string(ruleType), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to add blacklist rule %s: %w", value, err)
	}

	return nil
}

// RemoveRule deletes a blacklist rule by value
func (db *DB) RemoveRule(value string) error {
	value = strings.ToLower(strings.TrimSpace(value))
	result, err := db.conn.Exec(`DELETE FROM blacklist WHERE value = ?`, value)
	if err != nil {
		return fmt.Errorf("failed to remove blacklist rule %s: %w", value, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no blacklist rule with value %s", value)
	}

	return nil
}

// ListRules returns all blacklist rules ordered by creation
func (db *DB) ListRules() ([]models.BlacklistRule, error) {
	query := `SELECT id, value, type, created_at FROM blacklist ORDER BY id`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query blacklist rules: %w", err)
	}
	defer rows.Close()

	var rules []models.BlacklistRule
	for rows.Next() {
		var rule models.BlacklistRule
		var ruleType string
		var createdAt int64
		if err := rows.Scan(&rule.ID, &rule.Value, &ruleType, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan blacklist rule: %w", err)
		}
		rule.Type = models.RuleType(ruleType)
		rule.CreatedAt = time.Unix(createdAt, 0)
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blacklist rules: %w", err)
	}

	return rules, nil
}

// Rules returns the current rule values split by type. Read failures yield
// empty sets so classification degrades to "nothing is forbidden" instead
// of halting the tick.
func (db *DB) Rules() (apps, urls []string) {
	rules, err := db.ListRules()
	if err != nil {
		log.Printf("Error reading blacklist rules: %v", err)
		return nil, nil
	}

	for _, rule := range rules {
		switch rule.Type {
		case models.RuleApp:
			apps = append(apps, rule.Value)
		case models.RuleURL:
			urls = append(urls, rule.Value)
		}
	}

	return apps, urls
}

// Setting returns a setting value, or the given default when the key is
// missing or unreadable.
func (db *DB) Setting(key, fallback string) string {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("Error reading setting %s: %v", key, err)
		}
		return fallback
	}
	return value
}

// SetSetting writes a setting value, replacing any existing one
func (db *DB) SetSetting(key, value string) error {
	query := `INSERT INTO settings (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	if _, err := db.conn.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}

	return nil
}

// ListSettings returns all settings as a key/value map
func (db *DB) ListSettings() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}

	return settings, nil
}

// EngineSettings reads the behavior settings the session engine needs.
// Unparseable or missing values fall back to the documented defaults.
func (db *DB) EngineSettings() models.EngineSettings {
	settings := models.DefaultEngineSettings()

	settings.WorkMinutes = db.intSetting(models.SettingWorkMinutes, settings.WorkMinutes)
	settings.BreakMinutes = db.intSetting(models.SettingBreakMinutes, settings.BreakMinutes)
	settings.GraceSeconds = db.intSetting(models.SettingGraceSeconds, settings.GraceSeconds)
	settings.LogIntervalSeconds = db.intSetting(models.SettingLogIntervalSeconds, settings.LogIntervalSeconds)

	return settings
}

func (db *DB) intSetting(key string, fallback int) int {
	raw := db.Setting(key, strconv.Itoa(fallback))
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		log.Printf("Setting %s has invalid value %q, using %d", key, raw, fallback)
		return fallback
	}
	return value
}

// CleanupOldSessions removes sessions older than the specified number of
// days; their activity entries cascade away with them.
func (db *DB) CleanupOldSessions(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).Unix()

	result, err := db.conn.Exec(`DELETE FROM sessions WHERE start_time < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old sessions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// GetDatabasePath returns the database file path
func (db *DB) GetDatabasePath() string {
	return db.dbPath
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	session := &models.Session{}
	var startTime int64
	var endTime sql.NullInt64

	if err := row.Scan(
		&session.ID, &startTime, &endTime,
		&session.DurationSeconds, &session.Mode, &session.Completed,
	); err != nil {
		return nil, err
	}

	session.StartTime = time.Unix(startTime, 0)
	if endTime.Valid {
		end := time.Unix(endTime.Int64, 0)
		session.EndTime = &end
	}

	return session, nil
}
