package tracker

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefocus/internal/models"
)

type closedSession struct {
	durationSeconds int
	completed       bool
}

// fakeStore is an in-memory SessionStore for driving the engine directly.
type fakeStore struct {
	settings  models.EngineSettings
	apps      []string
	urls      []string
	sessions  map[string]*models.Session
	closed    map[string]closedSession
	entries   []*models.ActivityLogEntry
	createErr error
	nextID    int
}

func newFakeStore(settings models.EngineSettings) *fakeStore {
	return &fakeStore{
		settings: settings,
		sessions: make(map[string]*models.Session),
		closed:   make(map[string]closedSession),
	}
}

func (s *fakeStore) CreateSession(mode string) (*models.Session, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextID++
	session := &models.Session{
		ID:        fmt.Sprintf("session-%d", s.nextID),
		StartTime: time.Now(),
		Mode:      mode,
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *fakeStore) CloseSession(id string, durationSeconds int, completed bool) error {
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("no session %s", id)
	}
	s.closed[id] = closedSession{durationSeconds: durationSeconds, completed: completed}
	return nil
}

func (s *fakeStore) AppendEntry(entry *models.ActivityLogEntry) error {
	if _, ok := s.sessions[entry.SessionID]; !ok {
		return nil // absent session is a silent no-op, like the real store
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeStore) EngineSettings() models.EngineSettings {
	return s.settings
}

func (s *fakeStore) Rules() (apps, urls []string) {
	return s.apps, s.urls
}

func testSettings() models.EngineSettings {
	return models.EngineSettings{
		WorkMinutes:        25,
		BreakMinutes:       5,
		GraceSeconds:       60,
		LogIntervalSeconds: 30,
	}
}

func collectEvents(engine *Engine) *[]Event {
	events := &[]Event{}
	engine.AddListener(func(event Event) {
		*events = append(*events, event)
	})
	return events
}

func eventsOfKind(events []Event, kind EventKind) []Event {
	var matched []Event
	for _, event := range events {
		if event.Kind == kind {
			matched = append(matched, event)
		}
	}
	return matched
}

func workSample(process, title string) Sample {
	return Sample{Time: time.Now(), ProcessName: process, WindowTitle: title}
}

func TestStartSessionEntersWorking(t *testing.T) {
	store := newFakeStore(testSettings())
	engine := NewEngine(store)
	events := collectEvents(engine)

	require.NoError(t, engine.StartSession())

	snapshot := engine.Snapshot()
	assert.Equal(t, StateWorking, snapshot.State)
	assert.Equal(t, 25*60, snapshot.CountdownSeconds)
	assert.NotEmpty(t, snapshot.SessionID)
	assert.Len(t, eventsOfKind(*events, EventEnteredWorking), 1)

	// Only one session may ever be open
	assert.Error(t, engine.StartSession())
}

func TestNaturalExpiryClosesCompletedSession(t *testing.T) {
	settings := testSettings()
	settings.WorkMinutes = 1
	settings.BreakMinutes = 1
	store := newFakeStore(settings)
	engine := NewEngine(store)
	events := collectEvents(engine)

	require.NoError(t, engine.StartSession())
	sessionID := engine.Snapshot().SessionID

	engine.handleSample(workSample("code.exe", "main.go"))
	for i := 0; i < 60; i++ {
		engine.tick()
	}

	assert.Equal(t, StateBreak, engine.Snapshot().State)
	assert.Equal(t, 60, engine.Snapshot().CountdownSeconds)

	closed, ok := store.closed[sessionID]
	require.True(t, ok, "session should be closed")
	assert.Equal(t, 60, closed.durationSeconds)
	assert.True(t, closed.completed)

	// Break runs out back to idle, with no session created for it
	for i := 0; i < 60; i++ {
		engine.tick()
	}
	assert.Equal(t, StateIdle, engine.Snapshot().State)
	assert.Len(t, store.sessions, 1)
	assert.Len(t, eventsOfKind(*events, EventEnteredBreak), 1)
	assert.Len(t, eventsOfKind(*events, EventEnteredIdle), 1)
}

func TestManualStopRecordsElapsedDuration(t *testing.T) {
	store := newFakeStore(testSettings())
	engine := NewEngine(store)

	require.NoError(t, engine.StartSession())
	sessionID := engine.Snapshot().SessionID

	engine.handleSample(workSample("code.exe", "main.go"))
	for i := 0; i < 10; i++ {
		engine.tick()
	}

	require.NoError(t, engine.StopSession())

	assert.Equal(t, StateIdle, engine.Snapshot().State)
	closed, ok := store.closed[sessionID]
	require.True(t, ok)
	assert.Equal(t, 10, closed.durationSeconds)
	assert.False(t, closed.completed)
}

func TestStopOnlyValidWhileWorking(t *testing.T) {
	store := newFakeStore(testSettings())
	engine := NewEngine(store)

	assert.Error(t, engine.StopSession())
	assert.Error(t, engine.Unlock())
}

// 70 consecutive forbidden seconds against a 60 second grace period:
// exactly one penalty lands on the 60th forbidden tick, the counter
// resets, and the session stays open.
func TestSustainedForbiddenActivityLocks(t *testing.T) {
	store := newFakeStore(testSettings())
	store.urls = []string{"facebook"}
	engine := NewEngine(store)
	events := collectEvents(engine)

	require.NoError(t, engine.StartSession())
	sessionID := engine.Snapshot().SessionID

	engine.handleSample(workSample("chrome.exe", "Facebook - Home"))
	lockedAt := 0
	for i := 1; i <= 70; i++ {
		engine.tick()
		if lockedAt == 0 && engine.Snapshot().State == StateLocked {
			lockedAt = i
		}
	}

	assert.Equal(t, 60, lockedAt, "penalty should land on the 60th forbidden tick")
	assert.Equal(t, StateLocked, engine.Snapshot().State)
	assert.Equal(t, 0, engine.Snapshot().ViolationCount)
	assert.Len(t, eventsOfKind(*events, EventEnteredLocked), 1)

	// 59 warnings preceded the penalty, counting down the grace window
	warnings := eventsOfKind(*events, EventWarning)
	require.Len(t, warnings, 59)
	assert.Equal(t, 59, warnings[0].Remaining)
	assert.Equal(t, 1, warnings[58].Remaining)

	// The session is not closed by a lock
	_, closed := store.closed[sessionID]
	assert.False(t, closed)
}

func TestRecoveredAfterShortViolation(t *testing.T) {
	store := newFakeStore(testSettings())
	store.apps = []string{"steam.exe"}
	engine := NewEngine(store)
	events := collectEvents(engine)

	require.NoError(t, engine.StartSession())

	engine.handleSample(workSample("steam.exe", "Steam"))
	engine.tick()
	engine.tick()

	engine.handleSample(workSample("code.exe", "main.go"))
	engine.tick()

	assert.Equal(t, StateWorking, engine.Snapshot().State)
	assert.Len(t, eventsOfKind(*events, EventRecovered), 1)
	assert.Equal(t, 0, engine.Snapshot().ViolationCount)
}

func TestUnlockResumesWithoutNewSession(t *testing.T) {
	settings := testSettings()
	settings.GraceSeconds = 2
	store := newFakeStore(settings)
	store.apps = []string{"steam.exe"}
	engine := NewEngine(store)

	require.NoError(t, engine.StartSession())
	sessionID := engine.Snapshot().SessionID

	engine.handleSample(workSample("steam.exe", "Steam"))
	engine.tick()
	engine.tick()
	require.Equal(t, StateLocked, engine.Snapshot().State)
	countdownAtLock := engine.Snapshot().CountdownSeconds

	// The countdown keeps running while locked; violations are not observed
	engine.tick()
	assert.Equal(t, countdownAtLock-1, engine.Snapshot().CountdownSeconds)
	assert.Equal(t, StateLocked, engine.Snapshot().State)

	require.NoError(t, engine.Unlock())
	assert.Equal(t, StateWorking, engine.Snapshot().State)
	assert.Equal(t, sessionID, engine.Snapshot().SessionID, "unlock must not create a session")
	assert.Len(t, store.sessions, 1)
}

func TestLogIntervalProducesOneEntryPerWindow(t *testing.T) {
	settings := testSettings()
	settings.WorkMinutes = 1
	settings.LogIntervalSeconds = 30
	store := newFakeStore(settings)
	engine := NewEngine(store)

	require.NoError(t, engine.StartSession())
	engine.handleSample(workSample("code.exe", "main.go"))

	// 60 seconds at a 30 second interval is exactly two full windows
	for i := 0; i < 60; i++ {
		engine.tick()
	}

	require.Len(t, store.entries, 2)
	for _, entry := range store.entries {
		assert.Equal(t, models.CategoryWork, entry.Category)
		assert.Equal(t, "code.exe", entry.ProcessName)
		require.NotNil(t, entry.WindowTitle)
		assert.Equal(t, "main.go", *entry.WindowTitle)
	}
}

func TestManualStopFlushesTrailingPartialWindow(t *testing.T) {
	store := newFakeStore(testSettings())
	engine := NewEngine(store)

	require.NoError(t, engine.StartSession())
	engine.handleSample(workSample("code.exe", "main.go"))

	// One full window plus a 15 second remainder
	for i := 0; i < 45; i++ {
		engine.tick()
	}
	require.NoError(t, engine.StopSession())

	assert.Len(t, store.entries, 2)
}

func TestLoggingContinuitySpansLockPeriods(t *testing.T) {
	settings := testSettings()
	settings.GraceSeconds = 5
	settings.LogIntervalSeconds = 30
	store := newFakeStore(settings)
	store.apps = []string{"steam.exe"}
	engine := NewEngine(store)

	require.NoError(t, engine.StartSession())

	// 10 clean ticks, then a lock after 5 forbidden ones
	engine.handleSample(workSample("code.exe", "main.go"))
	for i := 0; i < 10; i++ {
		engine.tick()
	}
	engine.handleSample(workSample("steam.exe", "Steam"))
	for i := 0; i < 5; i++ {
		engine.tick()
	}
	require.Equal(t, StateLocked, engine.Snapshot().State)

	// The throttle keeps counting through the lock: 15 more ticks complete
	// the first 30 second window
	for i := 0; i < 15; i++ {
		engine.tick()
	}

	require.Len(t, store.entries, 1)
	assert.Equal(t, models.CategoryDistraction, store.entries[0].Category)
}

func TestDistractionCategoryDerivedAtFlush(t *testing.T) {
	settings := testSettings()
	settings.LogIntervalSeconds = 5
	settings.GraceSeconds = 60
	store := newFakeStore(settings)
	store.urls = []string{"youtube"}
	engine := NewEngine(store)

	require.NoError(t, engine.StartSession())

	engine.handleSample(workSample("chrome.exe", "YouTube - Music"))
	for i := 0; i < 5; i++ {
		engine.tick()
	}

	require.Len(t, store.entries, 1)
	assert.Equal(t, models.CategoryDistraction, store.entries[0].Category)
}

func TestPersistenceFailureNeverHaltsTheSession(t *testing.T) {
	store := newFakeStore(testSettings())
	store.createErr = errors.New("disk full")
	engine := NewEngine(store)

	require.NoError(t, engine.StartSession())
	assert.Equal(t, StateWorking, engine.Snapshot().State)

	engine.handleSample(workSample("code.exe", "main.go"))
	for i := 0; i < 90; i++ {
		engine.tick()
	}

	// No session record means appends are dropped, not errors
	assert.Empty(t, store.entries)
	require.NoError(t, engine.StopSession())
}

func TestSettingsRefreshOnlyWhenIdle(t *testing.T) {
	store := newFakeStore(testSettings())
	engine := NewEngine(store)

	require.NoError(t, engine.StartSession())

	// A mid-session edit must not perturb the active countdown
	store.settings.WorkMinutes = 50
	engine.tick()
	assert.Equal(t, 25*60-1, engine.Snapshot().CountdownSeconds)

	require.NoError(t, engine.StopSession())
	require.NoError(t, engine.StartSession())
	assert.Equal(t, 50*60, engine.Snapshot().CountdownSeconds)
}

func TestNoTickActivityBeforeFirstSample(t *testing.T) {
	store := newFakeStore(testSettings())
	store.apps = []string{"steam.exe"}
	engine := NewEngine(store)

	require.NoError(t, engine.StartSession())
	for i := 0; i < 40; i++ {
		engine.tick()
	}

	// Nothing observed yet: no entries, no violations, countdown still runs
	assert.Empty(t, store.entries)
	assert.Equal(t, 0, engine.Snapshot().ViolationCount)
	assert.Equal(t, 25*60-40, engine.Snapshot().CountdownSeconds)
}

func TestEngineLoopLifecycle(t *testing.T) {
	store := newFakeStore(testSettings())
	engine := NewEngine(store)

	samples := make(chan Sample, 1)
	require.NoError(t, engine.Start(samples))
	assert.Error(t, engine.Start(samples), "second start must fail")

	samples <- workSample("code.exe", "main.go")
	time.Sleep(20 * time.Millisecond)

	engine.Stop()
	// Stop twice is safe
	engine.Stop()

	assert.True(t, engine.Snapshot().HaveSample)
}
