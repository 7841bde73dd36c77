package tracker

import (
	"fmt"
	"log"
	"sync"
	"time"

	"codefocus/internal/models"
)

// State is the session engine's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateWorking
	StateBreak
	StateLocked
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWorking:
		return "working"
	case StateBreak:
		return "break"
	case StateLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// EventKind identifies a discrete engine transition for collaborators.
type EventKind int

const (
	EventEnteredIdle EventKind = iota
	EventEnteredWorking
	EventEnteredBreak
	EventEnteredLocked
	EventWarning
	EventRecovered
)

// Event is a transition notification delivered to listeners.
type Event struct {
	Kind EventKind
	// Remaining carries the seconds left before a penalty for EventWarning.
	Remaining int
	State     State
	Time      time.Time
}

// Listener receives engine events. Listeners are called synchronously on
// the engine loop and must not call back into the engine.
type Listener func(Event)

// SessionStore is the persistence surface the engine writes through. The
// sqlite database satisfies it; tests use an in-memory fake.
type SessionStore interface {
	CreateSession(mode string) (*models.Session, error)
	CloseSession(id string, durationSeconds int, completed bool) error
	AppendEntry(entry *models.ActivityLogEntry) error
	EngineSettings() models.EngineSettings
	Rules() (apps, urls []string)
}

// Engine drives the idle/working/break/locked session lifecycle. Countdown
// ticks run on the engine's own loop; activity samples arrive from the
// sampler's mailbox and the most recent one is used for classification, so
// the two cadences never wait on each other.
type Engine struct {
	mu    sync.Mutex
	store SessionStore

	settings   models.EngineSettings
	state      State
	countdown  int
	session    *models.Session
	violations *ViolationTracker
	logCounter int
	lastSample Sample
	haveSample bool
	degraded   bool
	listeners  []Listener

	tickInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
	isRunning    bool
	now          func() time.Time
}

// NewEngine creates an engine over the given store, loading behavior
// settings (falling back to defaults when unreadable).
func NewEngine(store SessionStore) *Engine {
	settings := store.EngineSettings()
	return &Engine{
		store:        store,
		settings:     settings,
		state:        StateIdle,
		violations:   NewViolationTracker(settings.GraceSeconds),
		tickInterval: time.Second,
		now:          time.Now,
	}
}

// AddListener registers a transition event listener.
func (e *Engine) AddListener(listener Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, listener)
}

// Start begins the engine loop, consuming samples from the given mailbox.
func (e *Engine) Start(samples <-chan Sample) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isRunning {
		return fmt.Errorf("engine is already running")
	}

	e.isRunning = true
	e.stopChan = make(chan struct{})
	e.doneChan = make(chan struct{})

	go e.loop(samples)

	return nil
}

// Stop halts the engine loop, flushing any pending partial log interval
// before returning. The open session, if any, stays open.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.isRunning {
		e.mu.Unlock()
		return
	}
	e.isRunning = false
	close(e.stopChan)
	done := e.doneChan
	e.mu.Unlock()

	<-done
}

func (e *Engine) loop(samples <-chan Sample) {
	defer close(e.doneChan)

	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.mu.Lock()
			e.tick()
			e.mu.Unlock()
		case sample, ok := <-samples:
			if !ok {
				samples = nil
				continue
			}
			e.mu.Lock()
			e.handleSample(sample)
			e.mu.Unlock()
		case <-e.stopChan:
			e.mu.Lock()
			e.flushPartial()
			e.mu.Unlock()
			return
		}
	}
}

// StartSession transitions idle → working, opening a new session.
func (e *Engine) StartSession() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return fmt.Errorf("cannot start a session while %s", e.state)
	}

	// Pick up any settings edits made since the last cycle
	e.refreshSettings()

	session, err := e.store.CreateSession(models.ModePomodoro)
	if err != nil {
		// Dropped write: the cycle still runs, appends become no-ops
		log.Printf("Error creating session record: %v", err)
		session = nil
	}

	e.session = session
	e.state = StateWorking
	e.countdown = e.settings.WorkMinutes * 60
	e.violations.Reset()
	e.logCounter = 0

	e.emit(Event{Kind: EventEnteredWorking})

	return nil
}

// StopSession is the explicit manual stop: working → idle, closing the open
// session with the elapsed duration and completed=false.
func (e *Engine) StopSession() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateWorking {
		return fmt.Errorf("cannot stop a session while %s", e.state)
	}

	e.flushPartial()

	elapsed := e.settings.WorkMinutes*60 - e.countdown
	e.closeSession(elapsed, false)

	e.state = StateIdle
	e.violations.Reset()
	e.refreshSettings()

	e.emit(Event{Kind: EventEnteredIdle})

	return nil
}

// Unlock is the explicit unlock action: locked → working. The countdown and
// log counter carry on where they were.
func (e *Engine) Unlock() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateLocked {
		return fmt.Errorf("cannot unlock while %s", e.state)
	}

	e.state = StateWorking
	e.emit(Event{Kind: EventEnteredWorking})

	return nil
}

// tick advances the countdown by one second and, during a work period,
// classifies the most recent sample and advances the logging throttle.
// The countdown and the throttle keep running while locked; only the
// violation feed is suspended, so logging continuity spans lock periods.
func (e *Engine) tick() {
	switch e.state {
	case StateWorking, StateLocked:
		e.countdown--

		if e.state == StateWorking && e.haveSample {
			e.observeActivity()
		}

		if e.haveSample && e.session != nil {
			e.logCounter++
			if e.logCounter >= e.settings.LogIntervalSeconds {
				e.appendLogEntry()
				e.logCounter = 0
			}
		}

		if e.countdown <= 0 {
			e.finishWorkCycle()
		}
	case StateBreak:
		e.countdown--
		if e.countdown <= 0 {
			e.finishBreakCycle()
		}
	}
}

// observeActivity feeds the latest sample through the blacklist matcher and
// the violation tracker.
func (e *Engine) observeActivity() {
	apps, urls := e.store.Rules()
	forbidden := IsForbidden(e.lastSample.ProcessName, e.lastSample.WindowTitle, e.lastSample.URL, apps, urls)

	switch signal := e.violations.Observe(forbidden); signal.Kind {
	case SignalWarning:
		e.emit(Event{Kind: EventWarning, Remaining: signal.Remaining})
	case SignalPenalize:
		e.violations.Reset()
		e.state = StateLocked
		e.emit(Event{Kind: EventEnteredLocked})
	case SignalRecovered:
		e.emit(Event{Kind: EventRecovered})
	}
}

// finishWorkCycle closes the work period naturally and starts the break.
func (e *Engine) finishWorkCycle() {
	e.flushPartial()
	e.closeSession(e.settings.WorkMinutes*60, true)

	e.state = StateBreak
	e.countdown = e.settings.BreakMinutes * 60
	e.violations.Reset()

	e.emit(Event{Kind: EventEnteredBreak})
}

// finishBreakCycle ends the break and returns to idle.
func (e *Engine) finishBreakCycle() {
	e.state = StateIdle
	e.countdown = 0
	e.refreshSettings()

	e.emit(Event{Kind: EventEnteredIdle})
}

// flushPartial writes one final log entry for a trailing partial interval
// so no observed activity window is silently dropped.
func (e *Engine) flushPartial() {
	if e.state != StateWorking && e.state != StateLocked {
		return
	}
	if e.logCounter > 0 {
		e.appendLogEntry()
		e.logCounter = 0
	}
}

// appendLogEntry persists the most recent sample with its derived category.
// Persistence failures drop the single write and never halt the session.
func (e *Engine) appendLogEntry() {
	if e.session == nil || !e.haveSample {
		return
	}

	apps, urls := e.store.Rules()
	category := models.CategoryWork
	if IsForbidden(e.lastSample.ProcessName, e.lastSample.WindowTitle, e.lastSample.URL, apps, urls) {
		category = models.CategoryDistraction
	}

	entry := &models.ActivityLogEntry{
		SessionID:   e.session.ID,
		Timestamp:   e.now(),
		ProcessName: e.lastSample.ProcessName,
		Category:    category,
	}
	if e.lastSample.WindowTitle != "" {
		title := e.lastSample.WindowTitle
		entry.WindowTitle = &title
	}
	if e.lastSample.URL != "" {
		url := e.lastSample.URL
		entry.URL = &url
	}

	if err := e.store.AppendEntry(entry); err != nil {
		log.Printf("Error appending activity entry: %v", err)
	}
}

func (e *Engine) closeSession(durationSeconds int, completed bool) {
	if e.session == nil {
		return
	}

	if err := e.store.CloseSession(e.session.ID, durationSeconds, completed); err != nil {
		log.Printf("Error closing session %s: %v", e.session.ID, err)
	}

	e.session = nil
}

// refreshSettings re-reads behavior settings. Only called from idle-bound
// code paths so mid-session edits never perturb an active countdown.
func (e *Engine) refreshSettings() {
	e.settings = e.store.EngineSettings()
	e.violations.SetGracePeriod(e.settings.GraceSeconds)
}

// handleSample records the most recent observation for the next tick.
func (e *Engine) handleSample(sample Sample) {
	e.lastSample = sample
	e.haveSample = true
	e.degraded = sample.Degraded
}

func (e *Engine) emit(event Event) {
	event.State = e.state
	event.Time = e.now()
	for _, listener := range e.listeners {
		listener(event)
	}
}

// Snapshot is a point-in-time copy of the engine state for display.
type Snapshot struct {
	State              State
	CountdownSeconds   int
	SessionID          string
	Settings           models.EngineSettings
	LastSample         Sample
	HaveSample         bool
	MonitoringDegraded bool
	ViolationCount     int
}

// Snapshot returns the current state/countdown/last-sample tuple.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := Snapshot{
		State:              e.state,
		CountdownSeconds:   e.countdown,
		Settings:           e.settings,
		LastSample:         e.lastSample,
		HaveSample:         e.haveSample,
		MonitoringDegraded: e.degraded,
		ViolationCount:     e.violations.Count(),
	}
	if e.session != nil {
		snapshot.SessionID = e.session.ID
	}

	return snapshot
}
