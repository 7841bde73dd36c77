package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"codefocus/internal/database"
	"codefocus/internal/tracker"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#3b82f6")).
			Padding(0, 1).
			MarginBottom(1)

	workingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10b981")).
			Bold(true)

	breakStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60a5fa")).
			Bold(true)

	lockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ef4444")).
			Bold(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f59e0b")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#334155")).
			Padding(1, 2).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748b"))
)

// Dashboard is the terminal front end over the session engine. It only
// renders snapshots and report queries; all session logic stays in the
// engine.
type Dashboard struct {
	engine      *tracker.Engine
	db          *database.DB
	events      <-chan tracker.Event
	historyDays int

	width  int
	height int
	banner string
	health *database.HealthReport
	series []database.DailyTotal
}

// NewDashboard creates the dashboard model. events should be the buffered
// channel bridged from the engine's listener.
func NewDashboard(engine *tracker.Engine, db *database.DB, events <-chan tracker.Event, historyDays int) Dashboard {
	return Dashboard{
		engine:      engine,
		db:          db,
		events:      events,
		historyDays: historyDays,
	}
}

type tickMsg time.Time

type engineEventMsg tracker.Event

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (d Dashboard) waitEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-d.events
		if !ok {
			return nil
		}
		return engineEventMsg(event)
	}
}

func (d Dashboard) Init() tea.Cmd {
	return tea.Batch(tickCmd(), d.waitEvent())
}

func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return d, tea.Quit
		case "s":
			if err := d.engine.StartSession(); err == nil {
				d.banner = "Focus session started. Go deep."
			}
		case "x":
			if err := d.engine.StopSession(); err == nil {
				d.banner = "Session stopped."
			}
		case "u":
			if err := d.engine.Unlock(); err == nil {
				d.banner = "Unlocked. Back to work."
			}
		}
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
	case tickMsg:
		d.refreshReports()
		return d, tickCmd()
	case engineEventMsg:
		d.banner = bannerFor(tracker.Event(msg))
		return d, d.waitEvent()
	}
	return d, nil
}

func bannerFor(event tracker.Event) string {
	switch event.Kind {
	case tracker.EventEnteredWorking:
		return "Deep work mode."
	case tracker.EventEnteredBreak:
		return "Time is up. Take a break."
	case tracker.EventEnteredLocked:
		return "Locked: sustained forbidden activity."
	case tracker.EventEnteredIdle:
		return "Ready for the next session."
	case tracker.EventWarning:
		return fmt.Sprintf("Close the distraction! %ds left", event.Remaining)
	case tracker.EventRecovered:
		return "Back on track."
	default:
		return ""
	}
}

func (d *Dashboard) refreshReports() {
	if report, err := d.db.GetHealthReport(time.Now()); err == nil {
		d.health = report
	}
	if series, err := d.db.GetHistoricalSeries(d.historyDays); err == nil {
		d.series = series
	}
}

func (d Dashboard) View() string {
	if d.width == 0 {
		return "Loading..."
	}

	snapshot := d.engine.Snapshot()

	header := headerStyle.Width(d.width).Render(
		fmt.Sprintf("codefocus - %s", time.Now().Format("Mon Jan 2 15:04:05")),
	)

	var sections []string
	sections = append(sections, header)
	sections = append(sections, d.timerBox(snapshot))
	sections = append(sections, d.activityBox(snapshot))
	if d.health != nil {
		sections = append(sections, d.healthBox())
	}
	if len(d.series) > 0 {
		sections = append(sections, d.historyBox())
	}
	sections = append(sections, helpStyle.Render("s start · x stop · u unlock · q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (d Dashboard) timerBox(snapshot tracker.Snapshot) string {
	var stateLine string
	switch snapshot.State {
	case tracker.StateWorking:
		stateLine = workingStyle.Render("DEEP WORK")
	case tracker.StateBreak:
		stateLine = breakStyle.Render("BREAK")
	case tracker.StateLocked:
		stateLine = lockedStyle.Render("LOCKED")
	default:
		stateLine = idleStyle.Render("IDLE")
	}

	lines := []string{
		fmt.Sprintf("%s  %s", stateLine, formatCountdown(snapshot.CountdownSeconds)),
	}
	if d.banner != "" {
		lines = append(lines, warnStyle.Render(d.banner))
	}
	if snapshot.MonitoringDegraded {
		lines = append(lines, lockedStyle.Render("Monitoring degraded: activity probe failing"))
	}

	return boxStyle.Width(d.width - 2).Render(strings.Join(lines, "\n"))
}

func (d Dashboard) activityBox(snapshot tracker.Snapshot) string {
	activity := "Waiting for activity..."
	if snapshot.HaveSample {
		title := snapshot.LastSample.WindowTitle
		if title == "" {
			title = snapshot.LastSample.ProcessName
		}
		title = TruncateTitle(title, 60)
		activity = fmt.Sprintf("[%s] %s", snapshot.LastSample.ProcessName, title)
		if !snapshot.LastSample.Time.IsZero() {
			activity += helpStyle.Render("  " + humanize.Time(snapshot.LastSample.Time))
		}
	}

	return boxStyle.Width(d.width - 2).Render(activity)
}

func (d Dashboard) healthBox() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(d.health.Color)).Bold(true)
	line := fmt.Sprintf("Today: %s of work · %s",
		formatMinutes(d.health.TotalMinutes), style.Render(d.health.Advice))
	return boxStyle.Width(d.width - 2).Render(line)
}

func (d Dashboard) historyBox() string {
	maxMinutes := 1
	for _, day := range d.series {
		if day.Minutes > maxMinutes {
			maxMinutes = day.Minutes
		}
	}

	barWidth := d.width - 26
	if barWidth < 10 {
		barWidth = 10
	}

	var lines []string
	for _, day := range d.series {
		filled := day.Minutes * barWidth / maxMinutes
		bar := workingStyle.Render(strings.Repeat("█", filled)) +
			helpStyle.Render(strings.Repeat("░", barWidth-filled))
		lines = append(lines, fmt.Sprintf("%s %s %4dm", day.Date, bar, day.Minutes))
	}

	return boxStyle.Width(d.width - 2).Render(strings.Join(lines, "\n"))
}

// TruncateTitle shortens a window title to at most max characters for
// display, counting runes so a multibyte title is never split mid-rune.
func TruncateTitle(title string, max int) string {
	runes := []rune(title)
	if len(runes) <= max {
		return title
	}
	return string(runes[:max-3]) + "..."
}

func formatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
