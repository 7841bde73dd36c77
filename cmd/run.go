package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"codefocus/internal/config"
	"codefocus/internal/database"
	"codefocus/internal/instance"
	"codefocus/internal/tracker"
	"codefocus/internal/ui"
)

var runNoUI bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the session engine and dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, cfg, err := loadConfig()
		if err != nil {
			return err
		}

		lock, err := instance.NewLock()
		if err != nil {
			return err
		}
		if err := lock.TryLock(); err != nil {
			return err
		}
		defer lock.Release()

		db, err := database.NewDB(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		sampler := tracker.NewSampler(
			time.Duration(cfg.General.TickIntervalSeconds)*time.Second,
			cfg.General.BrowserProcesses,
		)
		engine := tracker.NewEngine(db)

		events := make(chan tracker.Event, 16)
		engine.AddListener(func(event tracker.Event) {
			select {
			case events <- event:
			default:
				// Display is best effort, never stall a transition
			}
		})

		if watcher, err := config.NewWatcher(manager.GetConfigPath()); err != nil {
			log.Printf("Configuration watcher unavailable: %v", err)
		} else {
			defer watcher.Close()
			go func() {
				for path := range watcher.Changes() {
					log.Printf("Configuration file changed: %s (applies on next start)", path)
				}
			}()
		}

		if err := sampler.Start(); err != nil {
			return err
		}
		if err := engine.Start(sampler.Samples()); err != nil {
			sampler.Stop()
			return err
		}

		if runNoUI {
			err = runHeadless(engine)
		} else {
			dashboard := ui.NewDashboard(engine, db, events, cfg.UI.HistoryDays)
			_, err = tea.NewProgram(dashboard, tea.WithAltScreen()).Run()
		}

		// Sampler joins first, then the engine flushes its pending partial
		// log interval synchronously
		sampler.Stop()
		engine.Stop()

		return err
	},
}

// runHeadless logs transition events until interrupted.
func runHeadless(engine *tracker.Engine) error {
	engine.AddListener(func(event tracker.Event) {
		switch event.Kind {
		case tracker.EventWarning:
			log.Printf("WARNING: forbidden activity, %ds before lock", event.Remaining)
		case tracker.EventRecovered:
			log.Println("Recovered from forbidden activity")
		default:
			log.Printf("Entered %s", event.State)
		}
	})

	if err := engine.StartSession(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	return nil
}

func init() {
	runCmd.Flags().BoolVar(&runNoUI, "no-ui", false, "run headless: start a session immediately and log events")
	rootCmd.AddCommand(runCmd)
}
