package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"codefocus/internal/ui"
)

var reportDate string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the daily work report",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := parseDateFlag(reportDate)
		if err != nil {
			return err
		}

		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		totalSeconds, err := db.TotalWorkSeconds(date)
		if err != nil {
			return err
		}

		health, err := db.GetHealthReport(date)
		if err != nil {
			return err
		}

		breakdown, err := db.GetDailyBreakdown(date)
		if err != nil {
			return err
		}

		bold := lipgloss.NewStyle().Bold(true)
		advisory := lipgloss.NewStyle().Foreground(lipgloss.Color(health.Color)).Bold(true)

		fmt.Printf("%s %s\n", bold.Render("Report for"), breakdown.Date)
		fmt.Printf("Total work: %dh %dm over %d sessions\n",
			totalSeconds/3600, totalSeconds%3600/60, len(breakdown.Sessions))
		fmt.Printf("Advisory:   %s\n", advisory.Render(health.Advice))

		if len(breakdown.Sessions) > 0 {
			fmt.Printf("\n%s\n", bold.Render("Sessions"))
			for _, session := range breakdown.Sessions {
				status := "stopped"
				if session.Completed {
					status = "completed"
				}
				fmt.Printf("  %s  %3dm  %s\n",
					session.StartTime.Format("15:04"), session.DurationMinutes(), status)
			}
		}

		if len(breakdown.TopApps) > 0 {
			fmt.Printf("\n%s\n", bold.Render("Top activity"))
			for _, app := range breakdown.TopApps {
				fmt.Printf("  %4d  %-12s  %s\n", app.Count, app.Category, ui.TruncateTitle(app.Title, 50))
			}
		}

		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "report date as YYYY-MM-DD (default today)")
	rootCmd.AddCommand(reportCmd)
}
