package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var historyDays int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show work minutes per day for the recent past",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		series, err := db.GetHistoricalSeries(historyDays)
		if err != nil {
			return err
		}

		maxMinutes := 1
		for _, day := range series {
			if day.Minutes > maxMinutes {
				maxMinutes = day.Minutes
			}
		}

		barStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981"))
		for _, day := range series {
			width := day.Minutes * 40 / maxMinutes
			fmt.Printf("%s  %s %dm\n", day.Date, barStyle.Render(strings.Repeat("█", width)), day.Minutes)
		}

		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyDays, "days", 7, "number of days back from today")
	rootCmd.AddCommand(historyCmd)
}
