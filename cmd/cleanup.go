package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupRetentionDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete sessions older than the retention window",
	Long: `Delete sessions that started before the retention window. Their
activity entries are removed with them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		deleted, err := db.CleanupOldSessions(cleanupRetentionDays)
		if err != nil {
			return err
		}

		fmt.Printf("Deleted %d sessions older than %d days\n", deleted, cleanupRetentionDays)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupRetentionDays, "days", 90, "retention window in days")
	rootCmd.AddCommand(cleanupCmd)
}
