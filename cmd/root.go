package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "codefocus",
	Short: "Focus enforcement with activity tracking and reports",
	Long: `codefocus is a personal focus-enforcement agent. It watches the
foreground activity, enforces a pomodoro work/break cycle with a penalty
lock for sustained distractions, keeps a classified activity trail, and
reports daily and historical work statistics over it.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.codefocus/config.toml)")
}
