package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"codefocus/internal/models"
)

var settingKeys = []string{
	models.SettingWorkMinutes,
	models.SettingBreakMinutes,
	models.SettingGraceSeconds,
	models.SettingLogIntervalSeconds,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage behavior settings",
	Long: `Manage the behavior settings stored alongside the activity trail:
work and break minutes, the grace period, and the logging interval. Changes
are picked up by the engine the next time it is idle.`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		settings, err := db.ListSettings()
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(settings))
		for key := range settings {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			fmt.Printf("%-24s %s\n", key, settings[key])
		}

		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a behavior setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if !knownSettingKey(key) {
			return fmt.Errorf("unknown setting %q, valid keys: %v", key, settingKeys)
		}
		if parsed, err := strconv.Atoi(value); err != nil || parsed <= 0 {
			return fmt.Errorf("setting %s must be a positive integer, got %q", key, value)
		}

		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.SetSetting(key, value); err != nil {
			return err
		}

		fmt.Printf("Set %s = %s (applies when the engine is next idle)\n", key, value)
		return nil
	},
}

func knownSettingKey(key string) bool {
	for _, known := range settingKeys {
		if key == known {
			return true
		}
	}
	return false
}

func init() {
	settingsCmd.AddCommand(settingsListCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
