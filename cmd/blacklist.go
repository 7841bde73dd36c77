package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"codefocus/internal/models"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Manage block rules",
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all block rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		rules, err := db.ListRules()
		if err != nil {
			return err
		}

		if len(rules) == 0 {
			fmt.Println("No block rules configured.")
			return nil
		}

		for _, rule := range rules {
			fmt.Printf("%-4s %s\n", rule.Type, rule.Value)
		}

		return nil
	},
}

var blacklistAddCmd = &cobra.Command{
	Use:   "add <app|url> <value>",
	Short: "Add a block rule",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ruleType := models.RuleType(args[0])
		if !ruleType.Valid() {
			return fmt.Errorf("rule type must be %q or %q", models.RuleApp, models.RuleURL)
		}

		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.AddRule(args[1], ruleType); err != nil {
			return err
		}

		fmt.Printf("Added %s rule %q\n", ruleType, args[1])
		return nil
	},
}

var blacklistRemoveCmd = &cobra.Command{
	Use:   "remove <value>",
	Short: "Remove a block rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.RemoveRule(args[0]); err != nil {
			return err
		}

		fmt.Printf("Removed rule %q\n", args[0])
		return nil
	},
}

func init() {
	blacklistCmd.AddCommand(blacklistListCmd, blacklistAddCmd, blacklistRemoveCmd)
	rootCmd.AddCommand(blacklistCmd)
}
