package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dinerito",
	Short: "Household finance tracker",
	Long: "Dinerito keeps a local-first synchronized view of household " +
		"expenses, incomes, budgets, debts, recurring charges and savings " +
		"goals, serves them over a JSON API and computes spending forecasts.",
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(migrateCmd)
}
