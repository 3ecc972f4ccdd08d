package cli

import (
	"github.com/spf13/cobra"

	"github.com/Ryuko2/dinerito/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upload legacy JSON data and mark the migration done",
	Long: "Migrate uploads any expenses.json and goals.json left in the " +
		"data directory by old releases, deletes the files and records a " +
		"marker so it never runs again. Safe to re-run: with the marker set " +
		"it does nothing.",
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	app, err := Bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()

	runner := migrate.NewRunner(app.Config.DataDir, app.Cache, app.Backend.Managers.Targets(), app.Logger)
	return runner.Run(cmd.Context())
}
