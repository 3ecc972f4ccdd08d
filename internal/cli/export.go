package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ryuko2/dinerito/internal/export"
)

var exportTimeout time.Duration

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write a backup bundle of the current data",
	Long: "Export synchronizes the collections, then writes a versioned " +
		"JSON bundle of expenses, goals, incomes and budgets to the given " +
		"file, or to stdout when no file is named.",
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().DurationVar(&exportTimeout, "timeout", 30*time.Second,
		"how long to wait for the collections to synchronize")
}

func runExport(cmd *cobra.Command, args []string) error {
	app, err := Bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	app.Backend.Managers.StartAll(ctx)
	defer app.Backend.Managers.CloseAll()
	if err := app.WaitReady(ctx, exportTimeout); err != nil {
		return err
	}

	m := app.Backend.Managers
	bundle := export.Snapshot(
		m.Expenses.Snapshot(),
		m.Goals.Snapshot(),
		m.Incomes.Snapshot(),
		m.Budgets.Snapshot(),
		time.Now(),
	)

	out := os.Stdout
	if len(args) == 1 {
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("create %s: %w", args[0], err)
		}
		defer f.Close()
		out = f
	}
	if err := bundle.Write(out); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	return nil
}
