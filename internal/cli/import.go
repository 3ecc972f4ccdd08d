package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ryuko2/dinerito/internal/export"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replay a backup bundle through the normal add path",
	Long: "Import reads a bundle produced by export and adds every record " +
		"to the remote store. Records receive fresh identifiers; importing " +
		"the same bundle twice duplicates its records.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	bundle, err := export.Parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	app, err := Bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()

	// Adds go straight to the remote store; no subscription needed.
	counts, err := export.Import(cmd.Context(), bundle, app.Backend.Managers.Targets(), app.Logger)
	if err != nil {
		return err
	}
	for collection, n := range counts {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records\n", collection, n)
	}
	return nil
}
