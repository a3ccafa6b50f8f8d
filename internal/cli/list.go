package cli

import (
	"context"
	"fmt"

	"github.com/samvad-hq/whatsnew-harvester/internal/changelog"
	"github.com/samvad-hq/whatsnew-harvester/internal/terminal"
	"github.com/spf13/cobra"
)

var (
	listBatchesFlag int
	listPagesFlag   int
	listPlainFlag   bool
)

var listCmd = &cobra.Command{
	Use:   "list [source-id]",
	Short: "Print release notes of a source",
	Long: `Print release notes of a source, oldest first, with one header per merge date.

Examples:
  whatsnew list                  # First configured source, one batch
  whatsnew list desktop -b 3     # Three batches of the "desktop" source
  whatsnew list --plain          # No colors`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().IntVarP(&listBatchesFlag, "batches", "b", 1, "Number of visible batches to print")
	listCmd.Flags().IntVar(&listPagesFlag, "max-pages", 5, "Upstream pages to try per batch when pages hold no notes")
	listCmd.Flags().BoolVar(&listPlainFlag, "plain", false, "Plain text output (no colors)")
}

func runList(cmd *cobra.Command, args []string) error {
	e, cleanup, err := loadEnv()
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := e.sourceArg(args)
	if err != nil {
		return err
	}
	ctrl, _, err := e.catalog.Open(id)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	printer := terminal.NewPrinter(cmd.OutOrStdout(), listPlainFlag)
	return printBatches(cmd.Context(), ctrl, printer, listBatchesFlag, listPagesFlag)
}

// printBatches prints up to batches visible batches from ctrl.
func printBatches(ctx context.Context, ctrl *changelog.Controller, printer *terminal.Printer, batches, maxPages int) error {
	if batches <= 0 {
		batches = 1
	}
	printed := 0
	for i := 0; i < batches && ctrl.HasMore(); i++ {
		u, err := ctrl.LoadVisible(ctx, maxPages)
		if err != nil {
			return fmt.Errorf("load notes: %w", err)
		}
		if err := printer.PrintNotes(u.Appended); err != nil {
			return err
		}
		printed += len(u.Appended)
	}

	switch {
	case printed == 0 && !ctrl.HasMore():
		return printer.PrintStatus("no release notes")
	case !ctrl.HasMore():
		return printer.PrintStatus("end of feed")
	default:
		return printer.PrintStatus("more available (use --batches)")
	}
}
