package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samvad-hq/whatsnew-harvester/internal/terminal"
	"github.com/spf13/cobra"
)

var browsePagesFlag int

var browseCmd = &cobra.Command{
	Use:   "browse [source-id]",
	Short: "Scroll through release notes interactively",
	Long: `Open an interactive reader on a source. More notes load once you scroll
to the bottom; press m to load more by hand and q to quit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().IntVar(&browsePagesFlag, "max-pages", 5, "Upstream pages to try per load when pages hold no notes")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	e, cleanup, err := loadEnv()
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := e.sourceArg(args)
	if err != nil {
		return err
	}
	ctrl, src, err := e.catalog.Open(id)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	model := terminal.NewBrowser(cmd.Context(), ctrl, src.Name, browsePagesFlag)
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}
