package cli

import (
	"github.com/samvad-hq/whatsnew-harvester/internal/web"
	"github.com/spf13/cobra"
)

var serveAddrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve release notes over HTTP",
	Long: `Start the web front end. Each visit opens a browsing session that loads
more notes as the page is scrolled. Idle sessions expire after
SESSION_TTL_SECONDS.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", "", "Listen address (overrides HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	verboseFlag = true
	e, cleanup, err := loadEnv()
	if err != nil {
		return err
	}
	defer cleanup()

	addr := e.cfg.HTTPAddr
	if serveAddrFlag != "" {
		addr = serveAddrFlag
	}

	srv := web.NewServer(e.catalog, web.Options{
		SessionTTL: e.cfg.SessionTTL,
		Log:        e.log,
	})
	return srv.ListenAndServe(cmd.Context(), addr)
}
