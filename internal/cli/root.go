// Package cli holds the whatsnew command tree.
package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/whatsnew-harvester/internal/app"
	"github.com/samvad-hq/whatsnew-harvester/internal/config"
	"github.com/samvad-hq/whatsnew-harvester/internal/logger"
	"github.com/spf13/cobra"
)

var (
	sourcesFileFlag string
	verboseFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "whatsnew",
	Short: "Browse \"what's new\" release notes pulled from merged pull requests",
	Long: `whatsnew pages through a repository's merged pull requests, keeps the ones
labelled as release notes and shows them oldest first, grouped by merge date.

Sources are read from the sources file (SOURCES_FILE, default
./configs/sources.yaml).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sourcesFileFlag, "sources", "", "Path to the sources file (overrides SOURCES_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Write structured logs to stderr")
}

// Execute runs the command tree.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// env is what every subcommand starts from.
type env struct {
	cfg     *config.Config
	log     logger.Logger
	catalog *app.Catalog
}

func loadEnv() (*env, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if sourcesFileFlag != "" {
		cfg.SourcesFile = sourcesFileFlag
	}

	var log logger.Logger = &logger.NopLogger{}
	cleanup := func() {}
	if verboseFlag {
		if log, err = logger.Init(cfg); err != nil {
			return nil, nil, fmt.Errorf("init logger: %w", err)
		}
		cleanup = func() { _ = logger.Close() }
		log.DebugObj("config loaded", "config", cfg.Redacted())
	}

	catalog, err := app.LoadCatalog(cfg, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return &env{cfg: cfg, log: log, catalog: catalog}, cleanup, nil
}

// sourceArg returns the requested source id, defaulting to the first one.
func (e *env) sourceArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	srcs := e.catalog.List()
	if len(srcs) == 0 {
		return "", fmt.Errorf("no sources configured in %s", e.cfg.SourcesFile)
	}
	return srcs[0].ID, nil
}
