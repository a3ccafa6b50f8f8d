package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/whatsnew-harvester/internal/app"
	"github.com/samvad-hq/whatsnew-harvester/internal/config"
	"github.com/samvad-hq/whatsnew-harvester/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "announcer start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("announcer starting", "config", cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	announcer, err := app.NewAnnouncer(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize announcer", "error", err)
		return err
	}

	if err := announcer.Run(ctx); err != nil {
		return fmt.Errorf("announcer run: %w", err)
	}
	return nil
}
