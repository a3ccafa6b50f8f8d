package app

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/whatsnew-harvester/internal/announcer"
	"github.com/samvad-hq/whatsnew-harvester/internal/config"
	"github.com/samvad-hq/whatsnew-harvester/internal/logger"
	"github.com/samvad-hq/whatsnew-harvester/internal/storage"
	"github.com/samvad-hq/whatsnew-harvester/pkg/publishers"
	"github.com/samvad-hq/whatsnew-harvester/pkg/sources"
)

// Announcer is the polling runtime. It periodically walks every source and
// announces entries the ledger has not seen to the configured publishers.
type Announcer struct {
	cfg          *config.Config
	catalog      *Catalog
	fanout       *publishers.Fanout
	service      *announcer.Service
	pollInterval time.Duration
	log          logger.Logger
	store        storage.Store
}

// NewAnnouncer builds an announcer runtime from config files.
func NewAnnouncer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Announcer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	catalog, err := LoadCatalog(cfg, log)
	if err != nil {
		return nil, err
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	summaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		EntryTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"entry_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	service := announcer.NewService(catalog.Fetchers, fanout, log, store, announcer.Options{
		MaxPages: cfg.AnnounceMaxPages,
		Grouper:  catalog.Grouper,
	})

	return &Announcer{
		cfg:          cfg,
		catalog:      catalog,
		fanout:       fanout,
		service:      service,
		pollInterval: cfg.PollInterval,
		log:          log,
		store:        store,
	}, nil
}

// Run starts the poll loop until the context is cancelled.
func (a *Announcer) Run(ctx context.Context) error {
	if a == nil || a.service == nil {
		return fmt.Errorf("announcer is not initialized")
	}
	defer a.close()

	srcs := a.catalog.Sources.All()
	if len(srcs) == 0 {
		a.log.WarnObj("no sources configured; announcer idle", "sources_file", a.cfg.SourcesFile)
		<-ctx.Done()
		return ctx.Err()
	}

	a.log.InfoObj("announcer loop starting", "announcer_state", map[string]any{
		"sources_count":    len(srcs),
		"publishers_count": a.fanout.Size(),
		"poll_interval":    a.pollInterval.String(),
		"max_pages":        a.cfg.AnnounceMaxPages,
	})

	if err := a.runOnce(ctx, srcs); err != nil {
		a.log.ErrorObj("initial announce pass failed", "error", err)
	}

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.InfoObj("announcer loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := a.runOnce(ctx, srcs); err != nil {
				a.log.ErrorObj("scheduled announce pass failed", "error", err)
			}
		}
	}
}

func (a *Announcer) runOnce(ctx context.Context, srcs []sources.Source) error {
	start := time.Now()
	a.log.InfoObj("announce pass started", "announce_meta", map[string]any{
		"sources_count": len(srcs),
		"started_at":    start.UTC(),
	})
	if err := a.service.Run(ctx, srcs); err != nil {
		return err
	}
	a.log.InfoObj("announce pass completed", "announce_meta", map[string]any{
		"sources_count": len(srcs),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return nil
}

func (a *Announcer) close() {
	if a == nil {
		return
	}
	if err := a.fanout.Close(); err != nil {
		a.log.ErrorObj("publisher close failed", "error", err)
	}
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.ErrorObj("storage close failed", "error", err)
	}
}
