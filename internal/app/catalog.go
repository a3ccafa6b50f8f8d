package app

import (
	"fmt"

	"github.com/samvad-hq/whatsnew-harvester/internal/changelog"
	"github.com/samvad-hq/whatsnew-harvester/internal/config"
	"github.com/samvad-hq/whatsnew-harvester/internal/logger"
	"github.com/samvad-hq/whatsnew-harvester/pkg/sources"
)

// Catalog bundles what every front end needs to open feed sessions: the
// configured sources, their page fetchers and the date grouper.
type Catalog struct {
	Sources  *sources.Registry
	Fetchers sources.FetcherRegistry
	Grouper  *changelog.Grouper
	log      logger.Logger
}

// LoadCatalog reads the sources file named by cfg and wires the default
// fetchers.
func LoadCatalog(cfg *config.Config, log logger.Logger) (*Catalog, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}

	reg, err := sources.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources registry: %w", err)
	}
	all := reg.All()
	ids := make([]string, 0, len(all))
	for _, s := range all {
		ids = append(ids, s.ID)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})

	client := sources.DefaultHTTPClient(cfg.HTTPTimeout)
	return &Catalog{
		Sources:  reg,
		Fetchers: sources.DefaultFetcherRegistry(client, cfg.GitHubToken),
		Grouper:  changelog.NewGrouper(changelog.DateFormatter{Location: cfg.DateLocation}),
		log:      log,
	}, nil
}

// Open starts a fresh browsing session on the source with the given id.
func (c *Catalog) Open(id string) (*changelog.Controller, sources.Source, error) {
	if c == nil || c.Sources == nil {
		return nil, sources.Source{}, fmt.Errorf("catalog is not initialized")
	}
	src, ok := c.Sources.ByID(id)
	if !ok {
		return nil, sources.Source{}, fmt.Errorf("unknown source %q", id)
	}
	ps, err := sources.PageSource(c.Fetchers, src)
	if err != nil {
		return nil, src, err
	}
	ctrl := changelog.NewController(ps, changelog.Options{
		Label:   src.Label,
		Grouper: c.Grouper,
		Log:     c.log,
	})
	return ctrl, src, nil
}

// List returns the configured sources in file order.
func (c *Catalog) List() []sources.Source {
	if c == nil || c.Sources == nil {
		return nil
	}
	return c.Sources.All()
}
