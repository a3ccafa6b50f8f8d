package sources

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/whatsnew-harvester/internal/changelog"
	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
	"github.com/samvad-hq/whatsnew-harvester/pkg/httpclient"
)

// fetcherRegistry implements FetcherRegistry.
type fetcherRegistry struct {
	mu             sync.RWMutex
	fetchersByType map[string]PageFetcher
}

// NewFetcherRegistry builds a registry keyed by each fetcher's source type.
func NewFetcherRegistry(fetchers ...PageFetcher) FetcherRegistry {
	reg := &fetcherRegistry{fetchersByType: make(map[string]PageFetcher)}
	for _, f := range fetchers {
		reg.register(f)
	}
	return reg
}

func (r *fetcherRegistry) register(f PageFetcher) {
	if f == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(f.Type()))
	if key == "" {
		return
	}

	r.mu.Lock()
	r.fetchersByType[key] = f
	r.mu.Unlock()
}

// FetcherFor selects the fetcher for the given source based on its type.
func (r *fetcherRegistry) FetcherFor(src Source) (PageFetcher, error) {
	if r == nil {
		return nil, fmt.Errorf("fetcher registry is nil")
	}
	if strings.TrimSpace(src.ID) == "" {
		return nil, fmt.Errorf("source id is empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.fetchersByType[strings.ToLower(strings.TrimSpace(src.Type))]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("no fetcher registered for source %q (type %q)", src.ID, src.Type)
}

// DefaultHTTPClient returns a resty-backed client for page fetchers.
func DefaultHTTPClient(timeout time.Duration) HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return httpclient.NewRestyClient(timeout)
}

// DefaultFetcherRegistry wires up known page fetchers. token is used for
// sources that do not name their own token variable.
func DefaultFetcherRegistry(client HTTPClient, token string) FetcherRegistry {
	if client == nil {
		client = DefaultHTTPClient(0)
	}
	return NewFetcherRegistry(NewGitHubPullsFetcher(client, token))
}

// PageSource binds a source to its fetcher so the feed controller can pull
// pages without knowing about source configs.
func PageSource(reg FetcherRegistry, src Source) (changelog.PageSource, error) {
	if reg == nil {
		return nil, fmt.Errorf("fetcher registry is nil")
	}
	fetcher, err := reg.FetcherFor(src)
	if err != nil {
		return nil, fmt.Errorf("resolve fetcher for source %s: %w", src.ID, err)
	}
	return changelog.PageSourceFunc(func(ctx context.Context, page int) ([]domain.RawRecord, error) {
		return fetcher.FetchPage(ctx, src, page)
	}), nil
}
