package sources

import (
	"context"

	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
	"github.com/samvad-hq/whatsnew-harvester/pkg/httpclient"
)

// PageFetcher retrieves one page of records for a source.
// Concrete implementations live in type-specific files (e.g., github_pulls.go).
type PageFetcher interface {
	Type() string
	FetchPage(ctx context.Context, src Source, page int) ([]domain.RawRecord, error)
}

// FetcherRegistry resolves the fetcher implementation for a given source config.
type FetcherRegistry interface {
	FetcherFor(src Source) (PageFetcher, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within sources.
type HTTPClient = httpclient.Client
