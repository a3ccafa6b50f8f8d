package sources

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
	"golang.org/x/time/rate"
)

// TypeGitHubPulls is the source type backed by the GitHub pulls list endpoint.
const TypeGitHubPulls = "github_pulls"

// githubPullsFetcher implements PageFetcher for GitHub pull request lists.
type githubPullsFetcher struct {
	client HTTPClient
	token  string
	getenv func(string) string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewGitHubPullsFetcher builds a fetcher for GitHub pull request pages.
func NewGitHubPullsFetcher(client HTTPClient, token string) PageFetcher {
	if client == nil {
		client = DefaultHTTPClient(0)
	}
	return &githubPullsFetcher{
		client:   client,
		token:    strings.TrimSpace(token),
		getenv:   os.Getenv,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *githubPullsFetcher) Type() string {
	return TypeGitHubPulls
}

// FetchPage requests one page of closed pull requests. An empty page means
// the listing is exhausted.
func (f *githubPullsFetcher) FetchPage(ctx context.Context, src Source, page int) ([]domain.RawRecord, error) {
	if !strings.EqualFold(src.Type, TypeGitHubPulls) {
		return nil, fmt.Errorf("github pulls fetcher received incompatible source type %q", src.Type)
	}
	if page <= 0 {
		return nil, fmt.Errorf("source %q: page index must be positive, got %d", src.ID, page)
	}

	if err := f.wait(ctx, src); err != nil {
		return nil, fmt.Errorf("source %q: wait for request slot: %w", src.ID, err)
	}

	resp, err := f.client.Get(ctx, src.PullsURL(), PageQuery(src, page), Headers(f.tokenFor(src)))
	if err != nil {
		return nil, fmt.Errorf("fetch %s page %d: %w", src.ID, page, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s page %d returned status %d body: %s", src.ID, page, resp.StatusCode(), responseSnippet(body))
	}

	records, err := decodePage(body)
	if err != nil {
		return nil, fmt.Errorf("%s page %d: %w", src.ID, page, err)
	}
	return records, nil
}

// PageQuery builds the list query for page.
func PageQuery(src Source, page int) map[string]string {
	return map[string]string{
		"sort":      src.Sort,
		"direction": src.Direction,
		"state":     src.State,
		"base":      src.Base,
		"per_page":  strconv.Itoa(src.PerPage),
		"page":      strconv.Itoa(page),
	}
}

func (f *githubPullsFetcher) tokenFor(src Source) string {
	if src.TokenEnv != "" && f.getenv != nil {
		if v := strings.TrimSpace(f.getenv(src.TokenEnv)); v != "" {
			return v
		}
	}
	return f.token
}

// wait spaces out requests to the same source by its configured delay.
func (f *githubPullsFetcher) wait(ctx context.Context, src Source) error {
	delay := src.RequestDelay()
	if delay <= 0 {
		return nil
	}

	f.mu.Lock()
	lim, ok := f.limiters[src.ID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(delay), 1)
		f.limiters[src.ID] = lim
	}
	f.mu.Unlock()

	return lim.Wait(ctx)
}
