package changelog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
	"github.com/samvad-hq/whatsnew-harvester/internal/logger"
)

var (
	// ErrMalformedPage marks a page payload that could not be decoded as a list.
	ErrMalformedPage = errors.New("malformed page payload")
	// ErrClosed is returned once the session owning the controller is torn down.
	ErrClosed = errors.New("feed session closed")
)

// DefaultFirstPage is the index of the first page requested from a source.
const DefaultFirstPage = 1

// PageSource fetches one page of the remote feed. An empty slice signals
// that no further pages exist.
type PageSource interface {
	FetchPage(ctx context.Context, page int) ([]domain.RawRecord, error)
}

// PageSourceFunc adapts a function to PageSource.
type PageSourceFunc func(ctx context.Context, page int) ([]domain.RawRecord, error)

// FetchPage calls f.
func (f PageSourceFunc) FetchPage(ctx context.Context, page int) ([]domain.RawRecord, error) {
	return f(ctx, page)
}

// Options configures a Controller.
type Options struct {
	Label     string
	FirstPage int
	Grouper   *Grouper
	Log       logger.Logger
}

// Update describes the outcome of one LoadNext call.
type Update struct {
	State    State
	Page     int
	Appended []domain.DisplayRecord
	HasMore  bool
	// NeedsMore is set when the page had records but none were relevant;
	// the driver should request the next page right away.
	NeedsMore bool
	// Skipped is set when the call was ignored because a load was already in
	// flight or the feed is exhausted.
	Skipped bool
}

// Controller drives incremental loading of one browsing session. It owns the
// session's FeedState; callers only read it through Snapshot.
type Controller struct {
	src     PageSource
	label   string
	grouper *Grouper
	log     logger.Logger

	mu     sync.Mutex
	feed   FeedState
	closed bool
}

// NewController builds a controller in the AwaitingFirstPage state.
func NewController(src PageSource, opts Options) *Controller {
	if opts.Label == "" {
		opts.Label = DefaultInclusionLabel
	}
	if opts.FirstPage <= 0 {
		opts.FirstPage = DefaultFirstPage
	}
	if opts.Grouper == nil {
		opts.Grouper = NewGrouper(DateFormatter{})
	}
	if opts.Log == nil {
		opts.Log = &logger.NopLogger{}
	}
	return &Controller{
		src:     src,
		label:   opts.Label,
		grouper: opts.Grouper,
		log:     opts.Log,
		feed:    newFeedState(opts.FirstPage),
	}
}

// LoadNext fetches the next page and applies it to the feed state. Calls made
// while a load is in flight or after exhaustion are no-ops. A failed fetch
// leaves the state as it was before the call.
func (c *Controller) LoadNext(ctx context.Context) (Update, error) {
	if c == nil || c.src == nil {
		return Update{}, fmt.Errorf("feed controller is not initialized")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Update{State: c.feed.State}, ErrClosed
	}
	if c.feed.State == Loading || c.feed.State == Exhausted {
		u := Update{State: c.feed.State, Page: c.feed.NextPage, HasMore: c.feed.HasMore, Skipped: true}
		c.mu.Unlock()
		return u, nil
	}
	prev := c.feed.State
	page := c.feed.NextPage
	lastLabel := c.feed.LastLabel
	c.feed.State = Loading
	c.mu.Unlock()

	batch, err := c.src.FetchPage(ctx, page)

	var appended []domain.DisplayRecord
	var relevant int
	if err == nil && len(batch) > 0 {
		picked := FilterRelevant(batch, c.label)
		relevant = len(picked)
		appended, lastLabel = c.grouper.Group(picked, lastLabel)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.log.DebugObj("discarding page loaded after session close", "feed_page", map[string]any{
			"page": page,
		})
		return Update{State: c.feed.State, Page: page}, ErrClosed
	}

	if err != nil {
		c.feed.State = prev
		return Update{State: prev, Page: page, HasMore: c.feed.HasMore}, fmt.Errorf("load page %d: %w", page, err)
	}

	c.log.DebugObj("feed page loaded", "feed_page", map[string]any{
		"page":     page,
		"records":  len(batch),
		"relevant": relevant,
	})

	switch {
	case len(batch) == 0:
		c.feed.State = Exhausted
		c.feed.HasMore = false
		return Update{State: Exhausted, Page: page}, nil
	case relevant == 0:
		c.feed.NextPage = page + 1
		c.feed.State = IdleHasMore
		return Update{State: IdleHasMore, Page: page, HasMore: true, NeedsMore: true}, nil
	default:
		c.feed.Records = append(c.feed.Records, appended...)
		c.feed.LastLabel = lastLabel
		c.feed.NextPage = page + 1
		c.feed.State = IdleHasMore
		return Update{State: IdleHasMore, Page: page, Appended: appended, HasMore: true}, nil
	}
}

// LoadVisible keeps loading until at least one record is appended, the feed
// is exhausted, or maxPages pages have been requested (0 means no limit).
func (c *Controller) LoadVisible(ctx context.Context, maxPages int) (Update, error) {
	var total Update
	for pages := 0; maxPages <= 0 || pages < maxPages; pages++ {
		u, err := c.LoadNext(ctx)
		if err != nil {
			return u, err
		}
		total.State = u.State
		total.Page = u.Page
		total.HasMore = u.HasMore
		total.Skipped = u.Skipped
		total.NeedsMore = u.NeedsMore
		total.Appended = append(total.Appended, u.Appended...)
		if !u.NeedsMore {
			break
		}
	}
	return total, nil
}

// State returns the current pagination state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feed.State
}

// HasMore reports whether further pages are likely.
func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feed.HasMore
}

// Snapshot returns a copy of the feed state.
func (c *Controller) Snapshot() FeedState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feed.clone()
}

// Close tears the session down. Results of a fetch still in flight are
// discarded when it completes.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
