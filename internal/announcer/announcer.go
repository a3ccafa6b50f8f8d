package announcer

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/whatsnew-harvester/internal/changelog"
	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
	"github.com/samvad-hq/whatsnew-harvester/internal/logger"
	"github.com/samvad-hq/whatsnew-harvester/internal/storage"
	"github.com/samvad-hq/whatsnew-harvester/pkg/publishers"
	"github.com/samvad-hq/whatsnew-harvester/pkg/sources"
)

// DefaultMaxPages bounds how deep one pass walks into a feed.
const DefaultMaxPages = 3

// Options tunes an announce pass.
type Options struct {
	MaxPages int
	Grouper  *changelog.Grouper
}

// Service walks each source's feed with a fresh controller and announces
// entries the ledger has not seen yet.
type Service struct {
	registry  sources.FetcherRegistry
	publisher EventPublisher
	ledger    Ledger
	log       logger.Logger
	grouper   *changelog.Grouper
	maxPages  int
}

// NewService wires an announcer with the source fetcher registry.
func NewService(reg sources.FetcherRegistry, pub EventPublisher, log logger.Logger, ledger Ledger, opts Options) *Service {
	if log == nil {
		log = &logger.NopLogger{}
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Grouper == nil {
		opts.Grouper = changelog.NewGrouper(changelog.DateFormatter{})
	}
	return &Service{
		registry:  reg,
		publisher: pub,
		ledger:    ledger,
		log:       log,
		grouper:   opts.Grouper,
		maxPages:  opts.MaxPages,
	}
}

// Run executes an announce pass for all configured sources.
func (s *Service) Run(ctx context.Context, srcs []sources.Source) error {
	if s == nil || s.registry == nil {
		return fmt.Errorf("announcer service is not initialized")
	}
	if len(srcs) == 0 {
		return fmt.Errorf("no sources configured for announcing")
	}
	return errors.Join(s.runAll(ctx, srcs)...)
}

func (s *Service) runAll(ctx context.Context, srcs []sources.Source) []error {
	errs := make([]error, 0, len(srcs))
	for _, src := range srcs {
		if ctx.Err() != nil {
			break
		}
		n, err := s.Announce(ctx, src)
		if err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("source announce failed", "source_error", map[string]any{
				"source_id": src.ID,
				"error":     err.Error(),
			})
			continue
		}
		s.log.InfoObj("source announce completed", "source_result", map[string]any{
			"source_id":         src.ID,
			"entries_announced": n,
		})
	}
	return errs
}

// Announce loads up to the configured number of pages of src and publishes
// every entry not yet in the ledger. It returns how many entries were
// announced; entries published before a failing page still count.
func (s *Service) Announce(ctx context.Context, src sources.Source) (int, error) {
	ps, err := sources.PageSource(s.registry, src)
	if err != nil {
		return 0, err
	}

	ctrl := changelog.NewController(ps, changelog.Options{
		Label:   src.Label,
		Grouper: s.grouper,
		Log:     s.log,
	})
	defer ctrl.Close()

	var (
		announced int
		errs      []error
	)
	for page := 0; page < s.maxPages; page++ {
		u, err := ctrl.LoadNext(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src.ID, err))
			break
		}
		n, err := s.publishFresh(ctx, src, u.Appended)
		announced += n
		if err != nil {
			errs = append(errs, err)
		}
		if u.State == changelog.Exhausted {
			break
		}
	}
	return announced, errors.Join(errs...)
}

func (s *Service) publishFresh(ctx context.Context, src sources.Source, entries []domain.DisplayRecord) (int, error) {
	var (
		published int
		errs      []error
	)
	for _, entry := range s.filterNewEntries(src, entries) {
		if s.publisher == nil {
			break
		}
		evt := publishers.NewEvent(src.ID, src.Name, entry)
		n, err := s.publisher.Publish(ctx, evt)
		if err != nil {
			errs = append(errs, fmt.Errorf("publish entry %d of %s: %w", entry.ID, src.ID, err))
		}
		if n == 0 {
			continue
		}
		published++
		s.markEntry(src, entry)
	}
	return published, errors.Join(errs...)
}

// filterNewEntries drops entries already announced. Ledger lookup failures
// let the entry through.
func (s *Service) filterNewEntries(src sources.Source, entries []domain.DisplayRecord) []domain.DisplayRecord {
	if s.ledger == nil || len(entries) == 0 {
		return entries
	}
	out := make([]domain.DisplayRecord, 0, len(entries))
	for _, entry := range entries {
		seen, err := s.ledger.SeenEntry(storage.EntryKey(src.ID, entry.ID))
		if err != nil {
			s.log.WarnObj("ledger lookup failed", "ledger_error", map[string]any{
				"source_id": src.ID,
				"entry_id":  entry.ID,
				"error":     err.Error(),
			})
		}
		if seen {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func (s *Service) markEntry(src sources.Source, entry domain.DisplayRecord) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.MarkEntry(storage.EntryKey(src.ID, entry.ID)); err != nil {
		s.log.WarnObj("ledger mark failed", "ledger_error", map[string]any{
			"source_id": src.ID,
			"entry_id":  entry.ID,
			"error":     err.Error(),
		})
	}
}
