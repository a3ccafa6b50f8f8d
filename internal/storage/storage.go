package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Package storage keeps the announcer's ledger of changelog entries already
// published downstream. Browsing sessions never touch it.

// Store tracks announced entry keys.
type Store interface {
	Close() error
	SeenEntry(key string) (bool, error)
	MarkEntry(key string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultEntryTTL        = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// EntryKey builds the ledger key for a record of a source.
func EntryKey(sourceID string, recordID int64) string {
	return sourceID + "/" + strconv.FormatInt(recordID, 10)
}

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		store, err := openBolt(path, opts)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                   { return nil }
func (noopStore) SeenEntry(string) (bool, error) { return false, nil }
func (noopStore) MarkEntry(string) error         { return nil }
