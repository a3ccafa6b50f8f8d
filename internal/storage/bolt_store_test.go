package storage

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func TestBoltStoreMarksAndExpiresEntries(t *testing.T) {
	opts := Options{
		EntryTTL:        time.Hour,
		CleanupInterval: 2 * time.Hour,
	}

	store, err := openBolt(filepath.Join(t.TempDir(), "nested", "ledger.db"), opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer store.Close()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	key := EntryKey("hubs", 42)
	seen, err := store.SeenEntry(key)
	if err != nil || seen {
		t.Fatalf("expected unseen entry, seen=%v err=%v", seen, err)
	}

	if err := store.MarkEntry(key); err != nil {
		t.Fatalf("MarkEntry: %v", err)
	}

	seen, err = store.SeenEntry(key)
	if err != nil || !seen {
		t.Fatalf("expected entry marked as seen, got seen=%v err=%v", seen, err)
	}

	clock = clock.Add(61 * time.Minute)
	seen, err = store.SeenEntry(key)
	if err != nil {
		t.Fatalf("SeenEntry after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire")
	}
}

func TestBoltStoreCleanupSweepsExpired(t *testing.T) {
	store, err := openBolt(filepath.Join(t.TempDir(), "ledger.db"), Options{
		EntryTTL:        time.Minute,
		CleanupInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer store.Close()

	clock := time.Now()
	store.now = func() time.Time { return clock }
	store.lastCleanup.Store(clock.Unix())

	for _, key := range []string{"a/1", "a/2"} {
		if err := store.MarkEntry(key); err != nil {
			t.Fatalf("MarkEntry %s: %v", key, err)
		}
	}

	clock = clock.Add(2 * time.Hour)
	if err := store.maybeCleanupExpired(clock); err != nil {
		t.Fatalf("maybeCleanupExpired: %v", err)
	}

	if got := countKeys(t, store); got != 0 {
		t.Fatalf("expected sweep to remove all keys, %d left", got)
	}
}

func countKeys(t *testing.T, store *boltStore) int {
	t.Helper()
	n := 0
	if err := store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(entryBucket)).ForEach(func(_, _ []byte) error {
			n++
			return nil
		})
	}); err != nil {
		t.Fatalf("count keys: %v", err)
	}
	return n
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkEntry("x"); err != nil {
		t.Fatalf("noop store MarkEntry: %v", err)
	}
	if seen, _ := store.SeenEntry("x"); seen {
		t.Fatalf("noop store should never report entries as seen")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported storage type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing bbolt path")
	}
}

func TestEntryKey(t *testing.T) {
	if got := EntryKey("hubs", 7); got != "hubs/7" {
		t.Fatalf("EntryKey = %q", got)
	}
}
