package changelog

import (
	"encoding/json"
	"testing"

	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
)

func TestStateTextRoundTrip(t *testing.T) {
	raw, err := json.Marshal(map[string]State{"state": IdleHasMore})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"state":"idle_has_more"}` {
		t.Fatalf("unexpected encoding %s", raw)
	}

	var decoded map[string]State
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["state"] != IdleHasMore {
		t.Fatalf("decoded %v, want %v", decoded["state"], IdleHasMore)
	}

	var st State
	if err := st.UnmarshalText([]byte("sleeping")); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := NewController(PageSourceFunc(nil), Options{})
	c.feed.Records = append(c.feed.Records, domain.DisplayRecord{ID: 1, Title: "original"})

	snap := c.Snapshot()
	snap.Records[0].Title = "changed"
	if got := c.Snapshot().Records[0].Title; got != "original" {
		t.Fatalf("snapshot aliases controller records, title now %q", got)
	}
}
