package publishers

import (
	"strconv"
	"time"

	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
)

// Event is the payload announced downstream for one new changelog entry.
type Event struct {
	SourceID    string               `json:"source_id"`
	SourceName  string               `json:"source_name"`
	Entry       domain.DisplayRecord `json:"entry"`
	CollectedAt time.Time            `json:"collected_at"`
}

// NewEvent constructs an Event for the given source + entry.
func NewEvent(sourceID, sourceName string, entry domain.DisplayRecord) Event {
	return Event{
		SourceID:    sourceID,
		SourceName:  sourceName,
		Entry:       entry,
		CollectedAt: time.Now().UTC(),
	}
}

// attributes are the routing attributes attached to broker messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"source_id": e.SourceID,
		"entry_id":  strconv.FormatInt(e.Entry.ID, 10),
	}
}
