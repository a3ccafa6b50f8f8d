package announcer

import (
	"context"

	"github.com/samvad-hq/whatsnew-harvester/pkg/publishers"
)

// EventPublisher publishes new changelog entries downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Ledger remembers which entries were already announced.
type Ledger interface {
	SeenEntry(key string) (bool, error)
	MarkEntry(key string) error
}
