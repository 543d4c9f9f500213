package repository

import "context"

// ArchivedEvent announces that one video has been archived or refreshed.
type ArchivedEvent struct {
	Aid          int64  `json:"aid"`
	Bvid         string `json:"bvid"`
	Mid          int64  `json:"mid"`
	Title        string `json:"title"`
	TouhouStatus int    `json:"touhou_status"`
	Parts        int    `json:"parts"`
}

// EventPublisher defines the interface for emitting archive events.
// Publishing is best-effort: the pipeline never fails an item because an
// event could not be delivered.
type EventPublisher interface {
	// PublishArchived sends an ArchivedEvent to downstream consumers.
	PublishArchived(ctx context.Context, event ArchivedEvent) error

	// Close gracefully closes the connection to the broker.
	Close() error
}
