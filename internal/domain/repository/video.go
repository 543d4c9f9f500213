package repository

import (
	"context"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
)

// VideoRepository defines the interface for video persistence operations.
// Implementations should be provided by the infrastructure layer (e.g. SQLite).
type VideoRepository interface {
	// ListUploaderMids returns the mids of all uploaders scheduled for crawling.
	ListUploaderMids(ctx context.Context) ([]int64, error)

	// GetUploader retrieves a single uploader by mid.
	// Returns ErrUploaderNotFound if the uploader does not exist.
	GetUploader(ctx context.Context, mid int64) (*model.Uploader, error)

	// ListUploaders returns all configured uploaders with their names.
	ListUploaders(ctx context.Context) ([]*model.Uploader, error)

	// SaveVideo atomically upserts the video row and replaces its part rows.
	// Either the video and all of its parts are committed, or nothing is.
	// A stored confirmed touhou_status is preserved across re-ingestion.
	SaveVideo(ctx context.Context, video *model.Video) error

	// GetVideo retrieves a single archived video (with parts and tags).
	// Returns ErrVideoNotFound if the video has not been archived.
	GetVideo(ctx context.Context, aid int64) (*model.Video, error)

	// ListVideos returns every archived video, newest first, parts included.
	ListVideos(ctx context.Context) ([]*model.Video, error)
}
