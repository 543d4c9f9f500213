package cache

import (
	"context"
	"time"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
)

// CatalogCache defines the interface for caching archived catalog data.
// Implementations should handle serialization/deserialization transparently.
type CatalogCache interface {
	// GetVideo retrieves a video from cache by aid.
	// Returns nil, nil if the video is not found in cache (cache miss).
	GetVideo(ctx context.Context, aid int64) (*model.Video, error)

	// SetVideo stores a video in cache with the specified TTL.
	SetVideo(ctx context.Context, video *model.Video, ttl time.Duration) error

	// GetCatalog retrieves the full video listing from cache.
	// Returns nil, nil on cache miss.
	GetCatalog(ctx context.Context) ([]*model.Video, error)

	// SetCatalog stores the full video listing with the specified TTL.
	SetCatalog(ctx context.Context, videos []*model.Video, ttl time.Duration) error

	// InvalidateCatalog removes the full listing from cache. Called after a
	// crawl run lands new data. Returns nil if nothing was cached.
	InvalidateCatalog(ctx context.Context) error
}
