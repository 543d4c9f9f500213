package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/infrastructure/cache"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/infrastructure/metrics"
)

// CachedCatalogServiceConfig holds configuration for CachedCatalogService.
type CachedCatalogServiceConfig struct {
	// VideoTTL is the TTL for cached per-video metadata.
	VideoTTL time.Duration
	// CatalogTTL is the TTL for the cached full listing. Kept shorter than
	// VideoTTL because a crawl run changes the listing as a whole.
	CatalogTTL time.Duration
}

// DefaultCachedCatalogServiceConfig returns the default configuration.
func DefaultCachedCatalogServiceConfig() CachedCatalogServiceConfig {
	return CachedCatalogServiceConfig{
		VideoTTL:   5 * time.Minute,
		CatalogTTL: time.Minute,
	}
}

// cachedCatalogService wraps CatalogService with caching capabilities.
// It implements the decorator pattern to add caching without modifying the
// underlying service.
type cachedCatalogService struct {
	delegate CatalogService
	cache    cache.CatalogCache
	sfGroup  singleflight.Group

	videoTTL   time.Duration
	catalogTTL time.Duration
}

// NewCachedCatalogService creates a new CachedCatalogService wrapping the
// provided CatalogService.
func NewCachedCatalogService(
	delegate CatalogService,
	catalogCache cache.CatalogCache,
	cfg CachedCatalogServiceConfig,
) CatalogService {
	return &cachedCatalogService{
		delegate:   delegate,
		cache:      catalogCache,
		videoTTL:   cfg.VideoTTL,
		catalogTTL: cfg.CatalogTTL,
	}
}

// ListVideos serves the full listing with caching. Singleflight coalesces
// concurrent requests so a cold cache triggers a single database scan.
func (s *cachedCatalogService) ListVideos(ctx context.Context) ([]*model.Video, error) {
	result, err, shared := s.sfGroup.Do("catalog", func() (any, error) {
		return s.listWithCache(ctx)
	})
	recordSingleflight(shared)
	if err != nil {
		return nil, err
	}
	return result.([]*model.Video), nil
}

// GetVideo retrieves a video with caching and singleflight coalescing.
func (s *cachedCatalogService) GetVideo(ctx context.Context, aid int64) (*model.Video, error) {
	result, err, shared := s.sfGroup.Do("video:"+strconv.FormatInt(aid, 10), func() (any, error) {
		return s.getVideoWithCache(ctx, aid)
	})
	recordSingleflight(shared)
	if err != nil {
		return nil, err
	}
	return result.(*model.Video), nil
}

// GetUploader always delegates. The uploader set is tiny and effectively
// static, so caching buys nothing.
func (s *cachedCatalogService) GetUploader(ctx context.Context, mid int64) (*model.Uploader, error) {
	return s.delegate.GetUploader(ctx, mid)
}

// getVideoWithCache implements the cache-aside pattern.
func (s *cachedCatalogService) getVideoWithCache(ctx context.Context, aid int64) (*model.Video, error) {
	video, err := s.cache.GetVideo(ctx, aid)
	if err != nil {
		slog.Warn("cache get failed, falling back to database",
			"aid", aid,
			"error", err,
		)
	}
	if video != nil {
		return video, nil
	}

	video, err = s.delegate.GetVideo(ctx, aid)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetVideo(ctx, video, s.videoTTL); err != nil {
		slog.Warn("failed to cache video",
			"aid", aid,
			"error", err,
		)
	}
	return video, nil
}

func (s *cachedCatalogService) listWithCache(ctx context.Context) ([]*model.Video, error) {
	videos, err := s.cache.GetCatalog(ctx)
	if err != nil {
		slog.Warn("cache get failed, falling back to database", "error", err)
	}
	if videos != nil {
		return videos, nil
	}

	videos, err = s.delegate.ListVideos(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetCatalog(ctx, videos, s.catalogTTL); err != nil {
		slog.Warn("failed to cache catalog", "error", err)
	}
	return videos, nil
}

func recordSingleflight(shared bool) {
	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}
}
