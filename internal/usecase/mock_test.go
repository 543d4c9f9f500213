package usecase

import (
	"context"
	"time"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/repository"
)

// mockVideoRepository provides a configurable mock for VideoRepository.
type mockVideoRepository struct {
	listUploaderMidsFn func(ctx context.Context) ([]int64, error)
	getUploaderFn      func(ctx context.Context, mid int64) (*model.Uploader, error)
	listUploadersFn    func(ctx context.Context) ([]*model.Uploader, error)
	saveVideoFn        func(ctx context.Context, video *model.Video) error
	getVideoFn         func(ctx context.Context, aid int64) (*model.Video, error)
	listVideosFn       func(ctx context.Context) ([]*model.Video, error)
}

func (m *mockVideoRepository) ListUploaderMids(ctx context.Context) ([]int64, error) {
	if m.listUploaderMidsFn != nil {
		return m.listUploaderMidsFn(ctx)
	}
	return nil, nil
}

func (m *mockVideoRepository) GetUploader(ctx context.Context, mid int64) (*model.Uploader, error) {
	if m.getUploaderFn != nil {
		return m.getUploaderFn(ctx, mid)
	}
	return nil, nil
}

func (m *mockVideoRepository) ListUploaders(ctx context.Context) ([]*model.Uploader, error) {
	if m.listUploadersFn != nil {
		return m.listUploadersFn(ctx)
	}
	return nil, nil
}

func (m *mockVideoRepository) SaveVideo(ctx context.Context, video *model.Video) error {
	if m.saveVideoFn != nil {
		return m.saveVideoFn(ctx, video)
	}
	return nil
}

func (m *mockVideoRepository) GetVideo(ctx context.Context, aid int64) (*model.Video, error) {
	if m.getVideoFn != nil {
		return m.getVideoFn(ctx, aid)
	}
	return nil, nil
}

func (m *mockVideoRepository) ListVideos(ctx context.Context) ([]*model.Video, error) {
	if m.listVideosFn != nil {
		return m.listVideosFn(ctx)
	}
	return nil, nil
}

// mockEnricher provides a configurable mock for VideoEnricher.
type mockEnricher struct {
	getPartsFn func(ctx context.Context, bvid string) ([]model.VideoPart, error)
	getTagsFn  func(ctx context.Context, bvid string) ([]string, error)
}

func (m *mockEnricher) GetParts(ctx context.Context, bvid string) ([]model.VideoPart, error) {
	if m.getPartsFn != nil {
		return m.getPartsFn(ctx, bvid)
	}
	return nil, nil
}

func (m *mockEnricher) GetTags(ctx context.Context, bvid string) ([]string, error) {
	if m.getTagsFn != nil {
		return m.getTagsFn(ctx, bvid)
	}
	return nil, nil
}

// mockEventPublisher provides a configurable mock for EventPublisher.
type mockEventPublisher struct {
	publishArchivedFn func(ctx context.Context, event repository.ArchivedEvent) error
	closeFn           func() error
}

func (m *mockEventPublisher) PublishArchived(ctx context.Context, event repository.ArchivedEvent) error {
	if m.publishArchivedFn != nil {
		return m.publishArchivedFn(ctx, event)
	}
	return nil
}

func (m *mockEventPublisher) Close() error {
	if m.closeFn != nil {
		return m.closeFn()
	}
	return nil
}

// mockCatalogCache provides a configurable mock for cache.CatalogCache.
type mockCatalogCache struct {
	getVideoFn          func(ctx context.Context, aid int64) (*model.Video, error)
	setVideoFn          func(ctx context.Context, video *model.Video, ttl time.Duration) error
	getCatalogFn        func(ctx context.Context) ([]*model.Video, error)
	setCatalogFn        func(ctx context.Context, videos []*model.Video, ttl time.Duration) error
	invalidateCatalogFn func(ctx context.Context) error
}

func (m *mockCatalogCache) GetVideo(ctx context.Context, aid int64) (*model.Video, error) {
	if m.getVideoFn != nil {
		return m.getVideoFn(ctx, aid)
	}
	return nil, nil
}

func (m *mockCatalogCache) SetVideo(ctx context.Context, video *model.Video, ttl time.Duration) error {
	if m.setVideoFn != nil {
		return m.setVideoFn(ctx, video, ttl)
	}
	return nil
}

func (m *mockCatalogCache) GetCatalog(ctx context.Context) ([]*model.Video, error) {
	if m.getCatalogFn != nil {
		return m.getCatalogFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalogCache) SetCatalog(ctx context.Context, videos []*model.Video, ttl time.Duration) error {
	if m.setCatalogFn != nil {
		return m.setCatalogFn(ctx, videos, ttl)
	}
	return nil
}

func (m *mockCatalogCache) InvalidateCatalog(ctx context.Context) error {
	if m.invalidateCatalogFn != nil {
		return m.invalidateCatalogFn(ctx)
	}
	return nil
}
