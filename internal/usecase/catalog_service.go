package usecase

import (
	"context"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/repository"
)

// CatalogService defines the read-side operations over the archive.
type CatalogService interface {
	// ListVideos returns every archived video, newest first.
	ListVideos(ctx context.Context) ([]*model.Video, error)

	// GetVideo retrieves a single archived video by aid.
	GetVideo(ctx context.Context, aid int64) (*model.Video, error)

	// GetUploader retrieves an uploader by mid.
	GetUploader(ctx context.Context, mid int64) (*model.Uploader, error)
}

type catalogService struct {
	repo repository.VideoRepository
}

// NewCatalogService creates a new CatalogService instance.
func NewCatalogService(repo repository.VideoRepository) CatalogService {
	return &catalogService{repo: repo}
}

func (s *catalogService) ListVideos(ctx context.Context) ([]*model.Video, error) {
	return s.repo.ListVideos(ctx)
}

func (s *catalogService) GetVideo(ctx context.Context, aid int64) (*model.Video, error) {
	return s.repo.GetVideo(ctx, aid)
}

func (s *catalogService) GetUploader(ctx context.Context, mid int64) (*model.Uploader, error) {
	return s.repo.GetUploader(ctx, mid)
}
