package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/repository"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/infrastructure/metrics"
)

// VideoEnricher fetches the per-video sub-resources (parts and tags).
// Implemented by the bili API client.
type VideoEnricher interface {
	GetParts(ctx context.Context, bvid string) ([]model.VideoPart, error)
	GetTags(ctx context.Context, bvid string) ([]string, error)
}

// ArchiveService defines the per-item business logic of the worker pool:
// enrich one discovered video, classify it, and persist it atomically.
type ArchiveService interface {
	ProcessVideo(ctx context.Context, video *model.Video) error
}

type archiveService struct {
	enricher VideoEnricher
	repo     repository.VideoRepository
	events   repository.EventPublisher // nil when events are disabled

	// sem bounds concurrent in-flight sub-requests across the worker pool.
	// A permit is held for the duration of one item's two sub-fetches.
	sem chan struct{}
}

// NewArchiveService creates the enrichment service. maxInflight is the
// permit count shared by all workers; events may be nil.
func NewArchiveService(
	enricher VideoEnricher,
	repo repository.VideoRepository,
	events repository.EventPublisher,
	maxInflight int,
) ArchiveService {
	if maxInflight <= 0 {
		maxInflight = 1
	}
	return &archiveService{
		enricher: enricher,
		repo:     repo,
		events:   events,
		sem:      make(chan struct{}, maxInflight),
	}
}

// ProcessVideo fetches parts and tags concurrently under one permit, strips
// internal marker tags, classifies, and saves the video with its parts in a
// single transaction.
func (s *archiveService) ProcessVideo(ctx context.Context, video *model.Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	var (
		parts []model.VideoPart
		tags  []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		parts, err = s.enricher.GetParts(gctx, video.Bvid)
		if err != nil {
			return fmt.Errorf("fetch parts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		tags, err = s.enricher.GetTags(gctx, video.Bvid)
		if err != nil {
			return fmt.Errorf("fetch tags: %w", err)
		}
		return nil
	})
	err := g.Wait()
	<-s.sem
	if err != nil {
		return err
	}

	video.Tags = FilterTags(tags)
	video.Parts = parts
	video.TouhouStatus = Classify(video.Tags)

	if err := s.repo.SaveVideo(ctx, video); err != nil {
		return fmt.Errorf("save video: %w", err)
	}
	metrics.VideosArchivedTotal.Inc()

	s.publishArchived(ctx, video)

	slog.Info("video archived",
		slog.String("bvid", video.Bvid),
		slog.Int64("aid", video.Aid),
		slog.Int("parts", len(video.Parts)),
		slog.String("status", video.TouhouStatus.String()),
	)
	return nil
}

// publishArchived emits the archive event when a publisher is configured.
// Delivery is best-effort and never fails the item.
func (s *archiveService) publishArchived(ctx context.Context, video *model.Video) {
	if s.events == nil {
		return
	}
	event := repository.ArchivedEvent{
		Aid:          video.Aid,
		Bvid:         video.Bvid,
		Mid:          video.Mid,
		Title:        video.Title,
		TouhouStatus: int(video.TouhouStatus),
		Parts:        len(video.Parts),
	}
	if err := s.events.PublishArchived(ctx, event); err != nil {
		slog.Warn("failed to publish archive event",
			slog.String("bvid", video.Bvid),
			slog.String("error", err.Error()),
		)
	}
}
