package crawler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/bili"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/config"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/repository"
)

// memoryRepo is a minimal in-memory VideoRepository for orchestrator tests.
type memoryRepo struct {
	mu     sync.Mutex
	mids   []int64
	videos map[int64]*model.Video
}

func newMemoryRepo(mids ...int64) *memoryRepo {
	return &memoryRepo{mids: mids, videos: make(map[int64]*model.Video)}
}

func (r *memoryRepo) ListUploaderMids(ctx context.Context) ([]int64, error) {
	return r.mids, nil
}

func (r *memoryRepo) GetUploader(ctx context.Context, mid int64) (*model.Uploader, error) {
	return nil, repository.ErrUploaderNotFound
}

func (r *memoryRepo) ListUploaders(ctx context.Context) ([]*model.Uploader, error) {
	return nil, nil
}

func (r *memoryRepo) SaveVideo(ctx context.Context, video *model.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videos[video.Aid] = video
	return nil
}

func (r *memoryRepo) GetVideo(ctx context.Context, aid int64) (*model.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.videos[aid]; ok {
		return v, nil
	}
	return nil, repository.ErrVideoNotFound
}

func (r *memoryRepo) ListVideos(ctx context.Context) ([]*model.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Video, 0, len(r.videos))
	for _, v := range r.videos {
		out = append(out, v)
	}
	return out, nil
}

// savingService persists queue items straight to the repo.
type savingService struct {
	repo *memoryRepo
}

func (s *savingService) ProcessVideo(ctx context.Context, video *model.Video) error {
	return s.repo.SaveVideo(ctx, video)
}

func zeroSwitchPolicy() *UserSwitchPolicy {
	return NewUserSwitchPolicy(config.UserSwitchConfig{})
}

func TestOrchestrator_Run_ProcessesAllUploaders(t *testing.T) {
	// Two uploaders, 7 and 3 videos respectively, distinct aid ranges.
	lister := &fakeLister{
		pageFn: func(mid int64, pageNum, pageSize int) (*bili.VideoPage, error) {
			total := 7
			base := int64(100)
			if mid == 2 {
				total = 3
				base = 200
			}
			page := &bili.VideoPage{Page: pageNum, Total: total}
			for i := 0; i < total; i++ {
				page.Videos = append(page.Videos, listingVideo(base+int64(i), 0))
			}
			return page, nil
		},
	}

	repo := newMemoryRepo(1, 2)
	policy := zeroSwitchPolicy()
	producer := NewProducer(lister, ProducerConfig{PageSize: 50, RetryTimes: 1, RetryDelay: time.Millisecond}, policy)
	pool := NewWorkerPool(&savingService{repo: repo}, 3)

	orchestrator := NewOrchestrator(producer, pool, repo, policy, 4)
	if err := orchestrator.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(repo.videos) != 10 {
		t.Errorf("archived %d videos, want 10", len(repo.videos))
	}
	if _, err := repo.GetVideo(context.Background(), 106); err != nil {
		t.Error("expected uploader 1 videos to be archived")
	}
	if _, err := repo.GetVideo(context.Background(), 202); err != nil {
		t.Error("expected uploader 2 videos to be archived")
	}
}

func TestOrchestrator_Run_NoUploaders(t *testing.T) {
	repo := newMemoryRepo()
	policy := zeroSwitchPolicy()
	producer := NewProducer(&fakeLister{pageFn: pagedCatalog(0)}, ProducerConfig{}, policy)
	pool := NewWorkerPool(&savingService{repo: repo}, 2)

	orchestrator := NewOrchestrator(producer, pool, repo, policy, 0)
	if err := orchestrator.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestOrchestrator_Run_AbortedUploaderDoesNotBlockNext(t *testing.T) {
	// Uploader 1 fails every listing attempt; uploader 2 succeeds. The run
	// must still archive uploader 2's catalog.
	lister := &fakeLister{
		pageFn: func(mid int64, pageNum, pageSize int) (*bili.VideoPage, error) {
			if mid == 1 {
				return nil, errTestUpstream
			}
			return &bili.VideoPage{
				Page:   1,
				Total:  1,
				Videos: []*model.Video{listingVideo(301, 0)},
			}, nil
		},
	}

	repo := newMemoryRepo(1, 2)
	policy := zeroSwitchPolicy()
	producer := NewProducer(lister, ProducerConfig{PageSize: 50, RetryTimes: 1, RetryDelay: time.Millisecond}, policy)
	pool := NewWorkerPool(&savingService{repo: repo}, 2)

	orchestrator := NewOrchestrator(producer, pool, repo, policy, 4)
	if err := orchestrator.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(repo.videos) != 1 {
		t.Errorf("archived %d videos, want 1", len(repo.videos))
	}
	if _, err := repo.GetVideo(context.Background(), 301); err != nil {
		t.Error("expected uploader 2's video despite uploader 1 aborting")
	}
}

func TestOrchestrator_Run_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := newMemoryRepo(1)
	policy := zeroSwitchPolicy()
	producer := NewProducer(&fakeLister{pageFn: pagedCatalog(5)}, ProducerConfig{}, policy)
	pool := NewWorkerPool(&savingService{repo: repo}, 2)

	orchestrator := NewOrchestrator(producer, pool, repo, policy, 4)
	if err := orchestrator.Run(ctx); err == nil {
		t.Fatal("expected context error, got nil")
	}
}

var errTestUpstream = errors.New("upstream 500")
