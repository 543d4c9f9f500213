package usecase

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/repository"
)

func testVideo() *model.Video {
	return &model.Video{
		Aid:     1001,
		Bvid:    "BV1xx411c7mD",
		Mid:     42,
		Title:   "东方永夜抄 BGM 合集",
		Created: 1700000000,
	}
}

func TestArchiveService_ProcessVideo(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(enricher *mockEnricher, repo *mockVideoRepository)
		wantErr   bool
		checkFn   func(t *testing.T, saved *model.Video)
	}{
		{
			name: "enriches, classifies and saves",
			setupMock: func(enricher *mockEnricher, repo *mockVideoRepository) {
				enricher.getPartsFn = func(ctx context.Context, bvid string) ([]model.VideoPart, error) {
					return []model.VideoPart{
						{Cid: 1, Page: 1, Part: "上", Duration: 300},
						{Cid: 2, Page: 2, Part: "下", Duration: 280},
					}, nil
				}
				enricher.getTagsFn = func(ctx context.Context, bvid string) ([]string, error) {
					return []string{"$发现《东方》^", "东方Project", "音乐"}, nil
				}
			},
			checkFn: func(t *testing.T, saved *model.Video) {
				if saved == nil {
					t.Fatal("expected video to be saved")
				}
				wantTags := []string{"东方Project", "音乐"}
				if !reflect.DeepEqual(saved.Tags, wantTags) {
					t.Errorf("Tags = %v, want %v", saved.Tags, wantTags)
				}
				if len(saved.Parts) != 2 {
					t.Errorf("Parts = %d, want 2", len(saved.Parts))
				}
				if saved.TouhouStatus != model.StatusAutoMatch {
					t.Errorf("TouhouStatus = %v, want %v", saved.TouhouStatus, model.StatusAutoMatch)
				}
			},
		},
		{
			name: "non-matching tags classified as auto no-match",
			setupMock: func(enricher *mockEnricher, repo *mockVideoRepository) {
				enricher.getTagsFn = func(ctx context.Context, bvid string) ([]string, error) {
					return []string{"音乐", "钢琴"}, nil
				}
			},
			checkFn: func(t *testing.T, saved *model.Video) {
				if saved.TouhouStatus != model.StatusAutoNoMatch {
					t.Errorf("TouhouStatus = %v, want %v", saved.TouhouStatus, model.StatusAutoNoMatch)
				}
			},
		},
		{
			name: "parts fetch failure skips save",
			setupMock: func(enricher *mockEnricher, repo *mockVideoRepository) {
				enricher.getPartsFn = func(ctx context.Context, bvid string) ([]model.VideoPart, error) {
					return nil, errors.New("upstream 500")
				}
			},
			wantErr: true,
		},
		{
			name: "tags fetch failure skips save",
			setupMock: func(enricher *mockEnricher, repo *mockVideoRepository) {
				enricher.getTagsFn = func(ctx context.Context, bvid string) ([]string, error) {
					return nil, errors.New("upstream 500")
				}
			},
			wantErr: true,
		},
		{
			name: "save failure propagates",
			setupMock: func(enricher *mockEnricher, repo *mockVideoRepository) {
				repo.saveVideoFn = func(ctx context.Context, video *model.Video) error {
					return errors.New("disk full")
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enricher := &mockEnricher{}
			repo := &mockVideoRepository{}

			var (
				mu    sync.Mutex
				saved *model.Video
			)
			defaultSave := func(ctx context.Context, video *model.Video) error {
				mu.Lock()
				saved = video
				mu.Unlock()
				return nil
			}
			repo.saveVideoFn = defaultSave
			tt.setupMock(enricher, repo)

			svc := NewArchiveService(enricher, repo, nil, 2)
			err := svc.ProcessVideo(context.Background(), testVideo())

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if saved != nil {
					t.Error("expected no save on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("ProcessVideo failed: %v", err)
			}
			if tt.checkFn != nil {
				tt.checkFn(t, saved)
			}
		})
	}
}

func TestArchiveService_ProcessVideo_PublishesEvent(t *testing.T) {
	enricher := &mockEnricher{
		getPartsFn: func(ctx context.Context, bvid string) ([]model.VideoPart, error) {
			return []model.VideoPart{{Cid: 1, Page: 1}}, nil
		},
		getTagsFn: func(ctx context.Context, bvid string) ([]string, error) {
			return []string{"Touhou"}, nil
		},
	}
	repo := &mockVideoRepository{}

	var published *repository.ArchivedEvent
	events := &mockEventPublisher{
		publishArchivedFn: func(ctx context.Context, event repository.ArchivedEvent) error {
			published = &event
			return nil
		},
	}

	svc := NewArchiveService(enricher, repo, events, 1)
	if err := svc.ProcessVideo(context.Background(), testVideo()); err != nil {
		t.Fatalf("ProcessVideo failed: %v", err)
	}

	if published == nil {
		t.Fatal("expected event to be published")
	}
	if published.Aid != 1001 || published.Parts != 1 {
		t.Errorf("event = %+v, want aid 1001 with 1 part", published)
	}
	if published.TouhouStatus != int(model.StatusAutoMatch) {
		t.Errorf("event status = %d, want %d", published.TouhouStatus, model.StatusAutoMatch)
	}
}

func TestArchiveService_ProcessVideo_PublishFailureDoesNotFailItem(t *testing.T) {
	enricher := &mockEnricher{}
	repo := &mockVideoRepository{}
	events := &mockEventPublisher{
		publishArchivedFn: func(ctx context.Context, event repository.ArchivedEvent) error {
			return errors.New("broker down")
		},
	}

	svc := NewArchiveService(enricher, repo, events, 1)
	if err := svc.ProcessVideo(context.Background(), testVideo()); err != nil {
		t.Fatalf("ProcessVideo failed: %v", err)
	}
}

func TestArchiveService_ProcessVideo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewArchiveService(&mockEnricher{}, &mockVideoRepository{}, nil, 1)
	if err := svc.ProcessVideo(ctx, testVideo()); !errors.Is(err, context.Canceled) {
		t.Errorf("ProcessVideo = %v, want context.Canceled", err)
	}
}
