package export

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/repository"
)

// fakeRepo serves a fixed catalog for exporter tests.
type fakeRepo struct {
	videos    []*model.Video
	uploaders []*model.Uploader
	listErr   error
}

func (r *fakeRepo) ListUploaderMids(ctx context.Context) ([]int64, error) { return nil, nil }

func (r *fakeRepo) GetUploader(ctx context.Context, mid int64) (*model.Uploader, error) {
	return nil, repository.ErrUploaderNotFound
}

func (r *fakeRepo) ListUploaders(ctx context.Context) ([]*model.Uploader, error) {
	return r.uploaders, nil
}

func (r *fakeRepo) SaveVideo(ctx context.Context, video *model.Video) error { return nil }

func (r *fakeRepo) GetVideo(ctx context.Context, aid int64) (*model.Video, error) {
	return nil, repository.ErrVideoNotFound
}

func (r *fakeRepo) ListVideos(ctx context.Context) ([]*model.Video, error) {
	return r.videos, r.listErr
}

// fakeStorage records uploaded keys.
type fakeStorage struct {
	keys []string
}

func (s *fakeStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return err
	}
	s.keys = append(s.keys, key)
	return nil
}

func (s *fakeStorage) Exists(ctx context.Context, key string) (bool, error) { return false, nil }

func exportedCatalog() *fakeRepo {
	return &fakeRepo{
		videos: []*model.Video{
			{
				Aid:          1001,
				Bvid:         "BV1xx411c7mD",
				Mid:          42,
				Title:        "东方星莲船 BGM",
				Created:      1700000000,
				Tags:         []string{"东方", "音乐"},
				TouhouStatus: model.StatusAutoMatch,
				Parts: []model.VideoPart{
					{Cid: 1, Page: 1, Part: "上", Duration: 300, Ctime: 1},
				},
			},
			{Aid: 2, Bvid: "BV2", Mid: 7, Title: "untitled", Created: 100},
		},
		uploaders: []*model.Uploader{
			{Mid: 42, Name: "gleaner"},
			{Mid: 7, Name: "scarlet"},
		},
	}
}

func testExporter(t *testing.T, repo repository.VideoRepository, storage repository.SnapshotStorage) (*Exporter, string) {
	t.Helper()

	dir := t.TempDir()
	e, err := NewExporter(repo, storage, Config{Dir: dir})
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	// Pin the clock so archive paths are deterministic.
	e.now = func() time.Time {
		return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	}
	return e, dir
}

func TestExporter_Export(t *testing.T) {
	repo := exportedCatalog()
	e, dir := testExporter(t, repo, nil)

	if err := e.Export(context.Background()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	// 2024-03-15 12:00 UTC is 20:00 the same day in Asia/Shanghai.
	current := filepath.Join(dir, "docs", "data", "videos.json")
	archived := filepath.Join(dir, "archives", "2024-03", "videos_20240315.json")
	for _, p := range []string{current, archived} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected snapshot at %s: %v", p, err)
		}
	}

	data, err := os.ReadFile(current)
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if doc.VideoCount != 2 || len(doc.Videos) != 2 {
		t.Fatalf("video_count = %d, videos = %d, want 2 each", doc.VideoCount, len(doc.Videos))
	}

	first := doc.Videos[0]
	if first.Aid != 1001 || first.UploaderName != "gleaner" {
		t.Errorf("first video = %+v, want aid 1001 uploaded by gleaner", first)
	}
	if first.TouhouStatus != int(model.StatusAutoMatch) || first.TouhouStatusName != "AUTO_MATCH" {
		t.Errorf("touhou_status = %d/%q, want 1/AUTO_MATCH", first.TouhouStatus, first.TouhouStatusName)
	}
	if len(first.Parts) != 1 || first.Parts[0].Cid != 1 {
		t.Errorf("parts = %v, want single part", first.Parts)
	}
	if doc.Videos[1].UploaderName != "scarlet" {
		t.Errorf("second uploader_name = %q, want scarlet", doc.Videos[1].UploaderName)
	}
	// Untagged videos serialize an empty array, not null.
	if doc.Videos[1].Tags == nil {
		t.Error("tags should be an empty array, not null")
	}

	archiveData, err := os.ReadFile(archived)
	if err != nil {
		t.Fatalf("failed to read archive copy: %v", err)
	}
	if string(archiveData) != string(data) {
		t.Error("archive copy differs from current snapshot")
	}
}

func TestExporter_Export_MirrorsToStorage(t *testing.T) {
	storage := &fakeStorage{}
	e, _ := testExporter(t, exportedCatalog(), storage)

	if err := e.Export(context.Background()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	want := []string{
		"docs/data/videos.json",
		"archives/2024-03/videos_20240315.json",
	}
	if len(storage.keys) != len(want) {
		t.Fatalf("uploaded %d objects, want %d", len(storage.keys), len(want))
	}
	for i, key := range want {
		if storage.keys[i] != key {
			t.Errorf("upload[%d] = %q, want %q", i, storage.keys[i], key)
		}
	}
}

func TestExporter_Export_EmptyCatalog(t *testing.T) {
	e, dir := testExporter(t, &fakeRepo{}, nil)

	if err := e.Export(context.Background()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "docs", "data", "videos.json"))
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if doc.VideoCount != 0 {
		t.Errorf("video_count = %d, want 0", doc.VideoCount)
	}
}

func TestExporter_Export_RepoError(t *testing.T) {
	e, _ := testExporter(t, &fakeRepo{listErr: context.DeadlineExceeded}, nil)

	if err := e.Export(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestExporter_Export_OverwritesPreviousSnapshot(t *testing.T) {
	repo := exportedCatalog()
	e, dir := testExporter(t, repo, nil)

	if err := e.Export(context.Background()); err != nil {
		t.Fatalf("first Export failed: %v", err)
	}

	repo.videos = repo.videos[:1]
	if err := e.Export(context.Background()); err != nil {
		t.Fatalf("second Export failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "docs", "data", "videos.json"))
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if doc.VideoCount != 1 {
		t.Errorf("video_count = %d, want 1 after re-export", doc.VideoCount)
	}
}

func TestNewExporter_InvalidTimezone(t *testing.T) {
	_, err := NewExporter(&fakeRepo{}, nil, Config{Dir: t.TempDir(), Timezone: "Not/AZone"})
	if err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
