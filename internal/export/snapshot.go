// Package export materializes the archive database into versioned JSON
// snapshots consumable by the static site.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/repository"
)

const (
	currentSnapshotPath = "docs/data/videos.json"
	archiveDirName      = "archives"
	snapshotContentType = "application/json"
)

// partDoc is one video segment in the exported document.
type partDoc struct {
	Cid      int64  `json:"cid"`
	Page     int    `json:"page"`
	Part     string `json:"part"`
	Duration int64  `json:"duration"`
	Ctime    int64  `json:"ctime"`
}

// videoDoc is one video in the exported document. TouhouStatus is exported
// both numerically and as its label so the site can render without a lookup
// table.
type videoDoc struct {
	Aid              int64     `json:"aid"`
	Bvid             string    `json:"bvid"`
	Mid              int64     `json:"mid"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Pic              string    `json:"pic"`
	Created          int64     `json:"created"`
	UploaderName     string    `json:"uploader_name"`
	SeasonID         int64     `json:"season_id,omitempty"`
	Tags             []string  `json:"tags"`
	Parts            []partDoc `json:"parts"`
	TouhouStatus     int       `json:"touhou_status"`
	TouhouStatusName string    `json:"touhou_status_name"`
}

// snapshotDoc is the top-level exported document.
type snapshotDoc struct {
	GeneratedAt string     `json:"generated_at"`
	VideoCount  int        `json:"video_count"`
	Videos      []videoDoc `json:"videos"`
}

// Config holds exporter configuration.
type Config struct {
	// Dir is the root the snapshot tree is written under.
	Dir string
	// Timezone names the location used for snapshot timestamps and archive
	// file names. Defaults to Asia/Shanghai, the platform's home timezone.
	Timezone string
}

// Exporter reads the full archive and writes the current snapshot plus a
// dated archive copy. Uploading to object storage is optional.
type Exporter struct {
	repo     repository.VideoRepository
	storage  repository.SnapshotStorage // nil disables mirroring
	dir      string
	location *time.Location
	now      func() time.Time
}

// NewExporter creates an Exporter. storage may be nil.
func NewExporter(repo repository.VideoRepository, storage repository.SnapshotStorage, cfg Config) (*Exporter, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = "Asia/Shanghai"
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Exporter{
		repo:     repo,
		storage:  storage,
		dir:      cfg.Dir,
		location: location,
		now:      time.Now,
	}, nil
}

// Export writes docs/data/videos.json and archives/YYYY-MM/videos_YYYYMMDD.json
// under the configured directory, then mirrors both to object storage when one
// is configured. Files are written atomically via rename; a crash never leaves
// a truncated snapshot in place.
func (e *Exporter) Export(ctx context.Context) error {
	videos, err := e.repo.ListVideos(ctx)
	if err != nil {
		return fmt.Errorf("list videos: %w", err)
	}

	uploaders, err := e.repo.ListUploaders(ctx)
	if err != nil {
		return fmt.Errorf("list uploaders: %w", err)
	}
	names := make(map[int64]string, len(uploaders))
	for _, u := range uploaders {
		names[u.Mid] = u.Name
	}

	now := e.now().In(e.location)
	doc := buildDoc(videos, names, now)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	archivePath := path.Join(
		archiveDirName,
		now.Format("2006-01"),
		fmt.Sprintf("videos_%s.json", now.Format("20060102")),
	)

	for _, rel := range []string{currentSnapshotPath, archivePath} {
		if err := writeFileAtomic(filepath.Join(e.dir, filepath.FromSlash(rel)), data); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
	}

	slog.Info("snapshot written",
		slog.Int("videos", doc.VideoCount),
		slog.String("archive", archivePath),
	)

	if e.storage != nil {
		for _, key := range []string{currentSnapshotPath, archivePath} {
			if err := e.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), snapshotContentType); err != nil {
				return fmt.Errorf("upload %s: %w", key, err)
			}
		}
		slog.Info("snapshot mirrored to object storage")
	}

	return nil
}

func buildDoc(videos []*model.Video, uploaderNames map[int64]string, now time.Time) *snapshotDoc {
	docs := make([]videoDoc, 0, len(videos))
	for _, v := range videos {
		parts := make([]partDoc, 0, len(v.Parts))
		for _, p := range v.Parts {
			parts = append(parts, partDoc{
				Cid:      p.Cid,
				Page:     p.Page,
				Part:     p.Part,
				Duration: p.Duration,
				Ctime:    p.Ctime,
			})
		}
		tags := v.Tags
		if tags == nil {
			tags = []string{}
		}
		docs = append(docs, videoDoc{
			Aid:              v.Aid,
			Bvid:             v.Bvid,
			Mid:              v.Mid,
			Title:            v.Title,
			Description:      v.Description,
			Pic:              v.Pic,
			Created:          v.Created,
			UploaderName:     uploaderNames[v.Mid],
			SeasonID:         v.SeasonID,
			Tags:             tags,
			Parts:            parts,
			TouhouStatus:     int(v.TouhouStatus),
			TouhouStatusName: v.TouhouStatus.String(),
		})
	}
	return &snapshotDoc{
		GeneratedAt: now.Format(time.RFC3339),
		VideoCount:  len(docs),
		Videos:      docs,
	}
}

// writeFileAtomic writes data to path via a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
