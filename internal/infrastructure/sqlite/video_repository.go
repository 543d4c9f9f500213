package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/repository"
)

// VideoRepository implements repository.VideoRepository on SQLite.
type VideoRepository struct {
	db *sql.DB
}

// NewVideoRepository creates a new VideoRepository instance.
func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// ListUploaderMids returns the mids of all uploaders scheduled for crawling.
func (r *VideoRepository) ListUploaderMids(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT mid FROM users ORDER BY mid")
	if err != nil {
		return nil, fmt.Errorf("query uploaders: %w", err)
	}
	defer rows.Close()

	var mids []int64
	for rows.Next() {
		var mid int64
		if err := rows.Scan(&mid); err != nil {
			return nil, fmt.Errorf("scan uploader mid: %w", err)
		}
		mids = append(mids, mid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploaders: %w", err)
	}
	return mids, nil
}

// GetUploader retrieves a single uploader by mid.
func (r *VideoRepository) GetUploader(ctx context.Context, mid int64) (*model.Uploader, error) {
	var u model.Uploader
	err := r.db.QueryRowContext(ctx, "SELECT mid, name FROM users WHERE mid = ?", mid).Scan(&u.Mid, &u.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUploaderNotFound
		}
		return nil, fmt.Errorf("get uploader: %w", err)
	}
	return &u, nil
}

// ListUploaders returns all configured uploaders with their names.
func (r *VideoRepository) ListUploaders(ctx context.Context) ([]*model.Uploader, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT mid, name FROM users ORDER BY mid")
	if err != nil {
		return nil, fmt.Errorf("query uploaders: %w", err)
	}
	defer rows.Close()

	var uploaders []*model.Uploader
	for rows.Next() {
		var u model.Uploader
		if err := rows.Scan(&u.Mid, &u.Name); err != nil {
			return nil, fmt.Errorf("scan uploader: %w", err)
		}
		uploaders = append(uploaders, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploaders: %w", err)
	}
	return uploaders, nil
}

// SaveUploader inserts or updates an uploader record. Used by bootstrap
// tooling and tests; the acquisition pipeline itself never mutates uploaders.
func (r *VideoRepository) SaveUploader(ctx context.Context, uploader *model.Uploader) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (mid, name) VALUES (?, ?)
		ON CONFLICT(mid) DO UPDATE SET name = excluded.name
	`, uploader.Mid, uploader.Name)
	if err != nil {
		return fmt.Errorf("save uploader: %w", err)
	}
	return nil
}

// SaveVideo atomically upserts the video row and replaces its part rows.
// The stored status is resolved through TouhouStatus.Merge inside the
// transaction, so a confirmed value survives re-ingestion. The transaction
// commits fully or rolls back fully.
func (r *VideoRepository) SaveVideo(ctx context.Context, video *model.Video) error {
	if err := video.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	status := video.TouhouStatus
	var stored int
	switch err := tx.QueryRowContext(ctx,
		"SELECT touhou_status FROM videos WHERE aid = ?", video.Aid,
	).Scan(&stored); {
	case err == nil:
		status = model.TouhouStatus(stored).Merge(video.TouhouStatus)
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fmt.Errorf("read stored status: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO videos (aid, bvid, mid, title, description, pic, created, tags, season_id, touhou_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(aid) DO UPDATE SET
			bvid          = excluded.bvid,
			mid           = excluded.mid,
			title         = excluded.title,
			description   = excluded.description,
			pic           = excluded.pic,
			created       = excluded.created,
			tags          = excluded.tags,
			season_id     = excluded.season_id,
			touhou_status = excluded.touhou_status
	`,
		video.Aid, video.Bvid, video.Mid, video.Title, video.Description,
		video.Pic, video.Created, strings.Join(video.Tags, ","), video.SeasonID,
		int(status),
	)
	if err != nil {
		return fmt.Errorf("upsert video: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM video_parts WHERE aid = ?", video.Aid); err != nil {
		return fmt.Errorf("clear parts: %w", err)
	}
	for _, part := range video.Parts {
		// Plain INSERT: a cid already owned by another video is a conflict
		// that must fail the transaction, not silently move the row.
		_, err := tx.ExecContext(ctx, `
			INSERT INTO video_parts (cid, aid, page, part, duration, ctime)
			VALUES (?, ?, ?, ?, ?, ?)
		`, part.Cid, video.Aid, part.Page, part.Part, part.Duration, part.Ctime)
		if err != nil {
			return fmt.Errorf("insert part %d: %w", part.Cid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit video: %w", err)
	}
	return nil
}

// GetVideo retrieves a single archived video with its parts and tags.
func (r *VideoRepository) GetVideo(ctx context.Context, aid int64) (*model.Video, error) {
	video, err := r.scanVideo(r.db.QueryRowContext(ctx, `
		SELECT aid, bvid, mid, title, description, pic, created, tags, season_id, touhou_status
		FROM videos WHERE aid = ?
	`, aid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrVideoNotFound
		}
		return nil, fmt.Errorf("get video: %w", err)
	}

	if video.Parts, err = r.loadParts(ctx, aid); err != nil {
		return nil, err
	}
	return video, nil
}

// ListVideos returns every archived video, newest first, parts included.
func (r *VideoRepository) ListVideos(ctx context.Context) ([]*model.Video, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT aid, bvid, mid, title, description, pic, created, tags, season_id, touhou_status
		FROM videos ORDER BY created DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []*model.Video
	for rows.Next() {
		video, err := r.scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	for _, video := range videos {
		if video.Parts, err = r.loadParts(ctx, video.Aid); err != nil {
			return nil, err
		}
	}
	return videos, nil
}

func (r *VideoRepository) loadParts(ctx context.Context, aid int64) ([]model.VideoPart, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT cid, page, part, duration, ctime
		FROM video_parts WHERE aid = ? ORDER BY page
	`, aid)
	if err != nil {
		return nil, fmt.Errorf("query parts: %w", err)
	}
	defer rows.Close()

	var parts []model.VideoPart
	for rows.Next() {
		var p model.VideoPart
		if err := rows.Scan(&p.Cid, &p.Page, &p.Part, &p.Duration, &p.Ctime); err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parts: %w", err)
	}
	return parts, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func (r *VideoRepository) scanVideo(row scanner) (*model.Video, error) {
	var (
		video  model.Video
		tags   string
		status int
	)
	err := row.Scan(
		&video.Aid,
		&video.Bvid,
		&video.Mid,
		&video.Title,
		&video.Description,
		&video.Pic,
		&video.Created,
		&tags,
		&video.SeasonID,
		&status,
	)
	if err != nil {
		return nil, err
	}

	if tags != "" {
		video.Tags = strings.Split(tags, ",")
	}
	video.TouhouStatus = model.TouhouStatus(status)
	return &video, nil
}

// Compile-time verification that VideoRepository implements repository.VideoRepository.
var _ repository.VideoRepository = (*VideoRepository)(nil)
