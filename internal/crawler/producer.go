package crawler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/bili"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/infrastructure/metrics"
)

// ErrPageExhausted is returned when a listing page fails all long-interval
// attempts; it aborts the current uploader only.
var ErrPageExhausted = errors.New("listing page retries exhausted")

// CatalogLister is the producer's view of the API client.
type CatalogLister interface {
	ListUploaderPage(ctx context.Context, mid int64, pageNum, pageSize int) (*bili.VideoPage, error)
	ListSeason(ctx context.Context, mid, seasonID int64) []*model.Video
}

// ProducerConfig drives pagination and the long-interval page retry.
type ProducerConfig struct {
	PageSize   int
	PageDelay  time.Duration // sleep between consecutive listing pages
	RetryTimes int           // long-interval attempts per page
	RetryDelay time.Duration // escalates linearly: RetryDelay * attempt
}

func (c *ProducerConfig) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
	if c.RetryTimes <= 0 {
		c.RetryTimes = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
}

// Producer drives one uploader's paginated listing, expands season bundles
// inline, and pushes every discovered video into the bounded queue exactly
// once. A full queue provides natural backpressure on pagination.
type Producer struct {
	api          CatalogLister
	cfg          ProducerConfig
	switchPolicy *UserSwitchPolicy
}

func NewProducer(api CatalogLister, cfg ProducerConfig, switchPolicy *UserSwitchPolicy) *Producer {
	cfg.applyDefaults()
	return &Producer{api: api, cfg: cfg, switchPolicy: switchPolicy}
}

// Produce enumerates the uploader's full catalog into queue. It returns
// (never panics or propagates errors) when done or when the uploader must be
// abandoned; workers keep whatever was produced.
func (p *Producer) Produce(ctx context.Context, mid int64, queue chan<- *model.Video) {
	seenSeasons := make(map[int64]struct{})

	first, err := p.fetchPageWithRetry(ctx, mid, 1)
	if err != nil {
		metrics.PagesExhaustedTotal.Inc()
		slog.Error("aborting uploader: first listing page unavailable",
			slog.Int64("mid", mid),
			slog.String("error", err.Error()),
		)
		return
	}

	totalVideos := first.Total
	totalPages := (totalVideos + p.cfg.PageSize - 1) / p.cfg.PageSize
	p.switchPolicy.UpdateVideoCount(totalVideos)

	slog.Info("listing started",
		slog.Int64("mid", mid),
		slog.Int("total_videos", totalVideos),
		slog.Int("total_pages", totalPages),
	)

	if !p.enqueuePage(ctx, mid, first, seenSeasons, queue) {
		return
	}

	for pageNum := 2; pageNum <= totalPages; pageNum++ {
		if err := sleepCtx(ctx, p.cfg.PageDelay); err != nil {
			return
		}
		page, err := p.fetchPageWithRetry(ctx, mid, pageNum)
		if err != nil {
			metrics.PagesExhaustedTotal.Inc()
			slog.Error("aborting uploader: listing page unavailable",
				slog.Int64("mid", mid),
				slog.Int("page", pageNum),
				slog.String("error", err.Error()),
			)
			return
		}
		if !p.enqueuePage(ctx, mid, page, seenSeasons, queue) {
			return
		}
	}

	slog.Info("listing complete", slog.Int64("mid", mid))
}

// fetchPageWithRetry wraps the client's own short-interval retries with the
// producer's long-interval policy (30s, 60s, ... between attempts).
func (p *Producer) fetchPageWithRetry(ctx context.Context, mid int64, pageNum int) (*bili.VideoPage, error) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.RetryTimes; attempt++ {
		page, err := p.api.ListUploaderPage(ctx, mid, pageNum, p.cfg.PageSize)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		slog.Error("listing page fetch failed",
			slog.Int64("mid", mid),
			slog.Int("page", pageNum),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.cfg.RetryTimes),
			slog.String("error", err.Error()),
		)
		if attempt < p.cfg.RetryTimes {
			backoff := p.cfg.RetryDelay * time.Duration(attempt)
			slog.Info("waiting before next page attempt",
				slog.Int64("mid", mid),
				slog.Duration("backoff", backoff),
			)
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, lastErr
			}
		}
	}
	return nil, errors.Join(ErrPageExhausted, lastErr)
}

// enqueuePage pushes a page's videos in source order, expanding each season
// the first time it is seen and skipping its members on the normal listing
// thereafter. Returns false when the context ended mid-push.
func (p *Producer) enqueuePage(ctx context.Context, mid int64, page *bili.VideoPage, seenSeasons map[int64]struct{}, queue chan<- *model.Video) bool {
	for _, video := range page.Videos {
		if video.SeasonID != 0 {
			if _, seen := seenSeasons[video.SeasonID]; seen {
				continue
			}
			seenSeasons[video.SeasonID] = struct{}{}
			for _, seasonVideo := range p.api.ListSeason(ctx, mid, video.SeasonID) {
				if !push(ctx, queue, seasonVideo) {
					return false
				}
			}
			continue
		}
		if !push(ctx, queue, video) {
			return false
		}
	}
	return true
}

func push(ctx context.Context, queue chan<- *model.Video, video *model.Video) bool {
	select {
	case queue <- video:
		return true
	case <-ctx.Done():
		return false
	}
}

// sleepCtx sleeps for d or until ctx ends.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
