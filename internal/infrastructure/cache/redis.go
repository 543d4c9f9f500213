package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/infrastructure/metrics"
)

const (
	// videoCacheKeyPrefix is the prefix for per-video cache keys in Redis.
	videoCacheKeyPrefix = "video:"
	// catalogCacheKey holds the full listing.
	catalogCacheKey = "catalog:videos"
)

// partJSON is the cached representation of a video part.
type partJSON struct {
	Cid      int64  `json:"cid"`
	Page     int    `json:"page"`
	Part     string `json:"part"`
	Duration int64  `json:"duration"`
	Ctime    int64  `json:"ctime"`
}

// videoJSON is the JSON representation of a Video for caching.
// Using an explicit struct avoids coupling cache layout to the domain model.
type videoJSON struct {
	Aid          int64      `json:"aid"`
	Bvid         string     `json:"bvid"`
	Mid          int64      `json:"mid"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Pic          string     `json:"pic"`
	Created      int64      `json:"created"`
	SeasonID     int64      `json:"season_id"`
	Tags         []string   `json:"tags"`
	Parts        []partJSON `json:"parts"`
	TouhouStatus int        `json:"touhou_status"`
}

// RedisCatalogCache implements CatalogCache using Redis as the backing store.
type RedisCatalogCache struct {
	client *redis.Client
}

// NewRedisCatalogCache creates a new Redis-backed catalog cache.
func NewRedisCatalogCache(client *redis.Client) *RedisCatalogCache {
	return &RedisCatalogCache{
		client: client,
	}
}

// GetVideo retrieves a video from Redis cache.
// Returns nil, nil on cache miss.
func (c *RedisCatalogCache) GetVideo(ctx context.Context, aid int64) (*model.Video, error) {
	data, err := c.client.Get(ctx, c.buildVideoKey(aid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss).Inc()
			return nil, nil
		}
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError).Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var v videoJSON
	if err := json.Unmarshal(data, &v); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError).Inc()
		return nil, fmt.Errorf("deserialize video: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit).Inc()
	return fromJSON(&v), nil
}

// SetVideo stores a video in Redis cache with the specified TTL.
func (c *RedisCatalogCache) SetVideo(ctx context.Context, video *model.Video, ttl time.Duration) error {
	data, err := json.Marshal(toJSON(video))
	if err != nil {
		return fmt.Errorf("serialize video: %w", err)
	}

	if err := c.client.Set(ctx, c.buildVideoKey(video.Aid), data, ttl).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError).Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess).Inc()
	return nil
}

// GetCatalog retrieves the full listing from Redis cache.
// Returns nil, nil on cache miss.
func (c *RedisCatalogCache) GetCatalog(ctx context.Context) ([]*model.Video, error) {
	data, err := c.client.Get(ctx, catalogCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss).Inc()
			return nil, nil
		}
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError).Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var raw []videoJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError).Inc()
		return nil, fmt.Errorf("deserialize catalog: %w", err)
	}

	videos := make([]*model.Video, 0, len(raw))
	for i := range raw {
		videos = append(videos, fromJSON(&raw[i]))
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit).Inc()
	return videos, nil
}

// SetCatalog stores the full listing in Redis cache with the specified TTL.
func (c *RedisCatalogCache) SetCatalog(ctx context.Context, videos []*model.Video, ttl time.Duration) error {
	raw := make([]videoJSON, 0, len(videos))
	for _, video := range videos {
		raw = append(raw, *toJSON(video))
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("serialize catalog: %w", err)
	}

	if err := c.client.Set(ctx, catalogCacheKey, data, ttl).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError).Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess).Inc()
	return nil
}

// InvalidateCatalog removes the full listing from Redis cache.
func (c *RedisCatalogCache) InvalidateCatalog(ctx context.Context) error {
	if err := c.client.Del(ctx, catalogCacheKey).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusError).Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusSuccess).Inc()
	return nil
}

// buildVideoKey constructs the Redis key for a video.
func (c *RedisCatalogCache) buildVideoKey(aid int64) string {
	return videoCacheKeyPrefix + strconv.FormatInt(aid, 10)
}

func toJSON(video *model.Video) *videoJSON {
	parts := make([]partJSON, 0, len(video.Parts))
	for _, p := range video.Parts {
		parts = append(parts, partJSON{
			Cid:      p.Cid,
			Page:     p.Page,
			Part:     p.Part,
			Duration: p.Duration,
			Ctime:    p.Ctime,
		})
	}
	return &videoJSON{
		Aid:          video.Aid,
		Bvid:         video.Bvid,
		Mid:          video.Mid,
		Title:        video.Title,
		Description:  video.Description,
		Pic:          video.Pic,
		Created:      video.Created,
		SeasonID:     video.SeasonID,
		Tags:         video.Tags,
		Parts:        parts,
		TouhouStatus: int(video.TouhouStatus),
	}
}

func fromJSON(v *videoJSON) *model.Video {
	parts := make([]model.VideoPart, 0, len(v.Parts))
	for _, p := range v.Parts {
		parts = append(parts, model.VideoPart{
			Cid:      p.Cid,
			Page:     p.Page,
			Part:     p.Part,
			Duration: p.Duration,
			Ctime:    p.Ctime,
		})
	}
	return &model.Video{
		Aid:          v.Aid,
		Bvid:         v.Bvid,
		Mid:          v.Mid,
		Title:        v.Title,
		Description:  v.Description,
		Pic:          v.Pic,
		Created:      v.Created,
		SeasonID:     v.SeasonID,
		Tags:         v.Tags,
		Parts:        parts,
		TouhouStatus: model.TouhouStatus(v.TouhouStatus),
	}
}

var _ CatalogCache = (*RedisCatalogCache)(nil)
