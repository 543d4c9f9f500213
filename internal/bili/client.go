package bili

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/infrastructure/metrics"
)

// APIError is a non-zero code in the response envelope.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// ErrThrottled is returned when the remote answers HTTP 412 on every attempt.
var ErrThrottled = errors.New("request throttled by remote")

const seasonPageSize = 50

// ClientConfig holds configuration for the API client.
// Zero values are replaced with safe defaults by NewClient.
type ClientConfig struct {
	APIBase   string // e.g. https://api.bilibili.com
	SpaceBase string // e.g. https://space.bilibili.com (season Referer)

	UserAgent string
	Referer   string
	Cookie    string

	// RetryTimes/RetryDelay drive the short-interval retry budget of every
	// request. HTTP 412 and other transient failures back off linearly:
	// RetryDelay * attempt.
	RetryTimes int
	RetryDelay time.Duration

	// RequestDelay draws the jittered pacing sleep applied after every
	// attempt, success or failure.
	RequestDelay func() time.Duration

	HTTPClient *http.Client
}

func (c *ClientConfig) applyDefaults() {
	if c.APIBase == "" {
		c.APIBase = "https://api.bilibili.com"
	}
	if c.SpaceBase == "" {
		c.SpaceBase = "https://space.bilibili.com"
	}
	if c.Referer == "" {
		c.Referer = "https://www.bilibili.com/"
	}
	if c.RetryTimes <= 0 {
		c.RetryTimes = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5 * time.Second
	}
	if c.RequestDelay == nil {
		c.RequestDelay = func() time.Duration {
			return time.Second + time.Duration(rand.Int63n(int64(3*time.Second)))
		}
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
}

// Client wraps all interaction with the Bilibili API: the signed listing
// endpoint, season enumeration, part lists and tag lists. All methods share
// one retry/pacing discipline; attempts within a call are strictly
// sequential.
type Client struct {
	cfg    ClientConfig
	signer *Signer
}

// NewClient creates an API client. The WBI signer shares the client's HTTP
// transport and baseline headers.
func NewClient(cfg ClientConfig) *Client {
	cfg.applyDefaults()
	signer := NewSigner(cfg.HTTPClient, cfg.APIBase+"/x/web-interface/nav", cfg.UserAgent, cfg.Referer)
	return &Client{cfg: cfg, signer: signer}
}

// VideoPage is one slice of an uploader's listing.
type VideoPage struct {
	Page   int
	Total  int
	Videos []*model.Video
}

// ListUploaderPage fetches one signed listing page of an uploader's catalog.
// Null entries are skipped silently; entries that fail to parse are logged
// and skipped without failing the page.
func (c *Client) ListUploaderPage(ctx context.Context, mid int64, pageNum, pageSize int) (*VideoPage, error) {
	params := url.Values{}
	params.Set("mid", strconv.FormatInt(mid, 10))
	params.Set("pn", strconv.Itoa(pageNum))
	params.Set("ps", strconv.Itoa(pageSize))

	page := &VideoPage{Page: pageNum}
	err := c.get(ctx, "listing", c.cfg.APIBase+"/x/space/wbi/arc/search", params, requestOpts{needWBI: true}, func(data json.RawMessage) error {
		var payload struct {
			List struct {
				Vlist []json.RawMessage `json:"vlist"`
			} `json:"list"`
			Page struct {
				Count int `json:"count"`
			} `json:"page"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode listing payload: %w", err)
		}

		page.Total = payload.Page.Count
		page.Videos = page.Videos[:0]
		for _, raw := range payload.List.Vlist {
			if isJSONNull(raw) {
				continue
			}
			video, err := parseVideo(raw, 0, 0)
			if err != nil {
				slog.Warn("skipping unparsable listing entry",
					slog.Int64("mid", mid),
					slog.Int("page", pageNum),
					slog.String("error", err.Error()),
				)
				continue
			}
			page.Videos = append(page.Videos, video)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// ListSeason enumerates every video of one season, aggregating its own
// pagination. On any error it returns the videos collected so far.
func (c *Client) ListSeason(ctx context.Context, mid, seasonID int64) []*model.Video {
	slog.Info("expanding season", slog.Int64("mid", mid), slog.Int64("season_id", seasonID))

	referer := fmt.Sprintf("%s/%d/lists/%d?type=season", c.cfg.SpaceBase, mid, seasonID)
	var collected []*model.Video

	for pageNum := 1; ; pageNum++ {
		params := url.Values{}
		params.Set("mid", strconv.FormatInt(mid, 10))
		params.Set("season_id", strconv.FormatInt(seasonID, 10))
		params.Set("page_num", strconv.Itoa(pageNum))
		params.Set("page_size", strconv.Itoa(seasonPageSize))

		var archives []json.RawMessage
		var total int
		err := c.doOnce(ctx, c.cfg.APIBase+"/x/polymer/web-space/seasons_archives_list", params, referer, func(data json.RawMessage) error {
			var payload struct {
				Archives []json.RawMessage `json:"archives"`
				Meta     struct {
					Total int `json:"total"`
				} `json:"meta"`
			}
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("decode season payload: %w", err)
			}
			archives = payload.Archives
			total = payload.Meta.Total
			return nil
		})
		if err != nil {
			slog.Error("season page fetch failed",
				slog.Int64("season_id", seasonID),
				slog.Int("page", pageNum),
				slog.String("error", err.Error()),
			)
			return collected
		}

		if len(archives) == 0 {
			break
		}
		for _, raw := range archives {
			video, err := parseVideo(raw, mid, seasonID)
			if err != nil {
				slog.Warn("skipping unparsable season entry",
					slog.Int64("season_id", seasonID),
					slog.String("error", err.Error()),
				)
				continue
			}
			collected = append(collected, video)
		}
		if len(collected) >= total {
			break
		}

		if err := sleepCtx(ctx, c.cfg.RequestDelay()); err != nil {
			return collected
		}
	}

	slog.Info("season expanded",
		slog.Int64("season_id", seasonID),
		slog.Int("videos", len(collected)),
	)
	return collected
}

// GetParts fetches the ordered segment list of a video.
func (c *Client) GetParts(ctx context.Context, bvid string) ([]model.VideoPart, error) {
	params := url.Values{}
	params.Set("bvid", bvid)

	var parts []model.VideoPart
	err := c.get(ctx, "parts", c.cfg.APIBase+"/x/player/pagelist", params, requestOpts{}, func(data json.RawMessage) error {
		var payload []struct {
			Cid      int64  `json:"cid"`
			Page     int    `json:"page"`
			Part     string `json:"part"`
			Duration int64  `json:"duration"`
			Ctime    int64  `json:"ctime"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode parts payload: %w", err)
		}
		parts = make([]model.VideoPart, 0, len(payload))
		for _, p := range payload {
			parts = append(parts, model.VideoPart{
				Cid:      p.Cid,
				Page:     p.Page,
				Part:     p.Part,
				Duration: p.Duration,
				Ctime:    p.Ctime,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parts, nil
}

// GetTags fetches the tag names of a video in server order.
func (c *Client) GetTags(ctx context.Context, bvid string) ([]string, error) {
	params := url.Values{}
	params.Set("bvid", bvid)

	var tags []string
	err := c.get(ctx, "tags", c.cfg.APIBase+"/x/web-interface/view/detail/tag", params, requestOpts{}, func(data json.RawMessage) error {
		var payload []struct {
			TagName string `json:"tag_name"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode tags payload: %w", err)
		}
		tags = make([]string, 0, len(payload))
		for _, t := range payload {
			tags = append(tags, t.TagName)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

type requestOpts struct {
	needWBI bool
	referer string // overrides the baseline Referer when set
}

// get issues a GET with the client's retry budget. Transient failures
// (transport errors, HTTP 412 and other error statuses, envelope errors,
// extractor errors) are retried with linear backoff; after every attempt one
// pacing delay is slept regardless of outcome.
func (c *Client) get(ctx context.Context, endpoint, rawURL string, params url.Values, opts requestOpts, extract func(data json.RawMessage) error) error {
	if opts.needWBI {
		signed, err := c.signer.Sign(ctx, params)
		if err != nil {
			return err
		}
		params = signed
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryTimes; attempt++ {
		err := c.doOnce(ctx, rawURL, params, opts.referer, extract)
		pacingErr := sleepCtx(ctx, c.cfg.RequestDelay())

		if err == nil {
			metrics.APIRequestsTotal.WithLabelValues(endpoint, metrics.OutcomeOK).Inc()
			return pacingErr
		}
		lastErr = err

		throttled := errors.Is(err, ErrThrottled)
		if throttled {
			metrics.APIRequestsTotal.WithLabelValues(endpoint, metrics.OutcomeThrottled).Inc()
		} else {
			metrics.APIRequestsTotal.WithLabelValues(endpoint, metrics.OutcomeError).Inc()
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if pacingErr != nil {
			return lastErr
		}
		if attempt == c.cfg.RetryTimes {
			break
		}

		backoff := c.cfg.RetryDelay * time.Duration(attempt)
		if throttled {
			slog.Warn("request throttled, backing off",
				slog.String("endpoint", endpoint),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
			)
		} else {
			slog.Warn("request failed, retrying",
				slog.String("endpoint", endpoint),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
				slog.String("error", err.Error()),
			)
		}
		metrics.APIRetriesTotal.WithLabelValues(endpoint).Inc()
		if err := sleepCtx(ctx, backoff); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// doOnce performs a single request/decode/extract cycle with no retries and
// no pacing.
func (c *Client) doOnce(ctx context.Context, rawURL string, params url.Values, referer string, extract func(data json.RawMessage) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	} else {
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Cookie != "" {
		req.Header.Set("Cookie", c.cfg.Cookie)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPreconditionFailed {
		return ErrThrottled
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.Code != 0 {
		return &APIError{Code: env.Code, Message: env.Message}
	}
	return extract(env.Data)
}

// videoItem is the raw shape shared by listing entries and season archives.
// The creation timestamp arrives as either created or pubdate depending on
// the endpoint.
type videoItem struct {
	Aid         int64  `json:"aid"`
	Bvid        string `json:"bvid"`
	Mid         int64  `json:"mid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Pic         string `json:"pic"`
	Created     int64  `json:"created"`
	Pubdate     int64  `json:"pubdate"`
	SeasonID    int64  `json:"season_id"`
}

// parseVideo decodes one raw entry. mid and seasonID, when non-zero, are
// injected before validation (season archives do not carry them).
func parseVideo(raw json.RawMessage, mid, seasonID int64) (*model.Video, error) {
	var item videoItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode video entry: %w", err)
	}
	if mid != 0 {
		item.Mid = mid
	}
	if seasonID != 0 {
		item.SeasonID = seasonID
	}

	created := item.Created
	if created == 0 {
		created = item.Pubdate
	}

	video := &model.Video{
		Aid:         item.Aid,
		Bvid:        item.Bvid,
		Mid:         item.Mid,
		Title:       item.Title,
		Description: item.Description,
		Pic:         item.Pic,
		Created:     created,
		SeasonID:    item.SeasonID,
	}
	if err := video.Validate(); err != nil {
		return nil, err
	}
	return video, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
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
