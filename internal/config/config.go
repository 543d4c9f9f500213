package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Crawler    CrawlerConfig
	Bili       BiliConfig
	UserSwitch UserSwitchConfig
	Redis      RedisConfig
	Events     EventsConfig
	Snapshot   SnapshotConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type DatabaseConfig struct {
	Path string `envconfig:"DB_PATH" default:"bili_videos.db"`
}

// CrawlerConfig drives the acquisition pipeline: worker pool size, queue
// capacity, and the two request-pacing regimes.
type CrawlerConfig struct {
	MaxConcurrency int `envconfig:"MAX_CONCURRENCY" default:"5"`
	MaxQueueSize   int `envconfig:"MAX_QUEUE_SIZE" default:"30"`
	PageSize       int `envconfig:"PAGE_SIZE" default:"50"`

	// RequestDelayMin/Max bound the jittered sleep applied after every
	// individual API request.
	RequestDelayMin time.Duration `envconfig:"REQUEST_DELAY_MIN" default:"1s"`
	RequestDelayMax time.Duration `envconfig:"REQUEST_DELAY_MAX" default:"4s"`

	// PageDelay is the fixed sleep between consecutive listing pages.
	PageDelay time.Duration `envconfig:"PRODUCER_PAGE_DELAY" default:"15s"`

	RetryTimes int           `envconfig:"REQUEST_RETRY_TIMES" default:"3"`
	RetryDelay time.Duration `envconfig:"REQUEST_RETRY_DELAY" default:"5s"`

	// PageRetryTimes/PageRetryDelay drive the producer's long-interval page
	// retry, wrapping the per-request retries above.
	PageRetryTimes int           `envconfig:"PAGE_RETRY_TIMES" default:"3"`
	PageRetryDelay time.Duration `envconfig:"PAGE_RETRY_DELAY" default:"30s"`

	// MetricsPort exposes /metrics during a crawl run. 0 disables the listener.
	MetricsPort int `envconfig:"CRAWLER_METRICS_PORT" default:"9091"`
}

type BiliConfig struct {
	UserAgent string `envconfig:"BILI_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"`
	Referer   string `envconfig:"BILI_REFERER" default:"https://www.bilibili.com/"`
	Cookie    string `envconfig:"BILI_COOKIE"`
	APIBase   string `envconfig:"BILI_API_BASE" default:"https://api.bilibili.com"`
	SpaceBase string `envconfig:"BILI_SPACE_BASE" default:"https://space.bilibili.com"`
}

// UserSwitchConfig parameterizes the dynamic delay applied between uploaders.
type UserSwitchConfig struct {
	BaseDelay      time.Duration `envconfig:"USER_SWITCH_BASE_DELAY" default:"60s"`
	MaxDelay       time.Duration `envconfig:"USER_SWITCH_MAX_DELAY" default:"600s"`
	FactorPerVideo time.Duration `envconfig:"USER_SWITCH_FACTOR_PER_VIDEO" default:"2s"`
	JitterRatio    float64       `envconfig:"USER_SWITCH_JITTER_RATIO" default:"0.2"`
}

type RedisConfig struct {
	Host     string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int           `envconfig:"REDIS_PORT" default:"6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"5m"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EventsConfig configures the optional AMQP archive-event publisher.
// Events are disabled when URL is empty.
type EventsConfig struct {
	URL        string `envconfig:"AMQP_URL"`
	Exchange   string `envconfig:"AMQP_EXCHANGE" default:""`
	RoutingKey string `envconfig:"AMQP_ROUTING_KEY" default:"video.archived"`
}

// SnapshotConfig configures the exporter output directory and the optional
// S3-compatible upload target. Upload is disabled when Endpoint is empty.
type SnapshotConfig struct {
	Dir       string `envconfig:"SNAPSHOT_DIR" default:"touhou-memory-archive-data"`
	Timezone  string `envconfig:"SNAPSHOT_TIMEZONE" default:"Asia/Shanghai"`
	Endpoint  string `envconfig:"SNAPSHOT_S3_ENDPOINT"`
	AccessKey string `envconfig:"SNAPSHOT_S3_ACCESS_KEY"`
	SecretKey string `envconfig:"SNAPSHOT_S3_SECRET_KEY"`
	Bucket    string `envconfig:"SNAPSHOT_S3_BUCKET" default:"touhou-archive"`
	UseSSL    bool   `envconfig:"SNAPSHOT_S3_USE_SSL" default:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
