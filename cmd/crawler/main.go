package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/bili"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/config"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/crawler"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/repository"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/infrastructure/events"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/infrastructure/sqlite"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	repo := sqlite.NewVideoRepository(db)

	apiClient := bili.NewClient(bili.ClientConfig{
		APIBase:      cfg.Bili.APIBase,
		SpaceBase:    cfg.Bili.SpaceBase,
		UserAgent:    cfg.Bili.UserAgent,
		Referer:      cfg.Bili.Referer,
		Cookie:       cfg.Bili.Cookie,
		RetryTimes:   cfg.Crawler.RetryTimes,
		RetryDelay:   cfg.Crawler.RetryDelay,
		RequestDelay: crawler.JitterDelay(cfg.Crawler.RequestDelayMin, cfg.Crawler.RequestDelayMax),
	})

	var publisher repository.EventPublisher
	if cfg.Events.URL != "" {
		eventsCfg := events.DefaultClientConfig(cfg.Events.URL)
		eventsCfg.Exchange = cfg.Events.Exchange
		eventsCfg.RoutingKey = cfg.Events.RoutingKey
		eventsCfg.QueueName = cfg.Events.RoutingKey

		client, err := events.NewClient(eventsCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer client.Close()
		publisher = client
		logger.Info("archive events enabled", slog.String("routing_key", cfg.Events.RoutingKey))
	}

	if cfg.Crawler.MetricsPort > 0 {
		go serveMetrics(cfg.Crawler.MetricsPort, logger)
	}

	switchPolicy := crawler.NewUserSwitchPolicy(cfg.UserSwitch)
	service := usecase.NewArchiveService(apiClient, repo, publisher, cfg.Crawler.MaxConcurrency)
	pool := crawler.NewWorkerPool(service, cfg.Crawler.MaxConcurrency)
	producer := crawler.NewProducer(apiClient, crawler.ProducerConfig{
		PageSize:   cfg.Crawler.PageSize,
		PageDelay:  cfg.Crawler.PageDelay,
		RetryTimes: cfg.Crawler.PageRetryTimes,
		RetryDelay: cfg.Crawler.PageRetryDelay,
	}, switchPolicy)
	orchestrator := crawler.NewOrchestrator(producer, pool, repo, switchPolicy, cfg.Crawler.MaxQueueSize)

	if err := orchestrator.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("crawl interrupted")
			return nil
		}
		return fmt.Errorf("crawl run: %w", err)
	}
	return nil
}

// serveMetrics exposes Prometheus metrics for the duration of the run.
func serveMetrics(port int, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("metrics listener starting", slog.Int("port", port))
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
		logger.Warn("metrics listener stopped", slog.String("error", err.Error()))
	}
}
