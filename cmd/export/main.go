package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/config"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/repository"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/export"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/infrastructure/sqlite"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/infrastructure/storage"
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

	var snapshotStorage repository.SnapshotStorage
	if cfg.Snapshot.Endpoint != "" {
		client, err := storage.NewClient(ctx, storage.ClientConfig{
			Endpoint:  cfg.Snapshot.Endpoint,
			AccessKey: cfg.Snapshot.AccessKey,
			SecretKey: cfg.Snapshot.SecretKey,
			Bucket:    cfg.Snapshot.Bucket,
			UseSSL:    cfg.Snapshot.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to object storage: %w", err)
		}
		snapshotStorage = client
		logger.Info("snapshot mirroring enabled", slog.String("bucket", cfg.Snapshot.Bucket))
	}

	exporter, err := export.NewExporter(sqlite.NewVideoRepository(db), snapshotStorage, export.Config{
		Dir:      cfg.Snapshot.Dir,
		Timezone: cfg.Snapshot.Timezone,
	})
	if err != nil {
		return fmt.Errorf("failed to create exporter: %w", err)
	}

	if err := exporter.Export(ctx); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	logger.Info("export complete", slog.String("dir", cfg.Snapshot.Dir))
	return nil
}
