package crawler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/infrastructure/metrics"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/usecase"
)

// WorkerPool drains the video queue with Size concurrent consumers. A worker
// exits exactly once: when it pops the nil sentinel or the context ends. A
// failing item is logged and acknowledged; it never crashes the worker.
type WorkerPool struct {
	service usecase.ArchiveService
	size    int
}

func NewWorkerPool(service usecase.ArchiveService, size int) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{service: service, size: size}
}

// Size returns the number of workers (and the sentinel count the
// orchestrator must post).
func (p *WorkerPool) Size() int { return p.size }

// Start launches the workers. The returned WaitGroup completes when every
// worker has exited.
func (p *WorkerPool) Start(ctx context.Context, queue <-chan *model.Video) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.run(ctx, id, queue)
		}(i)
	}
	return &wg
}

func (p *WorkerPool) run(ctx context.Context, id int, queue <-chan *model.Video) {
	for {
		select {
		case <-ctx.Done():
			return
		case video, ok := <-queue:
			if !ok || video == nil {
				return
			}
			if err := p.service.ProcessVideo(ctx, video); err != nil {
				metrics.ItemFailuresTotal.Inc()
				slog.Error("failed to process video",
					slog.Int("worker", id),
					slog.String("bvid", video.Bvid),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
