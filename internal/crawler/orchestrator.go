package crawler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/model"
	"github.com/TouhouGleaners/touhou-memory-archive/internal/domain/repository"
)

// Orchestrator runs the per-uploader lifecycle: bounded queue, one producer,
// a worker pool, sentinel shutdown, and the inter-uploader switch delay.
// Uploaders are processed strictly serially.
type Orchestrator struct {
	producer     *Producer
	pool         *WorkerPool
	repo         repository.VideoRepository
	switchPolicy *UserSwitchPolicy
	queueSize    int
}

func NewOrchestrator(
	producer *Producer,
	pool *WorkerPool,
	repo repository.VideoRepository,
	switchPolicy *UserSwitchPolicy,
	queueSize int,
) *Orchestrator {
	if queueSize <= 0 {
		queueSize = pool.Size() * 2
	}
	return &Orchestrator{
		producer:     producer,
		pool:         pool,
		repo:         repo,
		switchPolicy: switchPolicy,
		queueSize:    queueSize,
	}
}

// Run crawls every configured uploader once. A run always completes unless
// the context ends; uploader-level failures are absorbed by the producer.
func (o *Orchestrator) Run(ctx context.Context) error {
	mids, err := o.repo.ListUploaderMids(ctx)
	if err != nil {
		return fmt.Errorf("list uploaders: %w", err)
	}
	if len(mids) == 0 {
		slog.Warn("no uploaders configured, nothing to do")
		return nil
	}

	runID := uuid.NewString()
	slog.Info("crawl run starting",
		slog.String("run_id", runID),
		slog.Int("uploaders", len(mids)),
	)

	for i, mid := range mids {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		slog.Info("processing uploader", slog.String("run_id", runID), slog.Int64("mid", mid))
		o.crawlUploader(ctx, mid)
		slog.Info("uploader complete", slog.String("run_id", runID), slog.Int64("mid", mid))

		if i < len(mids)-1 {
			delay := o.switchPolicy.Delay()
			slog.Info("waiting before next uploader", slog.Duration("delay", delay))
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
		}
	}

	slog.Info("crawl run complete", slog.String("run_id", runID))
	return nil
}

// crawlUploader wires queue, producer and workers for one uploader and waits
// for quiescence. The producer is never cancelled mid-stream: if it aborts,
// workers finish whatever it produced.
func (o *Orchestrator) crawlUploader(ctx context.Context, mid int64) {
	queue := make(chan *model.Video, o.queueSize)

	producerDone := make(chan struct{})
	go func() {
		defer close(producerDone)
		o.producer.Produce(ctx, mid, queue)
	}()

	workers := o.pool.Start(ctx, queue)

	<-producerDone

	// One sentinel per worker; FIFO ordering guarantees every produced item
	// is consumed before any worker sees its sentinel.
	for i := 0; i < o.pool.Size(); i++ {
		select {
		case queue <- nil:
		case <-ctx.Done():
		}
	}

	workers.Wait()
}
