package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"seqwork/internal/analysis"
	"seqwork/internal/archive"
	"seqwork/internal/config"
	"seqwork/internal/logging"
	"seqwork/internal/scheduler"
	"seqwork/internal/store"
)

// Summary aggregates the outcome of one batch drain.
type Summary struct {
	Processed int
	Completed int
	Failed    int
	Skipped   int
}

// Pool fans the queued snapshot out over a bounded set of workers. Each
// task opens its own store session so a slow or failing instance cannot
// poison anyone else's database connection.
type Pool struct {
	cfg     *config.Config
	client  archive.Client
	runner  analysis.Runner
	logger  *slog.Logger
	version string
}

// NewPool constructs a worker pool.
func NewPool(cfg *config.Config, client archive.Client, runner analysis.Runner, logger *slog.Logger, version string) *Pool {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		cfg:     cfg,
		client:  client,
		runner:  runner,
		logger:  logging.NewComponentLogger(logger, "pool"),
		version: version,
	}
}

// Drain processes the current runnable snapshot and returns once every
// worker has finished. Work enqueued after the snapshot waits for the next
// batch.
func (p *Pool) Drain(ctx context.Context) (Summary, error) {
	snapshotStore, err := store.Open(p.cfg)
	if err != nil {
		return Summary{}, fmt.Errorf("open store for snapshot: %w", err)
	}
	runnable, err := scheduler.New(snapshotStore).FindRunnable(ctx)
	closeErr := snapshotStore.Close()
	if err != nil {
		return Summary{}, fmt.Errorf("find runnable instances: %w", err)
	}
	if closeErr != nil {
		p.logger.Warn("close snapshot store", logging.Error(closeErr))
	}

	workers := int64(p.cfg.WorkerCount())
	p.logger.Info("draining batch",
		logging.Int("runnable", len(runnable)),
		logging.Int64("workers", workers))

	sem := semaphore.NewWeighted(workers)
	var (
		mu      sync.Mutex
		summary Summary
	)

	dispatched := 0
	for _, inst := range runnable {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Shutdown: instances never handed to a worker are skipped.
			// In-flight workers still record their own outcome.
			mu.Lock()
			summary.Skipped += len(runnable) - dispatched
			mu.Unlock()
			break
		}
		dispatched++

		go func(id int64) {
			defer sem.Release(1)
			outcome := p.runOne(ctx, id)

			mu.Lock()
			summary.Processed++
			switch outcome {
			case outcomeCompleted:
				summary.Completed++
			case outcomeFailed:
				summary.Failed++
			case outcomeSkipped:
				summary.Skipped++
			}
			mu.Unlock()
		}(inst.ID)
	}

	// Wait for every in-flight worker.
	if err := sem.Acquire(context.Background(), workers); err != nil {
		return summary, fmt.Errorf("wait for workers: %w", err)
	}

	p.logger.Info("batch drained",
		logging.Int("processed", summary.Processed),
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped))
	return summary, nil
}

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeFailed
	outcomeSkipped
)

func (p *Pool) runOne(ctx context.Context, id int64) outcome {
	taskStore, err := store.Open(p.cfg)
	if err != nil {
		p.logger.Error("open store for task",
			logging.Int64(logging.FieldInstanceID, id), logging.Error(err))
		return outcomeFailed
	}
	defer func() {
		if err := taskStore.Close(); err != nil {
			p.logger.Warn("close task store",
				logging.Int64(logging.FieldInstanceID, id), logging.Error(err))
		}
	}()

	executor := NewExecutor(p.cfg, taskStore, p.client, p.runner, p.logger, p.version)
	switch err := executor.Execute(ctx, id); {
	case err == nil:
		return outcomeCompleted
	case errors.Is(err, ErrClaimLost):
		return outcomeSkipped
	default:
		p.logger.Error("instance failed",
			logging.Int64(logging.FieldInstanceID, id), logging.Error(err))
		return outcomeFailed
	}
}
