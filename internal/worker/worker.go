package worker

import (
	"context"
	"errors"
	"time"

	"feedvault/internal/ingest"
	"feedvault/internal/metrics"
	"feedvault/internal/queue"

	"go.uber.org/zap"
)

// JobSource yields ingestion jobs. This allows us to mock the queue in tests.
type JobSource interface {
	Pop(ctx context.Context, timeout time.Duration) (queue.Job, error)
}

// Executor runs fn on the goroutine that owns the archive.
type Executor interface {
	Do(ctx context.Context, fn func() error) error
}

type Worker struct {
	jobs        JobSource
	exec        Executor
	ingestor    *ingest.Ingestor
	logger      *zap.Logger
	metrics     *metrics.Metrics
	pollTimeout time.Duration
	retryDelay  time.Duration
	onDone      func()
}

func NewWorker(jobs JobSource, exec Executor, ingestor *ingest.Ingestor, logger *zap.Logger, m *metrics.Metrics) *Worker {
	return &Worker{
		jobs:        jobs,
		exec:        exec,
		ingestor:    ingestor,
		logger:      logger,
		metrics:     m,
		pollTimeout: 5 * time.Second,
		retryDelay:  time.Second,
	}
}

// OnJobDone registers fn to run after every successfully ingested job.
func (w *Worker) OnJobDone(fn func()) {
	w.onDone = fn
}

// Start runs the worker loop until ctx is done.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Worker started. Waiting for jobs...")

	for {
		job, err := w.jobs.Pop(ctx, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Worker shutting down")
				return nil
			}
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			w.logger.Error("Queue error", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.retryDelay):
			}
			continue
		}

		w.processJob(ctx, job)
	}
}

func (w *Worker) processJob(ctx context.Context, job queue.Job) {
	logger := w.logger.With(zap.String("job_id", job.ID.String()), zap.String("feed", job.FeedURL))
	logger.Info("Processing started", zap.Int("items", len(job.Items)))

	if job.FeedURL == "" {
		err := errors.New("job has no feed url")
		logger.Error("Job rejected", zap.Error(err))
		w.metrics.Job(err)
		return
	}

	var rep ingest.Report
	err := w.exec.Do(ctx, func() error {
		rep = w.ingestor.IngestFeed(job.FeedURL, job.Items)
		return nil
	})
	w.metrics.Job(err)
	if err != nil {
		logger.Error("Ingestion failed", zap.Error(err))
		return
	}
	if w.onDone != nil {
		w.onDone()
	}

	logger.Info("Ingestion complete",
		zap.Int("added", rep.Added),
		zap.Int("updated", rep.Updated),
		zap.Duration("queued_for", time.Since(job.EnqueuedAt)),
	)
}
