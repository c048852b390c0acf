// Package worker consumes queued fetch jobs and drives them to a terminal
// state.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/newswire-hq/newswire/internal/news"
	"github.com/newswire-hq/newswire/internal/orchestrator"
	"github.com/newswire-hq/newswire/internal/progress"
)

// Runner abstracts the orchestrator so workers can be tested with a fake.
type Runner interface {
	Run(ctx context.Context, jobID string, params news.JobParameters) (news.FetchResult, error)
}

var _ Runner = (*orchestrator.Orchestrator)(nil)

// Worker pulls jobs off the queue one at a time and executes them. Every job
// a worker picks up reaches completed or failed, even when execution panics.
type Worker struct {
	id     int
	queue  news.Queue
	store  news.JobStore
	runner Runner
	clock  news.Clock
	hub    *progress.Hub
	logger *zap.Logger
}

// New constructs a Worker.
func New(
	id int,
	queue news.Queue,
	store news.JobStore,
	runner Runner,
	clock news.Clock,
	hub *progress.Hub,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		id:     id,
		queue:  queue,
		store:  store,
		runner: runner,
		clock:  clock,
		hub:    hub,
		logger: logger.With(zap.Int("worker_id", id)),
	}
}

// Run loops until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started")
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				w.logger.Info("worker stopping")
				return
			}
			w.logger.Error("dequeue failed", zap.Error(err))
			continue
		}
		w.process(ctx, item)
	}
}

func (w *Worker) process(ctx context.Context, item news.QueueItem) {
	logger := w.logger.With(zap.String("job_id", item.JobID))

	if err := w.store.UpdateJobStatus(ctx, item.JobID, news.JobStatusRunning, "", 0); err != nil {
		logger.Error("failed to mark job running", zap.Error(err))
		return
	}
	start := w.clock.Now()
	w.hub.Emit(progress.Event{
		JobID: item.JobID,
		TS:    start,
		Stage: progress.StageJobStart,
	})

	result, runErr := w.runSafe(ctx, item)
	dur := w.clock.Now().Sub(start)

	status := news.JobStatusCompleted
	errMsg := ""
	switch {
	case runErr != nil:
		status = news.JobStatusFailed
		errMsg = runErr.Error()
	case !result.Success:
		status = news.JobStatusFailed
		errMsg = strings.Join(result.Errors, "; ")
	}

	if err := w.store.UpdateJobStatus(ctx, item.JobID, status, errMsg, result.ArticlesAdded); err != nil {
		logger.Error("failed to finalize job", zap.Error(err))
	}

	evt := progress.Event{
		JobID:    item.JobID,
		TS:       w.clock.Now(),
		Stage:    progress.StageJobDone,
		Articles: result.ArticlesAdded,
		Dur:      dur,
	}
	if status == news.JobStatusFailed {
		evt.Stage = progress.StageJobError
		evt.Note = errMsg
	}
	w.hub.Emit(evt)

	logger.Info("job finished",
		zap.String("status", string(status)),
		zap.Int("articles_fetched", result.ArticlesAdded),
		zap.Duration("dur", dur),
	)
}

// runSafe shields the worker loop from panics in orchestration; a panicking
// job fails with a generic message instead of killing the worker.
func (w *Worker) runSafe(ctx context.Context, item news.QueueItem) (result news.FetchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("job panicked",
				zap.String("job_id", item.JobID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			result = news.FetchResult{}
			err = fmt.Errorf("internal error while executing job")
		}
	}()
	return w.runner.Run(ctx, item.JobID, item.Params)
}

// Pool runs a fixed set of workers over a shared queue.
type Pool struct {
	workers []*Worker
	done    chan struct{}
}

// NewPool builds count workers sharing the given collaborators.
func NewPool(
	count int,
	queue news.Queue,
	store news.JobStore,
	runner Runner,
	clock news.Clock,
	hub *progress.Hub,
	logger *zap.Logger,
) *Pool {
	if count <= 0 {
		count = 1
	}
	p := &Pool{done: make(chan struct{})}
	for i := 0; i < count; i++ {
		p.workers = append(p.workers, New(i+1, queue, store, runner, clock, hub, logger))
	}
	return p
}

// Start launches all workers. It returns immediately; call Wait to block
// until they exit after ctx cancellation.
func (p *Pool) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		var waiters []chan struct{}
		for _, w := range p.workers {
			ch := make(chan struct{})
			waiters = append(waiters, ch)
			go func(w *Worker, ch chan struct{}) {
				defer close(ch)
				w.Run(ctx)
			}(w, ch)
		}
		for _, ch := range waiters {
			<-ch
		}
	}()
}

// Wait blocks until all workers have stopped or ctx expires.
func (p *Pool) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool shutdown wait: %w", ctx.Err())
	}
}
