// Package jobs implements the fetch job lifecycle API: create, inspect,
// retry, and delete.
package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newswire-hq/newswire/internal/news"
)

const (
	minArticlesPerSource = 1
	maxArticlesPerSource = 20

	enqueueTimeout = 5 * time.Second
)

// Manager validates job submissions, persists job records, and hands accepted
// jobs to the queue for asynchronous execution.
type Manager struct {
	store   news.JobStore
	sources news.SourceStore
	queue   news.Queue
	ids     news.IDGenerator
	clock   news.Clock
	logger  *zap.Logger
}

// NewManager constructs a Manager.
func NewManager(
	store news.JobStore,
	sources news.SourceStore,
	queue news.Queue,
	ids news.IDGenerator,
	clock news.Clock,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:   store,
		sources: sources,
		queue:   queue,
		ids:     ids,
		clock:   clock,
		logger:  logger,
	}
}

// CreateJob validates the parameters, persists a pending job, and enqueues it.
// The returned job reflects the accepted (pending) state; execution happens in
// the background. An enqueue failure after persistence marks the job failed so
// no record is left pending with nothing scheduled to run it.
func (m *Manager) CreateJob(ctx context.Context, params news.JobParameters) (news.FetchJob, error) {
	if err := m.validate(ctx, params); err != nil {
		return news.FetchJob{}, err
	}

	id, err := m.ids.NewID()
	if err != nil {
		return news.FetchJob{}, fmt.Errorf("generate job id: %w", err)
	}

	job := news.FetchJob{
		ID:         id,
		Parameters: params,
		Status:     news.JobStatusPending,
		CreatedAt:  m.clock.Now(),
	}
	if err := m.store.CreateJob(ctx, job); err != nil {
		return news.FetchJob{}, fmt.Errorf("persist job: %w", err)
	}

	if err := m.enqueue(ctx, job); err != nil {
		return news.FetchJob{}, err
	}
	return job, nil
}

// GetJob returns the job record, including live status and the running count.
func (m *Manager) GetJob(ctx context.Context, jobID string) (news.FetchJob, error) {
	return m.store.GetJob(ctx, jobID)
}

// ListJobs returns a page of jobs plus the total count for the filter.
func (m *Manager) ListJobs(ctx context.Context, filter news.JobFilter) ([]news.FetchJob, int, error) {
	return m.store.ListJobs(ctx, filter)
}

// RetryJob resets a completed or failed job back to pending with its original
// parameters and re-enqueues it. Retrying a running job is a conflict, and so
// is retrying a pending one: the pending job's original queue item has not
// been consumed yet, and a second enqueue would hand the same job to two
// workers.
func (m *Manager) RetryJob(ctx context.Context, jobID string) (news.FetchJob, error) {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return news.FetchJob{}, err
	}
	if err := m.store.ResetJob(ctx, jobID); err != nil {
		return news.FetchJob{}, err
	}
	job.Status = news.JobStatusPending
	job.ArticlesFetched = 0
	job.ErrorMessage = nil
	job.StartedAt = nil
	job.CompletedAt = nil

	if err := m.enqueue(ctx, job); err != nil {
		return news.FetchJob{}, err
	}
	return job, nil
}

// DeleteJob removes a non-running job record. Deleting a running job is a
// conflict; the store enforces the guard atomically.
func (m *Manager) DeleteJob(ctx context.Context, jobID string) error {
	return m.store.DeleteJob(ctx, jobID)
}

func (m *Manager) enqueue(ctx context.Context, job news.FetchJob) error {
	enqueueCtx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()

	item := news.QueueItem{
		JobID:     job.ID,
		Params:    job.Parameters,
		Submitted: m.clock.Now().UnixNano(),
	}
	if err := m.queue.Enqueue(enqueueCtx, item); err != nil {
		m.logger.Error("enqueue failed, marking job failed",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		msg := fmt.Sprintf("enqueue: %v", err)
		if updErr := m.store.UpdateJobStatus(ctx, job.ID, news.JobStatusFailed, msg, 0); updErr != nil {
			m.logger.Error("failed to mark unqueueable job failed",
				zap.String("job_id", job.ID),
				zap.Error(updErr),
			)
		}
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// validate checks the request shape and that at least one selected source is
// active. All violations are ValidationErrors so the API maps them to 400s.
func (m *Manager) validate(ctx context.Context, params news.JobParameters) error {
	if !params.NewsType.Valid() {
		return news.Validationf("news_type %q is not one of financial, general, keyword", params.NewsType)
	}
	if params.NewsType == news.NewsTypeKeyword && params.Keyword == "" {
		return news.Validationf("keyword is required for keyword news type")
	}
	if params.ArticlesPerSource < minArticlesPerSource || params.ArticlesPerSource > maxArticlesPerSource {
		return news.Validationf("articles_per_source must be between %d and %d", minArticlesPerSource, maxArticlesPerSource)
	}
	if len(params.SourceIDs) == 0 {
		return news.Validationf("at least one source id is required")
	}
	active, err := m.sources.ActiveSourcesByIDs(ctx, params.SourceIDs)
	if err != nil {
		return fmt.Errorf("check sources: %w", err)
	}
	if len(active) == 0 {
		return news.Validationf("none of the requested sources are active")
	}
	return nil
}
