// Package memory implements the storage interfaces with in-process maps. It
// backs local development and tests; production deployments use postgres.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/newswire-hq/newswire/internal/news"
)

// JobStore keeps fetch jobs in a mutex-guarded map.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]news.FetchJob
	clock news.Clock
}

// NewJobStore creates an empty JobStore.
func NewJobStore(clock news.Clock) *JobStore {
	return &JobStore{
		jobs:  make(map[string]news.FetchJob),
		clock: clock,
	}
}

// CreateJob stores a new job record.
func (s *JobStore) CreateJob(_ context.Context, job news.FetchJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return news.Conflictf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

// GetJob returns the job or a NotFoundError.
func (s *JobStore) GetJob(_ context.Context, jobID string) (news.FetchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return news.FetchJob{}, &news.NotFoundError{Kind: "job", ID: jobID}
	}
	return job, nil
}

// UpdateJobStatus transitions the job, stamping StartedAt on the first move
// to running and CompletedAt on terminal transitions.
func (s *JobStore) UpdateJobStatus(_ context.Context, jobID string, status news.JobStatus, errMsg string, articlesFetched int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return &news.NotFoundError{Kind: "job", ID: jobID}
	}
	now := s.clock.Now()
	job.Status = status
	job.ArticlesFetched = articlesFetched
	if errMsg != "" {
		msg := errMsg
		job.ErrorMessage = &msg
	} else {
		job.ErrorMessage = nil
	}
	if status == news.JobStatusRunning && job.StartedAt == nil {
		started := now
		job.StartedAt = &started
	}
	if status.Terminal() {
		completed := now
		job.CompletedAt = &completed
	}
	s.jobs[jobID] = job
	return nil
}

// ResetJob returns a completed or failed job to pending with run state
// cleared. Pending jobs cannot be reset: their original queue item is still
// outstanding, and resetting one would schedule the same job twice.
func (s *JobStore) ResetJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return &news.NotFoundError{Kind: "job", ID: jobID}
	}
	if !job.Status.Terminal() {
		return news.Conflictf("job %s is %s", jobID, job.Status)
	}
	job.Status = news.JobStatusPending
	job.ArticlesFetched = 0
	job.ErrorMessage = nil
	job.StartedAt = nil
	job.CompletedAt = nil
	s.jobs[jobID] = job
	return nil
}

// DeleteJob removes a non-running job.
func (s *JobStore) DeleteJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return &news.NotFoundError{Kind: "job", ID: jobID}
	}
	if job.Status == news.JobStatusRunning {
		return news.Conflictf("job %s is running", jobID)
	}
	delete(s.jobs, jobID)
	return nil
}

// ListJobs returns jobs newest first, filtered and paged, plus the total
// matching count.
func (s *JobStore) ListJobs(_ context.Context, filter news.JobFilter) ([]news.FetchJob, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]news.FetchJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Status != nil && job.Status != *filter.Status {
			continue
		}
		matched = append(matched, job)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	return paginate(matched, filter.Page, filter.Limit), total, nil
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
