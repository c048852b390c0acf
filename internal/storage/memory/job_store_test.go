package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/newswire-hq/newswire/internal/clock/system"
	"github.com/newswire-hq/newswire/internal/news"
)

func newJob(id string) news.FetchJob {
	return news.FetchJob{
		ID:         id,
		Status:     news.JobStatusPending,
		Parameters: news.JobParameters{NewsType: news.NewsTypeGeneral, ArticlesPerSource: 5, SourceIDs: []int64{1}},
		CreatedAt:  time.Now().UTC(),
	}
}

func TestJobLifecycleTimestamps(t *testing.T) {
	t.Parallel()

	store := NewJobStore(system.New())
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, newJob("j1")))

	require.NoError(t, store.UpdateJobStatus(ctx, "j1", news.JobStatusRunning, "", 0))
	job, err := store.GetJob(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, news.JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)
	require.Nil(t, job.CompletedAt)
	started := *job.StartedAt

	// A second running transition keeps the original start time.
	require.NoError(t, store.UpdateJobStatus(ctx, "j1", news.JobStatusRunning, "", 0))
	job, err = store.GetJob(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, started, *job.StartedAt)

	require.NoError(t, store.UpdateJobStatus(ctx, "j1", news.JobStatusCompleted, "", 9))
	job, err = store.GetJob(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, news.JobStatusCompleted, job.Status)
	require.Equal(t, 9, job.ArticlesFetched)
	require.NotNil(t, job.CompletedAt)
	require.Nil(t, job.ErrorMessage)
}

func TestUpdateJobStatusStoresErrorMessage(t *testing.T) {
	t.Parallel()

	store := NewJobStore(system.New())
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, newJob("j1")))

	require.NoError(t, store.UpdateJobStatus(ctx, "j1", news.JobStatusFailed, "newsapi: boom", 2))
	job, err := store.GetJob(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, news.JobStatusFailed, job.Status)
	require.Equal(t, "newsapi: boom", *job.ErrorMessage)
	require.Equal(t, 2, job.ArticlesFetched)
}

func TestResetJobClearsRunState(t *testing.T) {
	t.Parallel()

	store := NewJobStore(system.New())
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, newJob("j1")))
	require.NoError(t, store.UpdateJobStatus(ctx, "j1", news.JobStatusRunning, "", 0))
	require.NoError(t, store.UpdateJobStatus(ctx, "j1", news.JobStatusFailed, "gnews: broke", 3))

	require.NoError(t, store.ResetJob(ctx, "j1"))
	job, err := store.GetJob(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, news.JobStatusPending, job.Status)
	require.Zero(t, job.ArticlesFetched)
	require.Nil(t, job.ErrorMessage)
	require.Nil(t, job.StartedAt)
	require.Nil(t, job.CompletedAt)
}

func TestResetAndDeleteGuardRunningJobs(t *testing.T) {
	t.Parallel()

	store := NewJobStore(system.New())
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, newJob("j1")))

	// A pending job still has a queue item outstanding; only terminal jobs
	// can be reset.
	require.True(t, news.IsConflict(store.ResetJob(ctx, "j1")))

	require.NoError(t, store.UpdateJobStatus(ctx, "j1", news.JobStatusRunning, "", 0))

	require.True(t, news.IsConflict(store.ResetJob(ctx, "j1")))
	require.True(t, news.IsConflict(store.DeleteJob(ctx, "j1")))

	require.NoError(t, store.UpdateJobStatus(ctx, "j1", news.JobStatusCompleted, "", 1))
	require.NoError(t, store.DeleteJob(ctx, "j1"))
	_, err := store.GetJob(ctx, "j1")
	require.True(t, news.IsNotFound(err))
}

func TestJobStoreNotFound(t *testing.T) {
	t.Parallel()

	store := NewJobStore(system.New())
	ctx := context.Background()

	_, err := store.GetJob(ctx, "missing")
	require.True(t, news.IsNotFound(err))
	require.True(t, news.IsNotFound(store.UpdateJobStatus(ctx, "missing", news.JobStatusRunning, "", 0)))
	require.True(t, news.IsNotFound(store.ResetJob(ctx, "missing")))
	require.True(t, news.IsNotFound(store.DeleteJob(ctx, "missing")))
}

func TestListJobsSortsAndFilters(t *testing.T) {
	t.Parallel()

	store := NewJobStore(system.New())
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"j1", "j2", "j3"} {
		job := newJob(id)
		job.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.CreateJob(ctx, job))
	}
	require.NoError(t, store.UpdateJobStatus(ctx, "j2", news.JobStatusCompleted, "", 5))

	list, total, err := store.ListJobs(ctx, news.JobFilter{})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, "j3", list[0].ID)
	require.Equal(t, "j1", list[2].ID)

	completed := news.JobStatusCompleted
	list, total, err = store.ListJobs(ctx, news.JobFilter{Status: &completed})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "j2", list[0].ID)

	page, total, err := store.ListJobs(ctx, news.JobFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, page, 1)
}
