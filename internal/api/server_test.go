package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/newswire-hq/newswire/internal/clock/system"
	"github.com/newswire-hq/newswire/internal/config"
	"github.com/newswire-hq/newswire/internal/id/uuid"
	"github.com/newswire-hq/newswire/internal/jobs"
	"github.com/newswire-hq/newswire/internal/news"
	queueMemory "github.com/newswire-hq/newswire/internal/queue/memory"
	memoryStorage "github.com/newswire-hq/newswire/internal/storage/memory"
)

type testEnv struct {
	server   *Server
	jobStore *memoryStorage.JobStore
	articles *memoryStorage.ArticleStore
	queue    *queueMemory.Queue
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	clock := system.New()
	jobStore := memoryStorage.NewJobStore(clock)
	articles := memoryStorage.NewArticleStore(clock)
	sources := memoryStorage.NewSourceStore(clock, []news.NewsSource{
		{ID: 1, Name: "newsapi", Active: true},
		{ID: 2, Name: "finnhub", Active: false},
	})
	queue := queueMemory.New(10)
	manager := jobs.NewManager(jobStore, sources, queue, uuid.New(), clock, nil)
	return &testEnv{
		server:   NewServer(manager, articles, sources, nil, nil, cfg),
		jobStore: jobStore,
		articles: articles,
		queue:    queue,
	}
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateJobAccepted(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	rec := doJSON(t, env.server.Handler(), http.MethodPost, "/v1/jobs/", map[string]any{
		"keyword":             "bitcoin",
		"news_type":           "keyword",
		"articles_per_source": 5,
		"source_ids":          []int64{1},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		Job news.FetchJob `json:"job"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Job.ID)
	require.Equal(t, news.JobStatusPending, resp.Job.Status)

	item, err := env.queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, resp.Job.ID, item.JobID)
}

func TestCreateJobValidationMapsTo400(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	rec := doJSON(t, env.server.Handler(), http.MethodPost, "/v1/jobs/", map[string]any{
		"news_type":           "weather",
		"articles_per_source": 5,
		"source_ids":          []int64{1},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "news_type")
}

func TestGetJobNotFoundMapsTo404(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	rec := doJSON(t, env.server.Handler(), http.MethodGet, "/v1/jobs/nope/", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRetryRunningJobMapsTo409(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	ctx := context.Background()
	require.NoError(t, env.jobStore.CreateJob(ctx, news.FetchJob{
		ID:        "job-1",
		Status:    news.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, env.jobStore.UpdateJobStatus(ctx, "job-1", news.JobStatusRunning, "", 0))

	rec := doJSON(t, env.server.Handler(), http.MethodPost, "/v1/jobs/job-1/retry", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteJobReturns204(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	require.NoError(t, env.jobStore.CreateJob(context.Background(), news.FetchJob{
		ID:        "job-1",
		Status:    news.JobStatusCompleted,
		CreatedAt: time.Now().UTC(),
	}))

	rec := doJSON(t, env.server.Handler(), http.MethodDelete, "/v1/jobs/job-1/", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListJobsFiltersByStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	ctx := context.Background()
	require.NoError(t, env.jobStore.CreateJob(ctx, news.FetchJob{ID: "j1", Status: news.JobStatusPending, CreatedAt: time.Now().UTC()}))
	require.NoError(t, env.jobStore.CreateJob(ctx, news.FetchJob{ID: "j2", Status: news.JobStatusPending, CreatedAt: time.Now().UTC()}))
	require.NoError(t, env.jobStore.UpdateJobStatus(ctx, "j2", news.JobStatusFailed, "x", 0))

	rec := doJSON(t, env.server.Handler(), http.MethodGet, "/v1/jobs/?status=failed", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Jobs  []news.FetchJob `json:"jobs"`
		Total int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	require.Equal(t, "j2", resp.Jobs[0].ID)
}

func TestListArticles(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	_, err := env.articles.UpsertArticle(context.Background(), news.Article{
		ExternalID: "abc",
		Title:      "Story",
		URL:        "https://example.com/story",
		SourceID:   1,
		Keyword:    "bitcoin",
		NewsType:   news.NewsTypeKeyword,
	})
	require.NoError(t, err)

	rec := doJSON(t, env.server.Handler(), http.MethodGet, "/v1/articles?keyword=bitcoin&source_id=1&news_type=keyword", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Articles []news.Article `json:"articles"`
		Total    int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	require.Equal(t, "Story", resp.Articles[0].Title)
}

func TestListArticlesRejectsBadNewsType(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	rec := doJSON(t, env.server.Handler(), http.MethodGet, "/v1/articles?news_type=weather", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetSourceActive(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	rec := doJSON(t, env.server.Handler(), http.MethodPatch, "/v1/sources/2/active", map[string]any{"active": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, env.server.Handler(), http.MethodPatch, "/v1/sources/99/active", map[string]any{"active": false})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, env.server.Handler(), http.MethodPatch, "/v1/sources/2/active", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSources(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	rec := doJSON(t, env.server.Handler(), http.MethodGet, "/v1/sources/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "newsapi")
	require.Contains(t, rec.Body.String(), "finnhub")
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{})
	require.Equal(t, http.StatusOK, doJSON(t, env.server.Handler(), http.MethodGet, "/healthz", nil).Code)
	require.Equal(t, http.StatusOK, doJSON(t, env.server.Handler(), http.MethodGet, "/readyz", nil).Code)
	require.Equal(t, http.StatusOK, doJSON(t, env.server.Handler(), http.MethodGet, "/metrics", nil).Code)
}

func TestAPIKeyMiddlewareGuardsV1(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, config.Config{Auth: config.AuthConfig{Enabled: true, APIKey: "sekret"}})

	rec := doJSON(t, env.server.Handler(), http.MethodGet, "/v1/sources/", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/sources/", nil)
	req.Header.Set("X-API-Key", "sekret")
	authed := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(authed, req)
	require.Equal(t, http.StatusOK, authed.Code)

	// Health stays open.
	require.Equal(t, http.StatusOK, doJSON(t, env.server.Handler(), http.MethodGet, "/healthz", nil).Code)
}
