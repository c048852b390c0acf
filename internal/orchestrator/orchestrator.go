// Package orchestrator runs the multi-source fetch-and-normalize pipeline.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newswire-hq/newswire/internal/news"
	"github.com/newswire-hq/newswire/internal/normalize"
	"github.com/newswire-hq/newswire/internal/progress"
	"github.com/newswire-hq/newswire/internal/source"
)

// Config controls orchestration behavior.
type Config struct {
	// SourceTimeout bounds each per-source fetch so one slow provider cannot
	// stall the whole job.
	SourceTimeout time.Duration
}

// Orchestrator fans a fetch job out across its selected sources, flows every
// raw item through normalization and the article store, and aggregates the
// per-source outcomes into one result.
type Orchestrator struct {
	sources    news.SourceStore
	articles   news.ArticleStore
	categories news.CategoryStore
	registry   *source.Registry
	norm       *normalize.Normalizer
	clock      news.Clock
	hub        *progress.Hub
	logger     *zap.Logger
	cfg        Config
}

// New constructs an Orchestrator.
func New(
	sources news.SourceStore,
	articles news.ArticleStore,
	categories news.CategoryStore,
	registry *source.Registry,
	norm *normalize.Normalizer,
	clock news.Clock,
	hub *progress.Hub,
	logger *zap.Logger,
	cfg Config,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 30 * time.Second
	}
	return &Orchestrator{
		sources:    sources,
		articles:   articles,
		categories: categories,
		registry:   registry,
		norm:       norm,
		clock:      clock,
		hub:        hub,
		logger:     logger,
		cfg:        cfg,
	}
}

// sourceOutcome is one source's contribution to the aggregate result.
type sourceOutcome struct {
	added int
	err   error
}

// Run executes one fetch job. Unknown and inactive source ids are skipped;
// per-source failures are collected, never propagated, and never cancel
// sibling fetches. The returned error is reserved for failures that are fatal
// to the whole run (source resolution against the store); callers must still
// mark the job failed when it is non-nil.
func (o *Orchestrator) Run(ctx context.Context, jobID string, params news.JobParameters) (news.FetchResult, error) {
	resolved, err := o.sources.ActiveSourcesByIDs(ctx, params.SourceIDs)
	if err != nil {
		return news.FetchResult{}, fmt.Errorf("resolve sources: %w", err)
	}

	categoryID := o.resolveCategory(ctx, params.NewsType)

	outcomes := make([]sourceOutcome, len(resolved))
	var wg sync.WaitGroup
	for i, src := range resolved {
		wg.Add(1)
		go func(i int, src news.NewsSource) {
			defer wg.Done()
			outcomes[i] = o.fetchSource(ctx, jobID, src, params, categoryID)
		}(i, src)
	}
	wg.Wait()

	// Outcomes keep source order, so error entries are deterministic.
	result := news.FetchResult{}
	for _, out := range outcomes {
		result.ArticlesAdded += out.added
		if out.err != nil {
			result.Errors = append(result.Errors, out.err.Error())
		}
	}
	result.Success = len(result.Errors) == 0
	return result, nil
}

// fetchSource runs one provider end to end: adapter fetch, normalization,
// and upserts. Every failure surfaces as an error entry formatted
// "provider: message"; store-level upsert failures are logged and skipped
// rather than failing the source.
func (o *Orchestrator) fetchSource(
	ctx context.Context,
	jobID string,
	src news.NewsSource,
	params news.JobParameters,
	categoryID *int64,
) sourceOutcome {
	adapter, ok := o.registry.AdapterFor(src.Name)
	if !ok {
		err := news.SourceErrorf(src.Name, "unknown source")
		o.emitSource(jobID, src.Name, 0, 0, err)
		return sourceOutcome{err: err}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, o.cfg.SourceTimeout)
	defer cancel()

	start := o.clock.Now()
	items, err := adapter.Fetch(fetchCtx, src, news.FetchQuery{
		Keyword:  params.Keyword,
		NewsType: params.NewsType,
		Limit:    params.ArticlesPerSource,
	})
	dur := o.clock.Now().Sub(start)
	if err != nil {
		srcErr := asSourceError(adapter.Name(), err)
		o.emitSource(jobID, adapter.Name(), 0, dur, srcErr)
		return sourceOutcome{err: srcErr}
	}

	added := 0
	for _, raw := range items {
		article, err := o.norm.Article(raw, src, categoryID, params.Keyword, params.NewsType, o.clock.Now())
		if err != nil {
			o.logger.Debug("skipping unnormalizable item",
				zap.String("job_id", jobID),
				zap.String("provider", adapter.Name()),
				zap.Error(err),
			)
			continue
		}
		outcome, err := o.articles.UpsertArticle(ctx, article)
		if err != nil {
			o.logger.Warn("article upsert failed",
				zap.String("job_id", jobID),
				zap.String("provider", adapter.Name()),
				zap.String("external_id", article.ExternalID),
				zap.Error(err),
			)
			continue
		}
		if outcome == news.UpsertCreated {
			added++
		}
	}
	o.emitSource(jobID, adapter.Name(), added, dur, nil)
	return sourceOutcome{added: added}
}

// resolveCategory maps the news type to its seeded category, if present.
func (o *Orchestrator) resolveCategory(ctx context.Context, newsType news.NewsType) *int64 {
	if o.categories == nil {
		return nil
	}
	cat, err := o.categories.CategoryBySlug(ctx, string(newsType))
	if err != nil {
		if !news.IsNotFound(err) {
			o.logger.Warn("category lookup failed", zap.String("slug", string(newsType)), zap.Error(err))
		}
		return nil
	}
	return &cat.ID
}

func (o *Orchestrator) emitSource(jobID, provider string, added int, dur time.Duration, err error) {
	evt := progress.Event{
		JobID:    jobID,
		TS:       o.clock.Now(),
		Stage:    progress.StageSourceDone,
		Provider: provider,
		Articles: added,
		Dur:      dur,
	}
	if err != nil {
		evt.Stage = progress.StageSourceError
		evt.Note = err.Error()
	}
	o.hub.Emit(evt)
}

// asSourceError guarantees the orchestrator only aggregates structured
// per-source errors, even if an adapter leaked a plain error.
func asSourceError(provider string, err error) *news.SourceError {
	var srcErr *news.SourceError
	if errors.As(err, &srcErr) {
		return srcErr
	}
	return news.SourceErrorf(provider, "%v", err)
}
