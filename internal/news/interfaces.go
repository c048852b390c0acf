package news

import (
	"context"
	"time"
)

// JobStore persists fetch job records and their lifecycle transitions.
type JobStore interface {
	CreateJob(ctx context.Context, job FetchJob) error
	GetJob(ctx context.Context, jobID string) (FetchJob, error)
	// UpdateJobStatus moves a job to the given status. The store stamps
	// StartedAt on the first transition to running and CompletedAt on any
	// terminal transition.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errMsg string, articlesFetched int) error
	// ResetJob returns a non-running job to pending with the counter, error
	// message, and timestamps cleared. Resetting a running job fails with a
	// ConflictError.
	ResetJob(ctx context.Context, jobID string) error
	// DeleteJob removes a non-running job. Deleting a running job fails with
	// a ConflictError.
	DeleteJob(ctx context.Context, jobID string) error
	ListJobs(ctx context.Context, filter JobFilter) ([]FetchJob, int, error)
}

// JobFilter narrows and pages a job listing.
type JobFilter struct {
	Status *JobStatus
	Page   int
	Limit  int
}

// ArticleStore persists canonical articles with at-most-one-row-per
// (source id, external id) semantics.
type ArticleStore interface {
	// UpsertArticle inserts the article or, when the dedup key already
	// exists, refreshes the mutable fields of the stored row in place.
	UpsertArticle(ctx context.Context, article Article) (UpsertOutcome, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]Article, int, error)
}

// ArticleFilter narrows and pages an article listing.
type ArticleFilter struct {
	SourceID *int64
	NewsType *NewsType
	Keyword  string
	Page     int
	Limit    int
}

// SourceStore reads and toggles the seeded provider rows.
type SourceStore interface {
	ListSources(ctx context.Context) ([]NewsSource, error)
	// ActiveSourcesByIDs resolves the given ids to active sources. Unknown
	// and inactive ids are skipped, not errored.
	ActiveSourcesByIDs(ctx context.Context, ids []int64) ([]NewsSource, error)
	SetSourceActive(ctx context.Context, id int64, active bool) error
}

// CategoryStore resolves seeded categories.
type CategoryStore interface {
	CategoryBySlug(ctx context.Context, slug string) (Category, error)
}

// Adapter fetches raw articles from one external provider. Implementations
// convert every transport error, non-success payload, and malformed response
// into a SourceError; an empty result is a valid non-error outcome.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, src NewsSource, q FetchQuery) ([]RawItem, error)
}

// CredentialResolver resolves a named credential reference to a secret.
// Absence is a recoverable condition, reported as an error.
type CredentialResolver interface {
	Resolve(name string) (string, error)
}

// Queue provides enqueue/dequeue semantics for fetch jobs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Hasher computes digests used to derive external ids from canonical URLs.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
