// Package news defines core types shared across subsystems.
package news

import "time"

// NewsType classifies what kind of feed a fetch targets.
type NewsType string

// Supported news types.
const (
	NewsTypeFinancial NewsType = "financial"
	NewsTypeGeneral   NewsType = "general"
	NewsTypeKeyword   NewsType = "keyword"
)

// Valid reports whether t is one of the supported news types.
func (t NewsType) Valid() bool {
	switch t {
	case NewsTypeFinancial, NewsTypeGeneral, NewsTypeKeyword:
		return true
	default:
		return false
	}
}

// JobStatus represents the lifecycle state of a fetch job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// NewsSource identifies one external provider the service can fetch from.
type NewsSource struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	CredentialRef string    `json:"credential_ref"`
	BaseURL       string    `json:"base_url"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Category is an optional article classification. Categories are seeded at
// setup; the core references them but never mutates them.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Article is the canonical normalized record persisted by the article store.
// The pair (SourceID, ExternalID) is the dedup key: at most one row exists
// per provider-assigned (or URL-derived) identity.
type Article struct {
	ID          int64      `json:"id"`
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Content     *string    `json:"content,omitempty"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Author      *string    `json:"author,omitempty"`
	SourceID    int64      `json:"source_id"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	Keyword     string     `json:"keyword"`
	NewsType    NewsType   `json:"news_type"`
	ImageURL    *string    `json:"image_url,omitempty"`
	Enhanced    bool       `json:"enhanced"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// JobParameters captures the request that created a fetch job.
type JobParameters struct {
	Keyword           string   `json:"keyword"`
	NewsType          NewsType `json:"news_type"`
	ArticlesPerSource int      `json:"articles_per_source"`
	SourceIDs         []int64  `json:"source_ids"`
}

// FetchJob tracks one aggregation request through its lifecycle.
type FetchJob struct {
	ID              string        `json:"id"`
	Parameters      JobParameters `json:"parameters"`
	Status          JobStatus     `json:"status"`
	ArticlesFetched int           `json:"articles_fetched"`
	ErrorMessage    *string       `json:"error_message,omitempty"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	Params    JobParameters
	Submitted int64
}

// FetchQuery is the provider-agnostic request handed to a source adapter.
type FetchQuery struct {
	Keyword  string
	NewsType NewsType
	Limit    int
}

// RawItem is one article as reported by a provider, already lifted out of the
// provider's wire shape by its adapter. Fields the provider does not supply
// stay zero; identity derivation and canonicalization happen in normalize.
type RawItem struct {
	ExternalID  string
	Title       string
	Description string
	Content     string
	URL         string
	PublishedAt *time.Time
	Author      string
	ImageURL    string
}

// FetchResult aggregates one orchestration run. Success is true iff no source
// reported an error; a run that stored zero new articles can still succeed.
type FetchResult struct {
	ArticlesAdded int
	Success       bool
	Errors        []string
}

// UpsertOutcome reports whether an article upsert inserted a new row or
// refreshed an existing one.
type UpsertOutcome string

// Upsert outcomes.
const (
	UpsertCreated UpsertOutcome = "created"
	UpsertUpdated UpsertOutcome = "updated"
)
