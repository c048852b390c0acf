package source

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/newswire-hq/newswire/internal/news"
)

const (
	gnewsName        = "gnews"
	gnewsDefaultBase = "https://gnews.io"
)

// GNews fetches from gnews.io. Keyword fetches use the search endpoint;
// general and financial fetches map to the top-headlines category split.
// GNews items have no stable id; external ids derive from the URL downstream.
type GNews struct {
	client *resty.Client
	creds  news.CredentialResolver
}

// NewGNews creates the adapter.
func NewGNews(client *resty.Client, creds news.CredentialResolver) *GNews {
	return &GNews{client: client, creds: creds}
}

// Name returns the registry key for this provider.
func (a *GNews) Name() string { return gnewsName }

// Fetch retrieves up to q.Limit articles for the query.
func (a *GNews) Fetch(ctx context.Context, src news.NewsSource, q news.FetchQuery) ([]news.RawItem, error) {
	key, err := a.creds.Resolve(src.CredentialRef)
	if err != nil {
		return nil, news.SourceErrorf(a.Name(), "%v", err)
	}

	base := baseOrDefault(src.BaseURL, gnewsDefaultBase)
	path := "/api/v4/top-headlines"
	params := map[string]string{
		"max":    strconv.Itoa(q.Limit),
		"lang":   "en",
		"apikey": key,
	}
	switch q.NewsType {
	case news.NewsTypeKeyword:
		path = "/api/v4/search"
		params["q"] = q.Keyword
	case news.NewsTypeFinancial:
		params["category"] = "business"
	default:
		params["category"] = "general"
	}

	var out gnewsResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get(base + path)
	if err != nil {
		return nil, news.SourceErrorf(a.Name(), "request failed: %v", err)
	}
	if resp.IsError() {
		return nil, news.SourceErrorf(a.Name(), "unexpected status %s", resp.Status())
	}

	items := make([]news.RawItem, 0, len(out.Articles))
	for _, it := range out.Articles {
		items = append(items, news.RawItem{
			Title:       it.Title,
			Description: it.Description,
			Content:     it.Content,
			URL:         it.URL,
			PublishedAt: parseTime(time.RFC3339, it.PublishedAt),
			ImageURL:    it.Image,
		})
	}
	return items, nil
}

type gnewsResponse struct {
	Articles []gnewsArticle `json:"articles"`
}

type gnewsArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	PublishedAt string `json:"publishedAt"`
}
