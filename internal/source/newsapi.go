package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/newswire-hq/newswire/internal/news"
)

const (
	newsAPIName        = "newsapi"
	newsAPIDefaultBase = "https://newsapi.org"
)

// NewsAPI fetches from newsapi.org. Keyword fetches hit the /v2/everything
// search endpoint; general and financial fetches map to the category split of
// /v2/top-headlines. Items carry no stable provider id, so external ids are
// derived from the article URL downstream.
type NewsAPI struct {
	client *resty.Client
	creds  news.CredentialResolver
}

// NewNewsAPI creates the adapter.
func NewNewsAPI(client *resty.Client, creds news.CredentialResolver) *NewsAPI {
	return &NewsAPI{client: client, creds: creds}
}

// Name returns the registry key for this provider.
func (a *NewsAPI) Name() string { return newsAPIName }

// Fetch retrieves up to q.Limit articles for the query.
func (a *NewsAPI) Fetch(ctx context.Context, src news.NewsSource, q news.FetchQuery) ([]news.RawItem, error) {
	key, err := a.creds.Resolve(src.CredentialRef)
	if err != nil {
		return nil, news.SourceErrorf(a.Name(), "%v", err)
	}

	base := baseOrDefault(src.BaseURL, newsAPIDefaultBase)
	path := "/v2/top-headlines"
	params := map[string]string{
		"pageSize": strconv.Itoa(q.Limit),
		"language": "en",
	}
	switch q.NewsType {
	case news.NewsTypeKeyword:
		path = "/v2/everything"
		params["q"] = q.Keyword
		params["sortBy"] = "publishedAt"
	case news.NewsTypeFinancial:
		params["category"] = "business"
		if q.Keyword != "" {
			params["q"] = q.Keyword
		}
	default:
		params["category"] = "general"
		if q.Keyword != "" {
			params["q"] = q.Keyword
		}
	}

	var out newsAPIResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetHeader("X-Api-Key", key).
		SetResult(&out).
		Get(base + path)
	if err != nil {
		return nil, news.SourceErrorf(a.Name(), "request failed: %v", err)
	}
	if resp.IsError() {
		return nil, news.SourceErrorf(a.Name(), "unexpected status %s", resp.Status())
	}
	if out.Status != "ok" {
		return nil, news.SourceErrorf(a.Name(), "api error: %s", firstNonEmpty(out.Message, out.Status))
	}

	items := make([]news.RawItem, 0, len(out.Articles))
	for _, art := range out.Articles {
		items = append(items, news.RawItem{
			Title:       art.Title,
			Description: art.Description,
			Content:     art.Content,
			URL:         art.URL,
			PublishedAt: parseTime(time.RFC3339, art.PublishedAt),
			Author:      art.Author,
			ImageURL:    art.URLToImage,
		})
	}
	return items, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return fmt.Sprintf("%v", values)
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}
