package source

import (
	"context"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/newswire-hq/newswire/internal/news"
)

const (
	alphaVantageName        = "alphavantage"
	alphaVantageDefaultBase = "https://www.alphavantage.co"

	// Alpha Vantage NEWS_SENTIMENT timestamps: 20240131T153045.
	alphaVantageTimeLayout = "20060102T150405"
)

// AlphaVantage fetches from the Alpha Vantage NEWS_SENTIMENT endpoint.
// Financial and keyword fetches pass the keyword as a tickers filter; general
// fetches take the latest feed unfiltered. Alpha Vantage reports soft
// failures (rate limits, bad tickers) inside a 200 body, which this adapter
// surfaces as SourceErrors. Items have no stable id; external ids derive from
// the URL downstream.
type AlphaVantage struct {
	client *resty.Client
	creds  news.CredentialResolver
}

// NewAlphaVantage creates the adapter.
func NewAlphaVantage(client *resty.Client, creds news.CredentialResolver) *AlphaVantage {
	return &AlphaVantage{client: client, creds: creds}
}

// Name returns the registry key for this provider.
func (a *AlphaVantage) Name() string { return alphaVantageName }

// Fetch retrieves up to q.Limit articles for the query.
func (a *AlphaVantage) Fetch(ctx context.Context, src news.NewsSource, q news.FetchQuery) ([]news.RawItem, error) {
	key, err := a.creds.Resolve(src.CredentialRef)
	if err != nil {
		return nil, news.SourceErrorf(a.Name(), "%v", err)
	}

	base := baseOrDefault(src.BaseURL, alphaVantageDefaultBase)
	params := map[string]string{
		"function": "NEWS_SENTIMENT",
		"sort":     "LATEST",
		"limit":    strconv.Itoa(q.Limit),
		"apikey":   key,
	}
	switch q.NewsType {
	case news.NewsTypeFinancial:
		params["topics"] = "financial_markets"
		if symbol := tickerFromKeyword(q.Keyword); symbol != "" {
			params["tickers"] = symbol
		}
	case news.NewsTypeKeyword:
		if symbol := tickerFromKeyword(q.Keyword); symbol != "" {
			params["tickers"] = symbol
		}
	}

	var out alphaVantageResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get(base + "/query")
	if err != nil {
		return nil, news.SourceErrorf(a.Name(), "request failed: %v", err)
	}
	if resp.IsError() {
		return nil, news.SourceErrorf(a.Name(), "unexpected status %s", resp.Status())
	}
	if len(out.Feed) == 0 {
		// Soft failure payloads come back with HTTP 200.
		switch {
		case out.ErrorMessage != "":
			return nil, news.SourceErrorf(a.Name(), "api error: %s", out.ErrorMessage)
		case out.Information != "":
			return nil, news.SourceErrorf(a.Name(), "api notice: %s", out.Information)
		}
	}

	feed := out.Feed
	if q.Limit > 0 && len(feed) > q.Limit {
		feed = feed[:q.Limit]
	}
	items := make([]news.RawItem, 0, len(feed))
	for _, it := range feed {
		var author string
		if len(it.Authors) > 0 {
			author = it.Authors[0]
		}
		items = append(items, news.RawItem{
			Title:       it.Title,
			Description: it.Summary,
			URL:         it.URL,
			PublishedAt: parseTime(alphaVantageTimeLayout, it.TimePublished),
			Author:      author,
			ImageURL:    it.BannerImage,
		})
	}
	return items, nil
}

type alphaVantageResponse struct {
	Feed         []alphaVantageFeedItem `json:"feed"`
	ErrorMessage string                 `json:"Error Message"`
	Information  string                 `json:"Information"`
}

type alphaVantageFeedItem struct {
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	URL           string   `json:"url"`
	TimePublished string   `json:"time_published"`
	Authors       []string `json:"authors"`
	BannerImage   string   `json:"banner_image"`
	Source        string   `json:"source"`
}
