package source

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/newswire-hq/newswire/internal/news"
)

const (
	finnhubName        = "finnhub"
	finnhubDefaultBase = "https://finnhub.io"

	// Finnhub company-news requires an explicit date window.
	finnhubLookbackDays = 7
)

// Finnhub fetches market and company news from finnhub.io. Finnhub has no
// free-text search, so financial and keyword fetches map the keyword to a
// ticker symbol for the company-news endpoint; general fetches use the
// market-news category feed. Finnhub items carry a stable numeric id which is
// used verbatim as the external id.
type Finnhub struct {
	client *resty.Client
	creds  news.CredentialResolver
	clock  news.Clock
}

// NewFinnhub creates the adapter.
func NewFinnhub(client *resty.Client, creds news.CredentialResolver) *Finnhub {
	return &Finnhub{client: client, creds: creds}
}

// Name returns the registry key for this provider.
func (a *Finnhub) Name() string { return finnhubName }

// Fetch retrieves up to q.Limit articles for the query.
func (a *Finnhub) Fetch(ctx context.Context, src news.NewsSource, q news.FetchQuery) ([]news.RawItem, error) {
	token, err := a.creds.Resolve(src.CredentialRef)
	if err != nil {
		return nil, news.SourceErrorf(a.Name(), "%v", err)
	}

	base := baseOrDefault(src.BaseURL, finnhubDefaultBase)
	path := "/api/v1/news"
	params := map[string]string{"token": token}

	if q.NewsType == news.NewsTypeGeneral {
		params["category"] = "general"
	} else {
		symbol := tickerFromKeyword(q.Keyword)
		if symbol == "" {
			return nil, news.SourceErrorf(a.Name(), "keyword %q does not map to a ticker symbol", q.Keyword)
		}
		path = "/api/v1/company-news"
		params["symbol"] = symbol
		now := a.now()
		params["to"] = now.Format("2006-01-02")
		params["from"] = now.AddDate(0, 0, -finnhubLookbackDays).Format("2006-01-02")
	}

	var out []finnhubItem
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

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	items := make([]news.RawItem, 0, len(out))
	for _, it := range out {
		var externalID string
		if it.ID > 0 {
			externalID = strconv.FormatInt(it.ID, 10)
		}
		items = append(items, news.RawItem{
			ExternalID:  externalID,
			Title:       it.Headline,
			Description: it.Summary,
			URL:         it.URL,
			PublishedAt: unixTime(it.Datetime),
			ImageURL:    it.Image,
		})
	}
	return items, nil
}

// WithClock overrides the clock used for the company-news date window.
func (a *Finnhub) WithClock(clock news.Clock) *Finnhub {
	a.clock = clock
	return a
}

func (a *Finnhub) now() time.Time {
	if a.clock != nil {
		return a.clock.Now()
	}
	return time.Now().UTC()
}

type finnhubItem struct {
	ID       int64  `json:"id"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"`
	Image    string `json:"image"`
	Source   string `json:"source"`
	Category string `json:"category"`
}
