package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/newswire-hq/newswire/internal/news"
	"github.com/newswire-hq/newswire/internal/secrets"
)

func testCreds() secrets.Static {
	return secrets.Static{"NEWSAPI_KEY": "test-key", "GNEWS_KEY": "test-key"}
}

func TestNewsAPIFetchKeyword(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"articles": [
				{
					"author": "Jane Reporter",
					"title": "Bitcoin climbs",
					"description": "Price action",
					"url": "https://example.com/btc",
					"urlToImage": "https://example.com/btc.jpg",
					"publishedAt": "2026-08-01T10:30:00Z",
					"content": "Full text"
				},
				{
					"title": "Undated follow-up",
					"url": "https://example.com/btc-2",
					"publishedAt": "not-a-date"
				}
			]
		}`))
	}))
	defer srv.Close()

	adapter := NewNewsAPI(NewHTTPClient(5*time.Second), testCreds())
	src := news.NewsSource{Name: "newsapi", CredentialRef: "NEWSAPI_KEY", BaseURL: srv.URL}

	items, err := adapter.Fetch(context.Background(), src, news.FetchQuery{
		Keyword:  "bitcoin",
		NewsType: news.NewsTypeKeyword,
		Limit:    5,
	})
	require.NoError(t, err)
	require.Equal(t, "/v2/everything", gotPath)
	require.Equal(t, "bitcoin", gotQuery)
	require.Equal(t, "test-key", gotKey)
	require.Len(t, items, 2)

	require.Equal(t, "Bitcoin climbs", items[0].Title)
	require.Equal(t, "https://example.com/btc", items[0].URL)
	require.Equal(t, "Jane Reporter", items[0].Author)
	require.NotNil(t, items[0].PublishedAt)
	require.Equal(t, time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC), *items[0].PublishedAt)

	// Malformed dates keep the item with no published time.
	require.Nil(t, items[1].PublishedAt)
	require.Empty(t, items[1].ExternalID)
}

func TestNewsAPIFetchFinancialUsesBusinessCategory(t *testing.T) {
	t.Parallel()

	var gotPath, gotCategory string
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCategory = r.URL.Query().Get("category")
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","articles":[]}`))
	}))
	defer srv.Close()

	adapter := NewNewsAPI(NewHTTPClient(5*time.Second), testCreds())
	src := news.NewsSource{Name: "newsapi", CredentialRef: "NEWSAPI_KEY", BaseURL: srv.URL}

	items, err := adapter.Fetch(context.Background(), src, news.FetchQuery{
		NewsType: news.NewsTypeFinancial,
		Limit:    10,
	})
	require.NoError(t, err)
	require.Empty(t, items)
	require.Equal(t, "/v2/top-headlines", gotPath)
	require.Equal(t, "business", gotCategory)
	// A fetch without a keyword must not send an empty q= parameter.
	require.False(t, gotQuery.Has("q"))
}

func TestNewsAPIFetchHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	adapter := NewNewsAPI(NewHTTPClient(5*time.Second), testCreds())
	src := news.NewsSource{Name: "newsapi", CredentialRef: "NEWSAPI_KEY", BaseURL: srv.URL}

	_, err := adapter.Fetch(context.Background(), src, news.FetchQuery{NewsType: news.NewsTypeGeneral, Limit: 5})
	require.Error(t, err)
	var srcErr *news.SourceError
	require.ErrorAs(t, err, &srcErr)
	require.Equal(t, "newsapi", srcErr.Provider)
}

func TestNewsAPIFetchAPILevelError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"error","message":"apiKeyInvalid"}`))
	}))
	defer srv.Close()

	adapter := NewNewsAPI(NewHTTPClient(5*time.Second), testCreds())
	src := news.NewsSource{Name: "newsapi", CredentialRef: "NEWSAPI_KEY", BaseURL: srv.URL}

	_, err := adapter.Fetch(context.Background(), src, news.FetchQuery{NewsType: news.NewsTypeGeneral, Limit: 5})
	require.Error(t, err)
	require.Contains(t, err.Error(), "apiKeyInvalid")
}

func TestNewsAPIFetchMissingCredential(t *testing.T) {
	t.Parallel()

	adapter := NewNewsAPI(NewHTTPClient(5*time.Second), secrets.Static{})
	src := news.NewsSource{Name: "newsapi", CredentialRef: "NEWSAPI_KEY"}

	_, err := adapter.Fetch(context.Background(), src, news.FetchQuery{NewsType: news.NewsTypeGeneral, Limit: 5})
	var srcErr *news.SourceError
	require.ErrorAs(t, err, &srcErr)
	require.Equal(t, "newsapi", srcErr.Provider)
}
