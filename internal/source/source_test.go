package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/newswire-hq/newswire/internal/secrets"
)

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry(NewHTTPClient(time.Second), secrets.Static{})

	for _, name := range []string{"newsapi", "NewsAPI", "FINNHUB", "alphavantage", "gnews"} {
		adapter, ok := reg.AdapterFor(name)
		require.True(t, ok, "expected adapter for %q", name)
		require.NotNil(t, adapter)
	}

	_, ok := reg.AdapterFor("unknown-provider")
	require.False(t, ok)
}

func TestTickerFromKeyword(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"tesla stock":   "TESLA",
		"  aapl ":       "AAPL",
		"bit-coin news": "BITCOIN",
		"":              "",
		"   ":           "",
	}
	for in, want := range cases {
		require.Equal(t, want, tickerFromKeyword(in), "keyword %q", in)
	}
}

func TestParseTimeToleratesGarbage(t *testing.T) {
	t.Parallel()

	require.Nil(t, parseTime(time.RFC3339, ""))
	require.Nil(t, parseTime(time.RFC3339, "yesterday"))

	got := parseTime(time.RFC3339, "2026-01-02T03:04:05Z")
	require.NotNil(t, got)
	require.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), *got)
}

func TestBaseOrDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://fallback", baseOrDefault("", "https://fallback"))
	require.Equal(t, "https://custom", baseOrDefault("https://custom/", "https://fallback"))
}
