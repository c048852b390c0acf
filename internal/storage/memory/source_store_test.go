package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/newswire-hq/newswire/internal/clock/system"
	"github.com/newswire-hq/newswire/internal/news"
)

func seededSourceStore() *SourceStore {
	return NewSourceStore(system.New(), []news.NewsSource{
		{ID: 1, Name: "newsapi", Active: true},
		{ID: 2, Name: "finnhub", Active: false},
		{ID: 3, Name: "gnews", Active: true},
	})
}

func TestActiveSourcesByIDsSkipsUnknownAndInactive(t *testing.T) {
	t.Parallel()

	store := seededSourceStore()
	got, err := store.ActiveSourcesByIDs(context.Background(), []int64{1, 2, 3, 99, 1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "newsapi", got[0].Name)
	require.Equal(t, "gnews", got[1].Name)
}

func TestSetSourceActive(t *testing.T) {
	t.Parallel()

	store := seededSourceStore()
	ctx := context.Background()

	require.NoError(t, store.SetSourceActive(ctx, 2, true))
	got, err := store.ActiveSourcesByIDs(ctx, []int64{2})
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.True(t, news.IsNotFound(store.SetSourceActive(ctx, 99, true)))
}

func TestListSourcesOrderedByID(t *testing.T) {
	t.Parallel()

	store := seededSourceStore()
	got, err := store.ListSources(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, int64(1), got[0].ID)
	require.Equal(t, int64(3), got[2].ID)
}

func TestCategoryBySlug(t *testing.T) {
	t.Parallel()

	store := NewCategoryStore([]news.Category{{ID: 1, Name: "General", Slug: "general"}})
	cat, err := store.CategoryBySlug(context.Background(), "general")
	require.NoError(t, err)
	require.Equal(t, int64(1), cat.ID)

	_, err = store.CategoryBySlug(context.Background(), "sports")
	require.True(t, news.IsNotFound(err))
}
