package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/newswire-hq/newswire/internal/news"
)

type articleKey struct {
	sourceID   int64
	externalID string
}

// ArticleStore keeps articles in a map keyed by (source id, external id), the
// same uniqueness the postgres schema enforces with its composite constraint.
type ArticleStore struct {
	mu       sync.RWMutex
	articles map[articleKey]news.Article
	nextID   int64
	clock    news.Clock
}

// NewArticleStore creates an empty ArticleStore.
func NewArticleStore(clock news.Clock) *ArticleStore {
	return &ArticleStore{
		articles: make(map[articleKey]news.Article),
		nextID:   1,
		clock:    clock,
	}
}

// UpsertArticle inserts a new row or refreshes the mutable fields of the
// existing one. Identity fields (external id, source, keyword, news type) and
// CreatedAt never change on the update path.
func (s *ArticleStore) UpsertArticle(_ context.Context, article news.Article) (news.UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := articleKey{sourceID: article.SourceID, externalID: article.ExternalID}
	now := s.clock.Now()

	existing, ok := s.articles[key]
	if !ok {
		article.ID = s.nextID
		s.nextID++
		article.CreatedAt = now
		article.UpdatedAt = now
		s.articles[key] = article
		return news.UpsertCreated, nil
	}

	existing.Title = article.Title
	existing.Description = article.Description
	existing.Content = article.Content
	existing.URL = article.URL
	existing.PublishedAt = article.PublishedAt
	existing.Author = article.Author
	existing.ImageURL = article.ImageURL
	existing.UpdatedAt = now
	s.articles[key] = existing
	return news.UpsertUpdated, nil
}

// ListArticles returns articles newest first by PublishedAt (nil dates last),
// filtered and paged, plus the total matching count.
func (s *ArticleStore) ListArticles(_ context.Context, filter news.ArticleFilter) ([]news.Article, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]news.Article, 0, len(s.articles))
	for _, a := range s.articles {
		if filter.SourceID != nil && a.SourceID != *filter.SourceID {
			continue
		}
		if filter.NewsType != nil && a.NewsType != *filter.NewsType {
			continue
		}
		if filter.Keyword != "" && !strings.EqualFold(a.Keyword, filter.Keyword) {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool {
		pi, pj := matched[i].PublishedAt, matched[j].PublishedAt
		switch {
		case pi == nil && pj == nil:
			return matched[i].ID > matched[j].ID
		case pi == nil:
			return false
		case pj == nil:
			return true
		case !pi.Equal(*pj):
			return pi.After(*pj)
		default:
			return matched[i].ID > matched[j].ID
		}
	})
	total := len(matched)
	return paginate(matched, filter.Page, filter.Limit), total, nil
}
