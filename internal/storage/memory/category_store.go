package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/newswire-hq/newswire/internal/news"
)

// CategoryStore holds the seeded category rows.
type CategoryStore struct {
	mu     sync.RWMutex
	bySlug map[string]news.Category
}

// NewCategoryStore creates a CategoryStore pre-loaded with the given
// categories.
func NewCategoryStore(seed []news.Category) *CategoryStore {
	s := &CategoryStore{bySlug: make(map[string]news.Category, len(seed))}
	for _, cat := range seed {
		s.bySlug[cat.Slug] = cat
	}
	return s
}

// CategoryBySlug returns the category or a NotFoundError.
func (s *CategoryStore) CategoryBySlug(_ context.Context, slug string) (news.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cat, ok := s.bySlug[slug]
	if !ok {
		return news.Category{}, &news.NotFoundError{Kind: "category", ID: slug}
	}
	return cat, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
