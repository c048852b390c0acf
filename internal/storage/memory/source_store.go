package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/newswire-hq/newswire/internal/news"
)

// SourceStore keeps the seeded provider rows in memory.
type SourceStore struct {
	mu      sync.RWMutex
	sources map[int64]news.NewsSource
	clock   news.Clock
}

// NewSourceStore creates a SourceStore pre-loaded with the given sources.
func NewSourceStore(clock news.Clock, seed []news.NewsSource) *SourceStore {
	s := &SourceStore{
		sources: make(map[int64]news.NewsSource, len(seed)),
		clock:   clock,
	}
	for _, src := range seed {
		s.sources[src.ID] = src
	}
	return s
}

// ListSources returns all sources ordered by id.
func (s *SourceStore) ListSources(_ context.Context) ([]news.NewsSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]news.NewsSource, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ActiveSourcesByIDs resolves ids to active sources, silently skipping
// unknown and inactive ids. Order follows the requested ids.
func (s *SourceStore) ActiveSourcesByIDs(_ context.Context, ids []int64) ([]news.NewsSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]news.NewsSource, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		src, ok := s.sources[id]
		if !ok || !src.Active {
			continue
		}
		out = append(out, src)
	}
	return out, nil
}

// SetSourceActive toggles a source's active flag.
func (s *SourceStore) SetSourceActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return &news.NotFoundError{Kind: "source", ID: formatID(id)}
	}
	src.Active = active
	src.UpdatedAt = s.clock.Now()
	s.sources[id] = src
	return nil
}
