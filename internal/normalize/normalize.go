// Package normalize builds canonical articles from raw provider items.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/newswire-hq/newswire/internal/news"
)

// externalIDLength truncates URL-derived ids to a compact, still
// collision-safe prefix of the full hex digest.
const externalIDLength = 16

// Normalizer derives stable external ids and assembles canonical articles.
type Normalizer struct {
	hasher news.Hasher
}

// New creates a Normalizer.
func New(hasher news.Hasher) *Normalizer {
	return &Normalizer{hasher: hasher}
}

// Article converts a raw provider item into the canonical record for the
// given source. When the provider supplied no stable id, one is derived
// deterministically from the canonical URL so that repeated fetches of the
// same content dedupe onto the same row. Missing text fields stay empty or
// nil; a missing URL is the only condition that rejects the item.
func (n *Normalizer) Article(
	raw news.RawItem,
	src news.NewsSource,
	categoryID *int64,
	keyword string,
	newsType news.NewsType,
	now time.Time,
) (news.Article, error) {
	url := strings.TrimSpace(raw.URL)
	if url == "" {
		return news.Article{}, fmt.Errorf("raw item from %s has no url", src.Name)
	}

	externalID := strings.TrimSpace(raw.ExternalID)
	if externalID == "" {
		digest, err := n.hasher.Hash([]byte(url))
		if err != nil {
			return news.Article{}, fmt.Errorf("derive external id: %w", err)
		}
		if len(digest) > externalIDLength {
			digest = digest[:externalIDLength]
		}
		externalID = digest
	}

	return news.Article{
		ExternalID:  externalID,
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
		Content:     optional(raw.Content),
		URL:         url,
		PublishedAt: raw.PublishedAt,
		Author:      optional(raw.Author),
		SourceID:    src.ID,
		CategoryID:  categoryID,
		Keyword:     keyword,
		NewsType:    newsType,
		ImageURL:    optional(raw.ImageURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
