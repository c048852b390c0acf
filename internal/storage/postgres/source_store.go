package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/newswire-hq/newswire/internal/news"
)

// SourceStore reads and toggles the seeded news_sources rows.
type SourceStore struct {
	db    Querier
	clock news.Clock
}

// NewSourceStore constructs a SourceStore over the given querier.
func NewSourceStore(db Querier, clock news.Clock) *SourceStore {
	return &SourceStore{db: db, clock: clock}
}

const sourceColumns = "id, name, credential_ref, base_url, active, created_at, updated_at"

// ListSources returns all sources ordered by id.
func (s *SourceStore) ListSources(ctx context.Context) ([]news.NewsSource, error) {
	query, args, err := psql.Select(sourceColumns).
		From("news_sources").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sources: %w", err)
	}
	return s.querySources(ctx, query, args)
}

// ActiveSourcesByIDs resolves ids to active sources. Unknown and inactive ids
// simply do not come back.
func (s *SourceStore) ActiveSourcesByIDs(ctx context.Context, ids []int64) ([]news.NewsSource, error) {
	if len(ids) == 0 {
		return []news.NewsSource{}, nil
	}
	query, args, err := psql.Select(sourceColumns).
		From("news_sources").
		Where(sq.Eq{"id": ids, "active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active sources: %w", err)
	}
	return s.querySources(ctx, query, args)
}

// SetSourceActive toggles a source's active flag.
func (s *SourceStore) SetSourceActive(ctx context.Context, id int64, active bool) error {
	query, args, err := psql.Update("news_sources").
		Set("active", active).
		Set("updated_at", s.clock.Now()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set source active: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set source active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &news.NotFoundError{Kind: "source", ID: strconv.FormatInt(id, 10)}
	}
	return nil
}

func (s *SourceStore) querySources(ctx context.Context, query string, args []any) ([]news.NewsSource, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []news.NewsSource
	for rows.Next() {
		var src news.NewsSource
		if err := rows.Scan(
			&src.ID,
			&src.Name,
			&src.CredentialRef,
			&src.BaseURL,
			&src.Active,
			&src.CreatedAt,
			&src.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source rows: %w", err)
	}
	return sources, nil
}

// CategoryStore resolves seeded category rows.
type CategoryStore struct {
	db Querier
}

// NewCategoryStore constructs a CategoryStore over the given querier.
func NewCategoryStore(db Querier) *CategoryStore {
	return &CategoryStore{db: db}
}

// CategoryBySlug returns the category or a NotFoundError.
func (s *CategoryStore) CategoryBySlug(ctx context.Context, slug string) (news.Category, error) {
	query, args, err := psql.Select("id", "name", "slug").
		From("categories").
		Where(sq.Eq{"slug": slug}).
		ToSql()
	if err != nil {
		return news.Category{}, fmt.Errorf("build select category: %w", err)
	}
	var cat news.Category
	err = s.db.QueryRow(ctx, query, args...).Scan(&cat.ID, &cat.Name, &cat.Slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return news.Category{}, &news.NotFoundError{Kind: "category", ID: slug}
	}
	if err != nil {
		return news.Category{}, fmt.Errorf("select category: %w", err)
	}
	return cat, nil
}
