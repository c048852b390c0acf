package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/newswire-hq/newswire/internal/news"
)

// ArticleStore persists canonical articles. Idempotency is enforced by the
// composite unique constraint on (source_id, external_id); the upsert leans
// on ON CONFLICT so concurrent writers cannot race a check-then-insert.
type ArticleStore struct {
	db    Querier
	clock news.Clock
}

// NewArticleStore constructs an ArticleStore over the given querier.
func NewArticleStore(db Querier, clock news.Clock) *ArticleStore {
	return &ArticleStore{db: db, clock: clock}
}

const articleColumns = "id, external_id, title, description, content, url, published_at, author, source_id, category_id, keyword, news_type, image_url, enhanced, created_at, updated_at"

// UpsertArticle inserts the article or refreshes the mutable fields of the
// existing row. `xmax = 0` is true only for freshly inserted tuples, which is
// how one round trip reports created vs updated.
func (s *ArticleStore) UpsertArticle(ctx context.Context, article news.Article) (news.UpsertOutcome, error) {
	now := s.clock.Now()
	query, args, err := psql.Insert("articles").
		Columns(
			"external_id", "title", "description", "content", "url",
			"published_at", "author", "source_id", "category_id",
			"keyword", "news_type", "image_url", "enhanced",
			"created_at", "updated_at",
		).
		Values(
			article.ExternalID, article.Title, article.Description, article.Content, article.URL,
			article.PublishedAt, article.Author, article.SourceID, article.CategoryID,
			article.Keyword, string(article.NewsType), article.ImageURL, article.Enhanced,
			now, now,
		).
		Suffix(`ON CONFLICT (source_id, external_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			content = EXCLUDED.content,
			url = EXCLUDED.url,
			published_at = EXCLUDED.published_at,
			author = EXCLUDED.author,
			image_url = EXCLUDED.image_url,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)`).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build upsert article: %w", err)
	}
	var inserted bool
	if err := s.db.QueryRow(ctx, query, args...).Scan(&inserted); err != nil {
		return "", fmt.Errorf("upsert article: %w", err)
	}
	if inserted {
		return news.UpsertCreated, nil
	}
	return news.UpsertUpdated, nil
}

// ListArticles returns articles newest first with the total count for the
// filter. Rows without a published date sort last.
func (s *ArticleStore) ListArticles(ctx context.Context, filter news.ArticleFilter) ([]news.Article, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	conds := articleConds(filter)
	countBuilder := psql.Select("COUNT(*)").From("articles")
	listBuilder := psql.Select(articleColumns).From("articles")
	for _, cond := range conds {
		countBuilder = countBuilder.Where(cond)
		listBuilder = listBuilder.Where(cond)
	}

	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count articles: %w", err)
	}
	var total int
	if err := s.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	query, args, err := listBuilder.
		OrderBy("published_at DESC NULLS LAST", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list articles: %w", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	articles := make([]news.Article, 0, limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan article row: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate article rows: %w", err)
	}
	return articles, total, nil
}

func articleConds(filter news.ArticleFilter) []sq.Sqlizer {
	var conds []sq.Sqlizer
	if filter.SourceID != nil {
		conds = append(conds, sq.Eq{"source_id": *filter.SourceID})
	}
	if filter.NewsType != nil {
		conds = append(conds, sq.Eq{"news_type": string(*filter.NewsType)})
	}
	if filter.Keyword != "" {
		conds = append(conds, sq.Expr("LOWER(keyword) = LOWER(?)", filter.Keyword))
	}
	return conds
}

func scanArticle(row pgx.Row) (news.Article, error) {
	var (
		article  news.Article
		newsType string
	)
	if err := row.Scan(
		&article.ID,
		&article.ExternalID,
		&article.Title,
		&article.Description,
		&article.Content,
		&article.URL,
		&article.PublishedAt,
		&article.Author,
		&article.SourceID,
		&article.CategoryID,
		&article.Keyword,
		&newsType,
		&article.ImageURL,
		&article.Enhanced,
		&article.CreatedAt,
		&article.UpdatedAt,
	); err != nil {
		return news.Article{}, err
	}
	article.NewsType = news.NewsType(newsType)
	return article, nil
}
