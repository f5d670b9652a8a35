package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"ArticlesPipeline/internal/domain"
)

// InsertArticleIfAbsent stores a scraped article unless its URL is already known.
func (s *Store) InsertArticleIfAbsent(ctx context.Context, article domain.Article) (bool, error) {
	table, err := s.ensure(ctx, kindArticles, articlesTable)
	if err != nil {
		return false, err
	}

	query, args, err := s.sb.Insert(table).
		Columns("url", "title", "source", "content", "discovered_at").
		Values(article.URL, article.Title, article.Source, article.Body, article.DiscoveredAt).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert article: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert article %s: %w", article.URL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert article %s: %w", article.URL, err)
	}
	return n > 0, nil
}

// ArticlesToSummarize lists articles without a row in summaryTable, or every
// article when all is set.
func (s *Store) ArticlesToSummarize(ctx context.Context, summaryTable string, all bool) ([]domain.Article, error) {
	articles, err := s.ensure(ctx, kindArticles, articlesTable)
	if err != nil {
		return nil, err
	}
	summaries, err := s.ensure(ctx, kindSummary, summaryTable)
	if err != nil {
		return nil, err
	}

	sel := s.sb.Select(
		"a.id", "a.url", "COALESCE(a.title, '')", "COALESCE(a.source, '')",
		"COALESCE(a.content, '')", "a.discovered_at",
	).From(articles + " a").OrderBy("a.id")
	if !all {
		sel = sel.Where(sq.Expr("NOT EXISTS (SELECT 1 FROM " + summaries + " s WHERE s.url = a.url)"))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select articles: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []domain.Article
	for rows.Next() {
		var (
			a          domain.Article
			discovered sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.URL, &a.Title, &a.Source, &a.Body, &discovered); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.DiscoveredAt = discovered.Time
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
