package storage

import (
	"context"
	"fmt"

	"ArticlesPipeline/internal/domain"
)

var summaryColumns = []string{"url", "title", "author", "summary", "source", "date"}

func summaryValues(sum domain.Summary) []any {
	return []any{sum.URL, sum.Title, sum.Author, sum.Text, sum.Source, sum.Date}
}

// InsertSummaryIfAbsent writes a summary row only when the URL is new to table.
func (s *Store) InsertSummaryIfAbsent(ctx context.Context, table string, sum domain.Summary) (bool, error) {
	quoted, err := s.ensure(ctx, kindSummary, table)
	if err != nil {
		return false, err
	}

	query, args, err := s.sb.Insert(quoted).
		Columns(summaryColumns...).
		Values(summaryValues(sum)...).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert summary: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert summary %s into %s: %w", sum.URL, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert summary %s into %s: %w", sum.URL, table, err)
	}
	return n > 0, nil
}

// UpsertSummary writes a summary row, replacing every content column on conflict.
func (s *Store) UpsertSummary(ctx context.Context, table string, sum domain.Summary) error {
	quoted, err := s.ensure(ctx, kindSummary, table)
	if err != nil {
		return err
	}

	query, args, err := s.sb.Insert(quoted).
		Columns(summaryColumns...).
		Values(summaryValues(sum)...).
		Suffix(`ON CONFLICT (url) DO UPDATE SET
	title = EXCLUDED.title,
	author = EXCLUDED.author,
	summary = EXCLUDED.summary,
	source = EXCLUDED.source,
	date = EXCLUDED.date`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert summary: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert summary %s into %s: %w", sum.URL, table, err)
	}
	return nil
}
