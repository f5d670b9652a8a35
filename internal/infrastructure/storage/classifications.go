package storage

import (
	"context"
	"fmt"

	"ArticlesPipeline/internal/domain"
)

// UpsertClassification stores a verdict keyed by URL. On conflict only the
// verdict columns change; title, source and date keep their first values.
func (s *Store) UpsertClassification(ctx context.Context, c domain.Classification) error {
	table, err := s.ensure(ctx, kindClassifications, classificationsTable)
	if err != nil {
		return err
	}

	query, args, err := s.sb.Insert(table).
		Columns("url", "title", "source", "date", "relevance", "explanation", "model", "classified_at").
		Values(c.URL, c.Title, c.Source, c.Date, string(c.Relevance), c.Explanation, c.Model, c.ClassifiedAt).
		Suffix(`ON CONFLICT (url) DO UPDATE SET
	relevance = EXCLUDED.relevance,
	explanation = EXCLUDED.explanation,
	model = EXCLUDED.model,
	classified_at = EXCLUDED.classified_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert classification: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert classification %s: %w", c.URL, err)
	}
	return nil
}
