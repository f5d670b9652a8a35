package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"ArticlesPipeline/internal/domain"
)

// Unify folds origin summary tables into unified_summaries in one transaction.
// Origins are merged in order; a URL already present is never overwritten, so
// the first origin to contribute a URL wins.
func (s *Store) Unify(ctx context.Context, origins []string, now time.Time) ([]domain.MergeResult, error) {
	target, err := s.ensure(ctx, kindUnified, unifiedTable)
	if err != nil {
		return nil, err
	}
	quotedOrigins := make([]string, len(origins))
	for i, origin := range origins {
		if quotedOrigins[i], err = s.ensure(ctx, kindSummary, origin); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin unify: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if s.dialect.LockUnified != "" {
		if _, err := tx.ExecContext(ctx, s.dialect.LockUnified); err != nil {
			return nil, fmt.Errorf("lock %s: %w", unifiedTable, err)
		}
	}

	results := make([]domain.MergeResult, 0, len(origins))
	for i, origin := range origins {
		n, err := s.mergeOrigin(ctx, tx, target, quotedOrigins[i], origin, now)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.MergeResult{Origin: origin, Inserted: n})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit unify: %w", err)
	}
	return results, nil
}

func (s *Store) mergeOrigin(ctx context.Context, tx *sql.Tx, target, quotedOrigin, origin string, now time.Time) (int64, error) {
	sel := sq.Select(
		"s.url", "COALESCE(s.title, '')", "COALESCE(s.author, '')",
		"COALESCE(s.summary, '')", "COALESCE(s.source, '')", "s.date",
	).
		Column(s.dialect.TextParam+" AS origin_table", origin).
		Column(s.dialect.TimeParam, now).
		From(quotedOrigin + " s").
		Where(sq.Expr("NOT EXISTS (SELECT 1 FROM " + target + " u WHERE u.url = s.url)"))

	query, args, err := s.sb.Insert(target).
		Columns(append(append([]string{}, summaryColumns...), "origin_table", "last_updated")...).
		Select(sel).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build merge %s: %w", origin, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("merge %s: %w", origin, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("merge %s: %w", origin, err)
	}
	return n, nil
}

// SummariesToClassify lists unified rows without a classification, or every
// unified row when all is set.
func (s *Store) SummariesToClassify(ctx context.Context, all bool) ([]domain.UnifiedSummary, error) {
	unified, err := s.ensure(ctx, kindUnified, unifiedTable)
	if err != nil {
		return nil, err
	}
	classified, err := s.ensure(ctx, kindClassifications, classificationsTable)
	if err != nil {
		return nil, err
	}

	sel := s.sb.Select(
		"u.url", "COALESCE(u.title, '')", "COALESCE(u.author, '')", "COALESCE(u.summary, '')",
		"COALESCE(u.source, '')", "u.date", "u.origin_table", "u.last_updated",
	).From(unified + " u").OrderBy("u.id")
	if !all {
		sel = sel.Where(sq.Expr("NOT EXISTS (SELECT 1 FROM " + classified + " c WHERE c.url = u.url)"))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select unified: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unified: %w", err)
	}
	defer rows.Close()

	var out []domain.UnifiedSummary
	for rows.Next() {
		var (
			u             domain.UnifiedSummary
			date, updated sql.NullTime
		)
		if err := rows.Scan(&u.URL, &u.Title, &u.Author, &u.Text, &u.Source, &date, &u.OriginTable, &updated); err != nil {
			return nil, fmt.Errorf("scan unified: %w", err)
		}
		u.Date = date.Time
		u.LastUpdated = updated.Time
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
