package storage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/lib/pq"
)

const (
	articlesTable        = "articles"
	unifiedTable         = "unified_summaries"
	classificationsTable = "classification_results"
)

var identExpr = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type tableKind int

const (
	kindArticles tableKind = iota
	kindSummary
	kindUnified
	kindClassifications
)

// quote validates a table name and returns it as a quoted identifier.
func quote(table string) (string, error) {
	if !identExpr.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return pq.QuoteIdentifier(table), nil
}

func (s *Store) ddl(kind tableKind, quoted string) string {
	id, ts := s.dialect.IDColumn, s.dialect.TimeType
	switch kind {
	case kindArticles:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s,
	url TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	discovered_at %s
)`, quoted, id, ts)
	case kindUnified:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s,
	url TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	date %s,
	origin_table TEXT NOT NULL,
	last_updated %s
)`, quoted, id, ts, ts)
	case kindClassifications:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s,
	url TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	date %s,
	relevance TEXT NOT NULL,
	explanation TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	classified_at %s
)`, quoted, id, ts, ts)
	default:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s,
	url TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	date %s
)`, quoted, id, ts)
	}
}

// column is one column a table of a given kind must carry. Legacy tables
// created before the URL key gain missing columns through ALTER TABLE, so
// each definition must be valid as an added column.
type column struct {
	name string
	def  string
}

func (s *Store) columns(kind tableKind) []column {
	ts := s.dialect.TimeType
	text := "TEXT NOT NULL DEFAULT ''"
	switch kind {
	case kindArticles:
		return []column{{"url", "TEXT"}, {"title", text}, {"source", text}, {"content", text}, {"discovered_at", ts}}
	case kindUnified:
		return []column{
			{"url", "TEXT"}, {"title", text}, {"author", text}, {"summary", text}, {"source", text},
			{"date", ts}, {"origin_table", text}, {"last_updated", ts},
		}
	case kindClassifications:
		return []column{
			{"url", "TEXT"}, {"title", text}, {"source", text}, {"date", ts}, {"relevance", text},
			{"explanation", text}, {"model", text}, {"classified_at", ts},
		}
	default:
		return []column{{"url", "TEXT"}, {"title", text}, {"author", text}, {"summary", text}, {"source", text}, {"date", ts}}
	}
}

// ensure creates the table once per process and migrates a legacy layout
// to the URL key. Must not be called inside a transaction: on SQLite the
// pool holds a single connection.
func (s *Store) ensure(ctx context.Context, kind tableKind, table string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(ctx, kind, table)
}

func (s *Store) ensureLocked(ctx context.Context, kind tableKind, table string) (string, error) {
	quoted, err := quote(table)
	if err != nil {
		return "", err
	}
	if s.ensured[table] {
		return quoted, nil
	}
	if _, err := s.db.ExecContext(ctx, s.ddl(kind, quoted)); err != nil {
		return "", fmt.Errorf("create table %s: %w", table, err)
	}
	if err := s.migrate(ctx, kind, table, quoted); err != nil {
		return "", fmt.Errorf("migrate table %s: %w", table, err)
	}
	s.ensured[table] = true
	s.debug("table ensured", "table", table)
	return quoted, nil
}

// migrate adds the columns a pre-existing table lacks. A table without a
// url column was keyed by an integer id: the url is backfilled from the
// table that id points at and a unique index takes over the key role.
func (s *Store) migrate(ctx context.Context, kind tableKind, table, quoted string) error {
	existing, err := s.existingColumns(ctx, table)
	if err != nil {
		return err
	}

	keyed := existing["url"]
	for _, c := range s.columns(kind) {
		if existing[c.name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoted, c.name, c.def)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s: %w", c.name, err)
		}
		s.info("legacy table migrated", "table", table, "column", c.name)
	}
	if keyed {
		return nil
	}

	if err := s.backfillURL(ctx, kind, table, quoted, existing); err != nil {
		return err
	}

	index, err := quote(table + "_url_key")
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (url)", index, quoted)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("index url: %w", err)
	}
	return nil
}

// backfillURL resolves legacy integer references. Summaries pointed at
// articles through article_id; verdicts carried the id of the unified
// summary they were made from, in article_id or in their own id.
func (s *Store) backfillURL(ctx context.Context, kind tableKind, table, quoted string, existing map[string]bool) error {
	var (
		ref    string
		refKey string
	)
	switch {
	case kind == kindSummary && existing["article_id"]:
		ref, refKey = articlesTable, "article_id"
	case kind == kindClassifications && existing["article_id"]:
		ref, refKey = unifiedTable, "article_id"
	case kind == kindClassifications && existing["id"]:
		ref, refKey = unifiedTable, "id"
	default:
		return nil
	}

	refKind := kindArticles
	if ref == unifiedTable {
		refKind = kindUnified
	}
	refQuoted, err := s.ensureLocked(ctx, refKind, ref)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(
		"UPDATE %[1]s SET url = (SELECT r.url FROM %[2]s r WHERE r.id = %[1]s.%[3]s) WHERE url IS NULL",
		quoted, refQuoted, refKey,
	)
	res, err := s.db.ExecContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("backfill url: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		s.info("legacy rows keyed by url", "table", table, "rows", n)
	}
	return nil
}

func (s *Store) existingColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.ColumnsQuery, table)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		out[name] = true
	}
	return out, rows.Err()
}
