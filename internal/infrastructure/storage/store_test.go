package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesPipeline/internal/domain"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pipeline.db")
	s, err := Open(context.Background(), "sqlite", path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func count(t *testing.T, s *Store, table string) int {
	t.Helper()

	quoted, err := quote(table)
	require.NoError(t, err)
	var n int
	require.NoError(t, s.db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+quoted).Scan(&n))
	return n
}

var day = time.Date(2024, time.May, 14, 8, 30, 0, 0, time.UTC)

func TestInsertArticleIfAbsentIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openSQLite(t)

	first := domain.Article{URL: "https://medium.com/@a/x", Title: "Original", Source: "Medium", Body: "body", DiscoveredAt: day}
	inserted, err := s.InsertArticleIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	again := first
	again.Title = "Changed"
	inserted, err = s.InsertArticleIfAbsent(ctx, again)
	require.NoError(t, err)
	assert.False(t, inserted)

	assert.Equal(t, 1, count(t, s, articlesTable))

	pending, err := s.ArticlesToSummarize(ctx, "medium_summaries", false)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Original", pending[0].Title)
	assert.Equal(t, "body", pending[0].Body)
	assert.True(t, pending[0].DiscoveredAt.Equal(day))
}

func TestArticlesToSummarizeSkipsSummarized(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openSQLite(t)

	for _, u := range []string{"https://a.example/1", "https://a.example/2"} {
		_, err := s.InsertArticleIfAbsent(ctx, domain.Article{URL: u, Title: u, Body: "b", DiscoveredAt: day})
		require.NoError(t, err)
	}
	require.NoError(t, s.UpsertSummary(ctx, "medium_summaries", domain.Summary{URL: "https://a.example/1", Text: "s", Date: day}))

	pending, err := s.ArticlesToSummarize(ctx, "medium_summaries", false)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "https://a.example/2", pending[0].URL)

	everything, err := s.ArticlesToSummarize(ctx, "medium_summaries", true)
	require.NoError(t, err)
	assert.Len(t, everything, 2)
}

func TestUpsertSummaryOverwrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openSQLite(t)

	url := "https://a.example/story"
	require.NoError(t, s.UpsertSummary(ctx, "medium_summaries", domain.Summary{URL: url, Title: "T", Author: "N/A", Text: "first", Source: "Medium", Date: day}))
	require.NoError(t, s.UpsertSummary(ctx, "medium_summaries", domain.Summary{URL: url, Title: "T2", Author: "N/A", Text: "second", Source: "Medium", Date: day.Add(time.Hour)}))

	assert.Equal(t, 1, count(t, s, "medium_summaries"))

	var title, text string
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT title, summary FROM "medium_summaries" WHERE url = ?`, url).Scan(&title, &text))
	assert.Equal(t, "T2", title)
	assert.Equal(t, "second", text)
}

func TestInsertSummaryIfAbsentKeepsFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openSQLite(t)

	url := "https://a.example/feed-item"
	inserted, err := s.InsertSummaryIfAbsent(ctx, "summaries", domain.Summary{URL: url, Text: "feed one", Date: day})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertSummaryIfAbsent(ctx, "summaries", domain.Summary{URL: url, Text: "feed two", Date: day})
	require.NoError(t, err)
	assert.False(t, inserted)

	var text string
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT summary FROM "summaries" WHERE url = ?`, url).Scan(&text))
	assert.Equal(t, "feed one", text)
}

func TestUnifyFirstWriterWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openSQLite(t)

	shared := "https://a.example/shared"
	_, err := s.InsertSummaryIfAbsent(ctx, "summaries", domain.Summary{URL: shared, Text: "from feed", Source: "AI Trends", Date: day})
	require.NoError(t, err)
	require.NoError(t, s.UpsertSummary(ctx, "medium_summaries", domain.Summary{URL: shared, Text: "from llm", Source: "Medium", Date: day}))
	require.NoError(t, s.UpsertSummary(ctx, "medium_summaries", domain.Summary{URL: "https://a.example/only-medium", Text: "m", Source: "Medium", Date: day}))

	origins := []string{"summaries", "medium_summaries"}
	results, err := s.Unify(ctx, origins, day)
	require.NoError(t, err)
	assert.Equal(t, []domain.MergeResult{
		{Origin: "summaries", Inserted: 1},
		{Origin: "medium_summaries", Inserted: 1},
	}, results)

	// a later edit of the losing origin never reaches the unified row
	require.NoError(t, s.UpsertSummary(ctx, "medium_summaries", domain.Summary{URL: shared, Text: "edited", Source: "Medium", Date: day}))
	results, err = s.Unify(ctx, origins, day.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, results[0].Inserted)
	assert.Zero(t, results[1].Inserted)

	unified, err := s.SummariesToClassify(ctx, true)
	require.NoError(t, err)
	require.Len(t, unified, 2)
	assert.Equal(t, shared, unified[0].URL)
	assert.Equal(t, "from feed", unified[0].Text)
	assert.Equal(t, "summaries", unified[0].OriginTable)
	assert.True(t, unified[0].LastUpdated.Equal(day))
	assert.Equal(t, "medium_summaries", unified[1].OriginTable)
}

func TestClassificationUpsertAndPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openSQLite(t)

	for _, u := range []string{"https://a.example/1", "https://a.example/2"} {
		require.NoError(t, s.UpsertSummary(ctx, "medium_summaries", domain.Summary{URL: u, Title: u, Text: "t", Date: day}))
	}
	_, err := s.Unify(ctx, []string{"summaries", "medium_summaries"}, day)
	require.NoError(t, err)

	c := domain.Classification{
		URL: "https://a.example/1", Title: "first title", Source: "Medium", Date: day,
		Relevance: domain.RelevanceYes, Explanation: "mentions agents", Model: "m1", ClassifiedAt: day,
	}
	require.NoError(t, s.UpsertClassification(ctx, c))

	pending, err := s.SummariesToClassify(ctx, false)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "https://a.example/2", pending[0].URL)

	c.Title = "renamed"
	c.Relevance = domain.RelevanceNo
	c.Explanation = "off topic"
	c.Model = "m2"
	require.NoError(t, s.UpsertClassification(ctx, c))
	assert.Equal(t, 1, count(t, s, classificationsTable))

	var title, relevance, explanation, model string
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT title, relevance, explanation, model FROM "classification_results" WHERE url = ?`, c.URL,
	).Scan(&title, &relevance, &explanation, &model))
	assert.Equal(t, "first title", title)
	assert.Equal(t, "No", relevance)
	assert.Equal(t, "off topic", explanation)
	assert.Equal(t, "m2", model)
}

func TestInvalidTableName(t *testing.T) {
	t.Parallel()
	s := openSQLite(t)

	err := s.UpsertSummary(context.Background(), "summaries; DROP TABLE articles", domain.Summary{URL: "x"})
	require.Error(t, err)

	_, err = s.Unify(context.Background(), []string{"Bad-Name"}, day)
	require.Error(t, err)
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "mysql", "dsn", nil)
	require.Error(t, err)
}

func TestWithSQLiteTimeFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a.db?_time_format=sqlite", withSQLiteTimeFormat("a.db"))
	assert.Equal(t, "file:a.db?cache=shared&_time_format=sqlite", withSQLiteTimeFormat("file:a.db?cache=shared"))
	assert.Equal(t, "a.db?_time_format=sqlite", withSQLiteTimeFormat("a.db?_time_format=sqlite"))
}

func TestLegacyTablesAreMigrated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openSQLite(t)

	for _, stmt := range []string{
		`CREATE TABLE articles (id INTEGER PRIMARY KEY, url TEXT UNIQUE, source TEXT, title TEXT, content TEXT)`,
		`INSERT INTO articles (id, url, source, title, content) VALUES (1, 'https://a.example/old', 'Medium', 'old', 'body')`,
		s.ddl(kindUnified, `"unified_summaries"`),
		`INSERT INTO unified_summaries (id, url, summary, origin_table) VALUES (5, 'https://a.example/old', 'text', 'summaries')`,
		`INSERT INTO unified_summaries (id, url, summary, origin_table) VALUES (6, 'https://a.example/new', 'text', 'summaries')`,
		`CREATE TABLE classification_results (id INTEGER PRIMARY KEY, article_id INTEGER UNIQUE, title TEXT, source TEXT, date DATE, relevance TEXT, explanation TEXT)`,
		`INSERT INTO classification_results (article_id, title, relevance, explanation) VALUES (5, 'old', 'Yes', 'legacy verdict')`,
	} {
		_, err := s.db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}

	inserted, err := s.InsertArticleIfAbsent(ctx, domain.Article{URL: "https://a.example/fresh", Body: "b", DiscoveredAt: day})
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = s.InsertArticleIfAbsent(ctx, domain.Article{URL: "https://a.example/old", Body: "b", DiscoveredAt: day})
	require.NoError(t, err)
	assert.False(t, inserted)

	// the legacy verdict pointed at unified row 5 and now counts for its url
	pending, err := s.SummariesToClassify(ctx, false)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "https://a.example/new", pending[0].URL)

	c := domain.Classification{URL: "https://a.example/old", Relevance: domain.RelevanceNo, Explanation: "rechecked", ClassifiedAt: day}
	require.NoError(t, s.UpsertClassification(ctx, c))
	assert.Equal(t, 1, count(t, s, classificationsTable))

	var relevance string
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT relevance FROM classification_results WHERE url = ?`, c.URL,
	).Scan(&relevance))
	assert.Equal(t, "No", relevance)
}
