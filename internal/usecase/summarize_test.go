package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesPipeline/internal/config"
	"ArticlesPipeline/internal/domain"
)

func summarizeConfig() config.SummarizeConfig {
	return config.SummarizeConfig{
		Table:         "medium_summaries",
		MaxInputChars: 4000,
		MaxTokens:     500,
		Temperature:   0.5,
	}
}

func newTestSummarizer(store *memStore, completer *fakeCompleter, cfg config.SummarizeConfig) *Summarizer {
	s := NewSummarizer(store, store, completer, cfg, quietLogger())
	s.now = fixedNow
	return s
}

func seedArticles(t *testing.T, store *memStore, bodies ...string) {
	t.Helper()
	for i, body := range bodies {
		_, err := store.InsertArticleIfAbsent(context.Background(), domain.Article{
			URL: fmt.Sprintf("https://medium.com/@a/%d", i+1), Title: fmt.Sprintf("Article %d", i+1),
			Source: "Medium", Body: body, DiscoveredAt: day,
		})
		require.NoError(t, err)
	}
}

func TestSummarizeRequestShape(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedArticles(t, store, "Large models keep getting cheaper.")
	completer := &fakeCompleter{reply: func(domain.CompletionRequest) (string, error) { return "Cheaper models.", nil }}

	report, err := newTestSummarizer(store, completer, summarizeConfig()).Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(domain.OutcomeStored))

	calls := completer.calls()
	require.Len(t, calls, 1)
	req := calls[0]
	require.Len(t, req.Messages, 2)
	assert.Equal(t, domain.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "You are a helpful assistant that summarizes articles.", req.Messages[0].Content)
	assert.Equal(t, "Please provide a concise summary of the following article:\n\nLarge models keep getting cheaper.", req.Messages[1].Content)
	assert.Equal(t, 500, req.MaxTokens)
	assert.InDelta(t, 0.5, req.Temperature, 1e-9)

	row, ok := store.summary("medium_summaries", "https://medium.com/@a/1")
	require.True(t, ok)
	assert.Equal(t, "Cheaper models.", row.Text)
	assert.Equal(t, "N/A", row.Author)
	assert.Equal(t, "Article 1", row.Title)
	assert.True(t, row.Date.Equal(day))
}

func TestSummarizeTruncationBoundary(t *testing.T) {
	t.Parallel()

	exact := strings.Repeat("x", 4000)
	store := newMemStore()
	seedArticles(t, store, exact, exact+"y")
	completer := &fakeCompleter{reply: func(domain.CompletionRequest) (string, error) { return "ok", nil }}

	_, err := newTestSummarizer(store, completer, summarizeConfig()).Run(context.Background(), false)
	require.NoError(t, err)

	calls := completer.calls()
	require.Len(t, calls, 2)
	prefix := DefaultSummaryUserPrompt + "\n\n"
	for _, req := range calls {
		body := strings.TrimPrefix(lastContent(req), prefix)
		assert.Equal(t, exact, body)
	}
}

func TestSummarizeBatchResilience(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedArticles(t, store, "body-1", "body-2", "body-3", "body-4", "body-5")
	completer := &fakeCompleter{reply: func(req domain.CompletionRequest) (string, error) {
		if strings.HasSuffix(lastContent(req), "body-3") {
			return "", errBoom
		}
		return "summary", nil
	}}

	report, err := newTestSummarizer(store, completer, summarizeConfig()).Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Seen)
	assert.Equal(t, 4, report.Count(domain.OutcomeStored))
	assert.Equal(t, 1, report.Count(domain.OutcomeFailed))

	_, ok := store.summary("medium_summaries", "https://medium.com/@a/3")
	assert.False(t, ok)

	pending, err := store.ArticlesToSummarize(context.Background(), "medium_summaries", false)
	require.NoError(t, err)
	require.Len(t, pending, 1, "failed item is retried on the next sweep")
	assert.Equal(t, "https://medium.com/@a/3", pending[0].URL)
}

func TestSummarizeAllOverwrites(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedArticles(t, store, "body")
	reply := "first"
	completer := &fakeCompleter{reply: func(domain.CompletionRequest) (string, error) { return reply, nil }}
	s := newTestSummarizer(store, completer, summarizeConfig())

	_, err := s.Run(context.Background(), false)
	require.NoError(t, err)

	report, err := s.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, report.Seen)

	reply = "second"
	report, err = s.Run(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(domain.OutcomeStored))

	row, _ := store.summary("medium_summaries", "https://medium.com/@a/1")
	assert.Equal(t, "second", row.Text)
	assert.Len(t, store.table("medium_summaries").rows, 1)
}

func TestSummarizeConcurrentWorkers(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedArticles(t, store, "a", "b", "c", "d", "e", "f")
	completer := &fakeCompleter{reply: func(domain.CompletionRequest) (string, error) { return "s", nil }}
	cfg := summarizeConfig()
	cfg.Concurrency = 3

	report, err := newTestSummarizer(store, completer, cfg).Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 6, report.Count(domain.OutcomeStored))
	assert.Len(t, store.table("medium_summaries").rows, 6)
}

func TestSummarizeFatalOnListError(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.listErr = errBoom
	completer := &fakeCompleter{reply: func(domain.CompletionRequest) (string, error) { return "s", nil }}

	_, err := newTestSummarizer(store, completer, summarizeConfig()).Run(context.Background(), false)
	require.ErrorIs(t, err, errBoom)
	assert.Empty(t, completer.calls())
}

func TestSummarizeStoreFailureCounted(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedArticles(t, store, "body")
	store.upsertErr = errBoom
	completer := &fakeCompleter{reply: func(domain.CompletionRequest) (string, error) { return "s", nil }}

	report, err := newTestSummarizer(store, completer, summarizeConfig()).Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(domain.OutcomeFailed))
}
