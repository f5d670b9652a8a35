package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesPipeline/internal/domain"
)

func newTestIngester(source *fakeSource, scraper *fakeScraper, store *memStore) *Ingester {
	ing := NewIngester(IngestDeps{
		Source:    source,
		Scraper:   scraper,
		Articles:  store,
		Summaries: store,
		Logger:    quietLogger(),
	})
	ing.now = fixedNow
	return ing
}

func TestIngestIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	source := &fakeSource{links: []domain.Link{
		{URL: "https://medium.com/@a/one", Source: "Medium", Scrape: true},
		{URL: "https://feed.example/two", Source: "TechCrunch", Title: "Two", Excerpt: "feed text"},
	}}
	ing := newTestIngester(source, &fakeScraper{}, store)

	first, err := ing.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Count(domain.OutcomeStored))

	second, err := ing.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, second.Count(domain.OutcomeDuplicate))
	assert.Zero(t, second.Count(domain.OutcomeStored))

	assert.Len(t, store.articles, 1)
	assert.Len(t, store.table(FeedSummaryTable).rows, 1)
}

func TestIngestFeedTableOverride(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing := NewIngester(IngestDeps{
		Source:    &fakeSource{links: []domain.Link{{URL: "https://feed.example/a", Source: "Feed", Excerpt: "text"}}},
		Scraper:   &fakeScraper{},
		Articles:  store,
		Summaries: store,
		FeedTable: "feed_excerpts",
		Logger:    quietLogger(),
	})

	_, err := ing.Run(context.Background())
	require.NoError(t, err)

	_, ok := store.summary("feed_excerpts", "https://feed.example/a")
	assert.True(t, ok)
	_, ok = store.summary(FeedSummaryTable, "https://feed.example/a")
	assert.False(t, ok)
}

func TestIngestFeedExcerptDefaults(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing := newTestIngester(&fakeSource{links: []domain.Link{
		{URL: "https://feed.example/a", Source: "AI Trends", Title: "A", Excerpt: "plain text"},
	}}, &fakeScraper{}, store)

	_, err := ing.Run(context.Background())
	require.NoError(t, err)

	row, ok := store.summary(FeedSummaryTable, "https://feed.example/a")
	require.True(t, ok)
	assert.Equal(t, "N/A", row.Author)
	assert.Equal(t, "plain text", row.Text)
	assert.Equal(t, "AI Trends", row.Source)
	assert.True(t, row.Date.Equal(day))
}

func TestIngestPaywallStoresNothing(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	url := "https://medium.com/@a/members-only"
	scraper := &fakeScraper{results: map[string]scrapeResult{
		url: {err: fmt.Errorf("%w: paywall", domain.ErrUnavailable)},
	}}
	ing := newTestIngester(&fakeSource{links: []domain.Link{{URL: url, Source: "Medium", Scrape: true}}}, scraper, store)

	report, err := ing.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(domain.OutcomeUnavailable))
	assert.Empty(t, store.articles)
}

func TestIngestPerLinkOutcomes(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	scraper := &fakeScraper{results: map[string]scrapeResult{
		"https://x.example/unknown": {err: fmt.Errorf("%w: %q", domain.ErrUnknownLayout, "Blog")},
		"https://x.example/broken":  {err: errBoom},
	}}
	ing := newTestIngester(&fakeSource{links: []domain.Link{
		{URL: "https://x.example/unknown", Source: "Blog", Scrape: true},
		{URL: "https://x.example/broken", Source: "Medium", Scrape: true},
		{URL: "https://x.example/fine", Source: "Medium", Scrape: true},
		{URL: "https://x.example/bare", Source: "Medium"},
	}}, scraper, store)

	report, err := ing.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Seen)
	assert.Equal(t, 2, report.Count(domain.OutcomeSkipped))
	assert.Equal(t, 1, report.Count(domain.OutcomeFailed))
	assert.Equal(t, 1, report.Count(domain.OutcomeStored))
	assert.Equal(t, 3, scraper.calls)
	assert.Equal(t, day, report.FinishedAt)
}

func TestIngestHarvestFailureIsFatal(t *testing.T) {
	t.Parallel()

	ing := newTestIngester(&fakeSource{err: errBoom}, &fakeScraper{}, newMemStore())
	_, err := ing.Run(context.Background())
	require.ErrorIs(t, err, errBoom)
}

func TestIngestStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scraper := &fakeScraper{}
	ing := newTestIngester(&fakeSource{links: []domain.Link{{URL: "https://x.example/a", Scrape: true}}}, scraper, newMemStore())
	_, err := ing.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, scraper.calls)
}
