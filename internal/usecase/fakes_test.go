package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ArticlesPipeline/internal/domain"
)

var day = time.Date(2024, time.May, 14, 8, 30, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow() time.Time { return day }

type memTable struct {
	rows []domain.Summary
	idx  map[string]int
}

// memStore is an in-memory stand-in for every repository port.
type memStore struct {
	mu              sync.Mutex
	articles        []domain.Article
	articleIdx      map[string]bool
	tables          map[string]*memTable
	unified         []domain.UnifiedSummary
	unifiedIdx      map[string]bool
	classifications map[string]domain.Classification

	listErr   error
	unifyErr  error
	upsertErr error
}

func newMemStore() *memStore {
	return &memStore{
		articleIdx:      map[string]bool{},
		tables:          map[string]*memTable{},
		unifiedIdx:      map[string]bool{},
		classifications: map[string]domain.Classification{},
	}
}

func (m *memStore) table(name string) *memTable {
	t, ok := m.tables[name]
	if !ok {
		t = &memTable{idx: map[string]int{}}
		m.tables[name] = t
	}
	return t
}

func (m *memStore) InsertArticleIfAbsent(_ context.Context, a domain.Article) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.articleIdx[a.URL] {
		return false, nil
	}
	m.articleIdx[a.URL] = true
	m.articles = append(m.articles, a)
	return true, nil
}

func (m *memStore) ArticlesToSummarize(_ context.Context, table string, all bool) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	t := m.table(table)
	var out []domain.Article
	for _, a := range m.articles {
		if _, done := t.idx[a.URL]; done && !all {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) InsertSummaryIfAbsent(_ context.Context, table string, s domain.Summary) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.table(table)
	if _, ok := t.idx[s.URL]; ok {
		return false, nil
	}
	t.idx[s.URL] = len(t.rows)
	t.rows = append(t.rows, s)
	return true, nil
}

func (m *memStore) UpsertSummary(_ context.Context, table string, s domain.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	t := m.table(table)
	if i, ok := t.idx[s.URL]; ok {
		t.rows[i] = s
		return nil
	}
	t.idx[s.URL] = len(t.rows)
	t.rows = append(t.rows, s)
	return nil
}

func (m *memStore) summary(table, url string) (domain.Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.table(table)
	i, ok := t.idx[url]
	if !ok {
		return domain.Summary{}, false
	}
	return t.rows[i], true
}

func (m *memStore) Unify(_ context.Context, origins []string, now time.Time) ([]domain.MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unifyErr != nil {
		return nil, m.unifyErr
	}
	var results []domain.MergeResult
	for _, origin := range origins {
		var n int64
		for _, row := range m.table(origin).rows {
			if m.unifiedIdx[row.URL] {
				continue
			}
			m.unifiedIdx[row.URL] = true
			m.unified = append(m.unified, domain.UnifiedSummary{Summary: row, OriginTable: origin, LastUpdated: now})
			n++
		}
		results = append(results, domain.MergeResult{Origin: origin, Inserted: n})
	}
	return results, nil
}

func (m *memStore) SummariesToClassify(_ context.Context, all bool) ([]domain.UnifiedSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.UnifiedSummary
	for _, u := range m.unified {
		if _, done := m.classifications[u.URL]; done && !all {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *memStore) UpsertClassification(_ context.Context, c domain.Classification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if prev, ok := m.classifications[c.URL]; ok {
		prev.Relevance = c.Relevance
		prev.Explanation = c.Explanation
		prev.Model = c.Model
		prev.ClassifiedAt = c.ClassifiedAt
		c = prev
	}
	m.classifications[c.URL] = c
	return nil
}

func (m *memStore) addUnified(urls ...string) {
	for _, u := range urls {
		_ = m.UpsertSummary(context.Background(), "medium_summaries", domain.Summary{
			URL: u, Title: "title " + u, Text: "summary of " + u, Source: "Medium", Date: day,
		})
	}
	_, _ = m.Unify(context.Background(), []string{"medium_summaries"}, day)
}

type fakeCompleter struct {
	mu       sync.Mutex
	requests []domain.CompletionRequest
	reply    func(req domain.CompletionRequest) (string, error)
}

func (f *fakeCompleter) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.reply(req)
}

func (f *fakeCompleter) Model() string { return "fake-model" }

func (f *fakeCompleter) calls() []domain.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CompletionRequest(nil), f.requests...)
}

func lastContent(req domain.CompletionRequest) string {
	return req.Messages[len(req.Messages)-1].Content
}

type fakeSource struct {
	links []domain.Link
	err   error
}

func (f *fakeSource) Harvest(context.Context) ([]domain.Link, error) {
	return f.links, f.err
}

type scrapeResult struct {
	article domain.Article
	err     error
}

type fakeScraper struct {
	results map[string]scrapeResult
	calls   int
}

func (f *fakeScraper) Scrape(_ context.Context, rawURL, tag string) (domain.Article, error) {
	f.calls++
	r, ok := f.results[rawURL]
	if !ok {
		return domain.Article{URL: rawURL, Title: "scraped " + rawURL, Source: tag, Body: "body", DiscoveredAt: day}, nil
	}
	return r.article, r.err
}

type fakeNotifier struct {
	digests []string
	err     error
}

func (f *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	f.digests = append(f.digests, digest)
	return f.err
}

type recordingObserver struct {
	reports []domain.StageReport
}

func (r *recordingObserver) Observe(report domain.StageReport) {
	r.reports = append(r.reports, report)
}

func verdictReply(relevance, explanation string) string {
	return strings.Join([]string{
		"- **Relevant**: " + relevance,
		"- **Explanation**: " + explanation,
	}, "\n")
}

var errBoom = errors.New("boom")
