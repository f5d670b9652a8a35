package ports

import (
	"context"
	"time"

	"ArticlesPipeline/internal/domain"
)

// LinkSource yields candidate links from every configured upstream.
type LinkSource interface {
	Harvest(ctx context.Context) ([]domain.Link, error)
}

// Inbox returns the HTML body of the newest message matching a search query.
type Inbox interface {
	LatestHTML(ctx context.Context, query string) (string, error)
}

// URLResolver follows redirects; it never fails and falls back to the input.
type URLResolver interface {
	Resolve(ctx context.Context, rawURL string) string
}

// PageScraper renders a page and extracts a fully populated article.
type PageScraper interface {
	Scrape(ctx context.Context, rawURL, tag string) (domain.Article, error)
}

// Browser opens isolated page sessions. Sessions are not shareable.
type Browser interface {
	NewSession(ctx context.Context) (BrowserSession, error)
}

// BrowserSession is the capability set the scraper needs from an automation engine.
type BrowserSession interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	ScrollHeight(ctx context.Context) (int64, error)
	ScrollToBottom(ctx context.Context) error
	PageSource(ctx context.Context) (string, error)
	Text(ctx context.Context, selector string) (string, error)
	Close() error
}

// ArticleRepository is the canonical URL-keyed article store.
type ArticleRepository interface {
	InsertArticleIfAbsent(ctx context.Context, article domain.Article) (bool, error)
	ArticlesToSummarize(ctx context.Context, summaryTable string, all bool) ([]domain.Article, error)
}

// SummaryRepository writes rows of a named summary table.
type SummaryRepository interface {
	InsertSummaryIfAbsent(ctx context.Context, table string, summary domain.Summary) (bool, error)
	UpsertSummary(ctx context.Context, table string, summary domain.Summary) error
}

// UnifiedRepository folds origin tables into the unified table.
type UnifiedRepository interface {
	Unify(ctx context.Context, origins []string, now time.Time) ([]domain.MergeResult, error)
	SummariesToClassify(ctx context.Context, all bool) ([]domain.UnifiedSummary, error)
}

// ClassificationRepository persists verdicts keyed by URL.
type ClassificationRepository interface {
	UpsertClassification(ctx context.Context, c domain.Classification) error
}

// Completer is a black-box text-completion service.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
	Model() string
}

// Notifier streams digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// StageObserver receives finished stage reports (metrics, summaries).
type StageObserver interface {
	Observe(report domain.StageReport)
}
