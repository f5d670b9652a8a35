package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/ports"
)

// FeedSummaryTable receives excerpts that arrive already summarised by a feed.
const FeedSummaryTable = "summaries"

const unknownAuthor = "N/A"

// IngestDeps wires the ingestion stage.
type IngestDeps struct {
	Source    ports.LinkSource
	Scraper   ports.PageScraper
	Articles  ports.ArticleRepository
	Summaries ports.SummaryRepository
	// FeedTable overrides FeedSummaryTable.
	FeedTable string
	Logger    *slog.Logger
}

// Ingester harvests links and stores them: feed excerpts go straight to the
// feed summary table, scrape links become canonical articles.
type Ingester struct {
	source    ports.LinkSource
	scraper   ports.PageScraper
	articles  ports.ArticleRepository
	summaries ports.SummaryRepository
	feedTable string
	logger    *slog.Logger
	now       func() time.Time
}

// NewIngester constructs the ingestion stage.
func NewIngester(deps IngestDeps) *Ingester {
	feedTable := deps.FeedTable
	if feedTable == "" {
		feedTable = FeedSummaryTable
	}
	return &Ingester{
		source:    deps.Source,
		scraper:   deps.Scraper,
		articles:  deps.Articles,
		summaries: deps.Summaries,
		feedTable: feedTable,
		logger:    loggerOrDefault(deps.Logger),
		now:       time.Now,
	}
}

// Run performs one ingestion sweep. Only a harvest failure or cancellation is
// returned as an error; per-link problems are logged and counted.
func (i *Ingester) Run(ctx context.Context) (report domain.StageReport, err error) {
	report = domain.NewStageReport(domain.StageIngest, i.now())
	defer func() { report.FinishedAt = i.now() }()

	if i.source == nil {
		return report, nil
	}

	links, err := i.source.Harvest(ctx)
	if err != nil {
		return report, fmt.Errorf("harvest links: %w", err)
	}
	i.logger.Info("links harvested", slog.Int("count", len(links)))

	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome := i.ingest(ctx, link)
		report.Add(outcome)
		i.logger.Info("link ingested",
			slog.String("url", link.URL),
			slog.String("source", link.Source),
			slog.String("outcome", string(outcome)),
		)
	}

	return report, ctx.Err()
}

// ingest handles one link. A link that carries both an excerpt and a scrape
// request reports the scrape outcome.
func (i *Ingester) ingest(ctx context.Context, link domain.Link) domain.Outcome {
	outcome := domain.OutcomeSkipped
	if link.Excerpt != "" {
		outcome = i.storeExcerpt(ctx, link)
	}
	if link.Scrape {
		outcome = i.scrape(ctx, link)
	}
	return outcome
}

func (i *Ingester) storeExcerpt(ctx context.Context, link domain.Link) domain.Outcome {
	if i.summaries == nil {
		return domain.OutcomeSkipped
	}

	author := link.Author
	if author == "" {
		author = unknownAuthor
	}
	date := link.PublishedAt
	if date.IsZero() {
		date = i.now()
	}

	inserted, err := i.summaries.InsertSummaryIfAbsent(ctx, i.feedTable, domain.Summary{
		URL:    link.URL,
		Title:  link.Title,
		Author: author,
		Text:   link.Excerpt,
		Source: link.Source,
		Date:   date,
	})
	if err != nil {
		i.logger.Error("store feed summary failed", slog.String("url", link.URL), slog.Any("err", err))
		return domain.OutcomeFailed
	}
	if !inserted {
		return domain.OutcomeDuplicate
	}
	return domain.OutcomeStored
}

func (i *Ingester) scrape(ctx context.Context, link domain.Link) domain.Outcome {
	if i.scraper == nil || i.articles == nil {
		return domain.OutcomeSkipped
	}

	article, err := i.scraper.Scrape(ctx, link.URL, link.Source)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUnknownLayout):
		i.logger.Warn("no layout for source", slog.String("url", link.URL), slog.String("source", link.Source))
		return domain.OutcomeSkipped
	case errors.Is(err, domain.ErrUnavailable):
		i.logger.Warn("article unavailable", slog.String("url", link.URL), slog.Any("err", err))
		return domain.OutcomeUnavailable
	default:
		i.logger.Error("scrape failed", slog.String("url", link.URL), slog.Any("err", err))
		return domain.OutcomeFailed
	}

	if article.Title == "" {
		article.Title = link.Title
	}
	inserted, err := i.articles.InsertArticleIfAbsent(ctx, article)
	if err != nil {
		i.logger.Error("store article failed", slog.String("url", article.URL), slog.Any("err", err))
		return domain.OutcomeFailed
	}
	if !inserted {
		return domain.OutcomeDuplicate
	}
	return domain.OutcomeStored
}

func loggerOrDefault(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}
