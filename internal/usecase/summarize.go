package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ArticlesPipeline/internal/config"
	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/ports"
)

// Summarizer turns stored articles into LLM summaries.
type Summarizer struct {
	articles  ports.ArticleRepository
	summaries ports.SummaryRepository
	completer ports.Completer
	cfg       config.SummarizeConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewSummarizer constructs the summarisation stage.
func NewSummarizer(articles ports.ArticleRepository, summaries ports.SummaryRepository, completer ports.Completer, cfg config.SummarizeConfig, log *slog.Logger) *Summarizer {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSummarySystemPrompt
	}
	if cfg.UserPrompt == "" {
		cfg.UserPrompt = DefaultSummaryUserPrompt
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Summarizer{
		articles:  articles,
		summaries: summaries,
		completer: completer,
		cfg:       cfg,
		logger:    loggerOrDefault(log),
		now:       time.Now,
	}
}

// Run summarises every article missing from the summary table, or every
// article when all is set. Existing summaries are overwritten.
func (s *Summarizer) Run(ctx context.Context, all bool) (report domain.StageReport, err error) {
	report = domain.NewStageReport(domain.StageSummarize, s.now())
	defer func() { report.FinishedAt = s.now() }()

	articles, err := s.articles.ArticlesToSummarize(ctx, s.cfg.Table, all)
	if err != nil {
		return report, fmt.Errorf("load articles to summarize: %w", err)
	}
	s.logger.Info("articles to summarize", slog.Int("count", len(articles)), slog.String("table", s.cfg.Table))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Concurrency)

	for _, article := range articles {
		if ctx.Err() != nil {
			break
		}
		article := article
		g.Go(func() error {
			outcome := s.summarize(ctx, article)
			mu.Lock()
			report.Add(outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return report, ctx.Err()
}

func (s *Summarizer) summarize(ctx context.Context, article domain.Article) domain.Outcome {
	log := s.logger.With(slog.String("url", article.URL))

	text := Truncate(article.Body, s.cfg.MaxInputChars)
	if strings.TrimSpace(text) == "" {
		log.Warn("article has no body")
		return domain.OutcomeSkipped
	}

	summary, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: s.cfg.SystemPrompt},
			{Role: domain.RoleUser, Content: BuildSummaryPrompt(s.cfg.UserPrompt, text)},
		},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		log.Error("summarize failed", slog.Any("err", err))
		return domain.OutcomeFailed
	}

	err = s.summaries.UpsertSummary(ctx, s.cfg.Table, domain.Summary{
		URL:    article.URL,
		Title:  article.Title,
		Author: unknownAuthor,
		Text:   summary,
		Source: article.Source,
		Date:   s.now(),
	})
	if err != nil {
		log.Error("store summary failed", slog.Any("err", err))
		return domain.OutcomeFailed
	}

	log.Info("article summarized", slog.String("title", article.Title))
	return domain.OutcomeStored
}
