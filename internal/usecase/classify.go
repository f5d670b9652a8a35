package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ArticlesPipeline/internal/config"
	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/ports"
)

// Classifier scores unified summaries against the campaign rubric.
type Classifier struct {
	repo      ports.UnifiedRepository
	store     ports.ClassificationRepository
	completer ports.Completer
	notifier  ports.Notifier
	cfg       config.ClassifyConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewClassifier constructs the classification stage. The notifier is optional.
func NewClassifier(repo ports.UnifiedRepository, store ports.ClassificationRepository, completer ports.Completer, notifier ports.Notifier, cfg config.ClassifyConfig, log *slog.Logger) *Classifier {
	if cfg.PromptTemplate == "" {
		cfg.PromptTemplate = DefaultClassificationPrompt
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Classifier{
		repo:      repo,
		store:     store,
		completer: completer,
		notifier:  notifier,
		cfg:       cfg,
		logger:    loggerOrDefault(log),
		now:       time.Now,
	}
}

// Run classifies unified summaries that have no verdict yet, or all of them
// when all is set. Relevant items of the sweep are published as one digest.
func (c *Classifier) Run(ctx context.Context, all bool) (report domain.StageReport, err error) {
	report = domain.NewStageReport(domain.StageClassify, c.now())
	defer func() { report.FinishedAt = c.now() }()

	pending, err := c.repo.SummariesToClassify(ctx, all)
	if err != nil {
		return report, fmt.Errorf("load summaries to classify: %w", err)
	}
	c.logger.Info("summaries to classify", slog.Int("count", len(pending)))

	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make([]domain.Classification, len(pending))
	)
	g.SetLimit(c.cfg.Concurrency)

	for i, summary := range pending {
		if ctx.Err() != nil {
			break
		}
		i, summary := i, summary
		g.Go(func() error {
			result, outcome := c.classify(ctx, summary)
			results[i] = result
			mu.Lock()
			report.Add(outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	var relevant []domain.Classification
	for _, r := range results {
		if r.Relevance == domain.RelevanceYes {
			relevant = append(relevant, r)
		}
	}
	c.publish(ctx, relevant)
	return report, nil
}

func (c *Classifier) classify(ctx context.Context, summary domain.UnifiedSummary) (domain.Classification, domain.Outcome) {
	log := c.logger.With(slog.String("url", summary.URL))

	reply, err := c.completer.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: BuildClassificationPrompt(c.cfg.PromptTemplate, summary.Text)},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		log.Error("classify failed", slog.Any("err", err))
		return domain.Classification{}, domain.OutcomeFailed
	}

	verdict, raw, err := ParseVerdict(reply)
	if err != nil {
		if errors.Is(err, domain.ErrUnparsed) {
			log.Warn("classification reply not parsed", slog.String("reply", reply))
			return domain.Classification{}, domain.OutcomeUnparsed
		}
		log.Error("classify failed", slog.Any("err", err))
		return domain.Classification{}, domain.OutcomeFailed
	}
	if verdict.Relevance == domain.RelevanceUnknown {
		log.Warn("unrecognised relevance value", slog.String("value", raw))
	}

	result := domain.Classification{
		URL:          summary.URL,
		Title:        summary.Title,
		Source:       summary.Source,
		Date:         summary.Date,
		Relevance:    verdict.Relevance,
		Explanation:  verdict.Explanation,
		Model:        c.completer.Model(),
		ClassifiedAt: c.now(),
	}
	if err := c.store.UpsertClassification(ctx, result); err != nil {
		log.Error("store classification failed", slog.Any("err", err))
		return domain.Classification{}, domain.OutcomeFailed
	}

	log.Info("summary classified", slog.String("relevance", string(result.Relevance)))
	return result, domain.OutcomeStored
}

// publish sends the digest of relevant items. Delivery problems never fail the stage.
func (c *Classifier) publish(ctx context.Context, relevant []domain.Classification) {
	if c.notifier == nil || len(relevant) == 0 {
		return
	}
	if err := c.notifier.PublishDigest(ctx, BuildDigest(relevant)); err != nil {
		c.logger.Warn("publish digest failed", slog.Int("items", len(relevant)), slog.Any("err", err))
		return
	}
	c.logger.Info("digest published", slog.Int("items", len(relevant)))
}
