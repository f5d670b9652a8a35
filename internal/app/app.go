package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ArticlesPipeline/internal/config"
	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/harvest"
	"ArticlesPipeline/internal/infrastructure/browser"
	"ArticlesPipeline/internal/infrastructure/gmail"
	"ArticlesPipeline/internal/infrastructure/llm"
	"ArticlesPipeline/internal/infrastructure/metrics"
	"ArticlesPipeline/internal/infrastructure/parser"
	"ArticlesPipeline/internal/infrastructure/resolver"
	"ArticlesPipeline/internal/infrastructure/scheduler"
	"ArticlesPipeline/internal/infrastructure/storage"
	"ArticlesPipeline/internal/infrastructure/telegram"
	"ArticlesPipeline/internal/logging"
	"ArticlesPipeline/internal/ports"
	"ArticlesPipeline/internal/scraper"
	"ArticlesPipeline/internal/usecase"
)

// ErrStageUnavailable is returned when a stage cannot run with the current configuration.
var ErrStageUnavailable = errors.New("stage not configured")

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.Store
	chrome   *browser.Chrome
	recorder *metrics.Recorder
	pipeline *usecase.Pipeline

	// reasons a stage was left unwired, keyed by stage name
	missing map[string]error
}

// New opens the store and builds every stage the configuration allows.
// Stages that need an LLM are left out when no provider can be built.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, baseLogger.With("component", "storage"))
	if err != nil {
		return nil, err
	}

	a := &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		recorder: metrics.NewRecorder(),
		missing:  map[string]error{},
	}

	a.chrome = browser.New(
		browser.Options(cfg.Browser.Headless, cfg.Browser.UserAgent, cfg.Browser.ExecPath),
		baseLogger.With("component", "browser"),
	)
	pageScraper := scraper.New(
		a.chrome,
		resolver.New(cfg.Resolver.Timeout, cfg.Resolver.RatePerSecond, baseLogger.With("component", "resolver")),
		cfg.Scraper,
		baseLogger.With("component", "scraper"),
	)

	registry, err := a.harvesters(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	source := parser.NewStrategySource(registry, cfg.Sources, baseLogger.With("component", "source"))

	deps := usecase.PipelineDeps{
		Ingester: usecase.NewIngester(usecase.IngestDeps{
			Source:    source,
			Scraper:   pageScraper,
			Articles:  store,
			Summaries: store,
			FeedTable: cfg.Ingest.FeedTable,
			Logger:    baseLogger.With("component", "ingest"),
		}),
		Unifier:  usecase.NewUnifier(store, cfg.Unify.Origins, baseLogger.With("component", "unify")),
		Observer: a.recorder,
		Logger:   baseLogger.With("component", "pipeline"),
	}

	if completer, err := llm.New(cfg.LLM, cfg.Summarize.Model, baseLogger.With("component", "llm.summarize")); err != nil {
		a.missing[domain.StageSummarize] = err
	} else {
		deps.Summarizer = usecase.NewSummarizer(store, store, completer, cfg.Summarize, baseLogger.With("component", "summarize"))
	}

	if completer, err := llm.New(cfg.LLM, cfg.Classify.Model, baseLogger.With("component", "llm.classify")); err != nil {
		a.missing[domain.StageClassify] = err
	} else {
		deps.Classifier = usecase.NewClassifier(store, store, completer, a.notifier(), cfg.Classify, baseLogger.With("component", "classify"))
	}

	a.pipeline = usecase.NewPipeline(deps)
	return a, nil
}

func (a *Application) harvesters(ctx context.Context) (*harvest.Registry, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	registry := harvest.NewRegistry()
	registry.Register(parser.NewRSSHarvester(client, a.logger.With("component", "harvest.rss")))
	registry.Register(parser.NewSheetHarvester(client, a.logger.With("component", "harvest.sheet")))
	registry.Register(parser.NewWorkbookHarvester(a.logger.With("component", "harvest.xlsx")))

	if a.cfg.Gmail.CredentialsFile != "" {
		inbox, err := gmail.New(ctx, a.cfg.Gmail.CredentialsFile, a.cfg.Gmail.User, a.logger.With("component", "gmail"))
		if err != nil {
			return nil, err
		}
		registry.Register(parser.NewDigestHarvester(inbox, a.logger.With("component", "harvest.digest")))
	}

	a.logger.Debug("harvesters registered", slog.Any("names", registry.Names()))
	return registry, nil
}

func (a *Application) notifier() ports.Notifier {
	tg := a.cfg.Notifications.Telegram
	if tg.BotToken == "" || tg.ChatID == "" {
		return nil
	}
	return telegram.NewNotifier(tg.BotToken, tg.ChatID)
}

func (a *Application) require(stage string) error {
	if err, ok := a.missing[stage]; ok {
		return fmt.Errorf("%w: %s: %v", ErrStageUnavailable, stage, err)
	}
	return nil
}

// Ingest harvests and stores new links.
func (a *Application) Ingest(ctx context.Context) (domain.StageReport, error) {
	return a.pipeline.Ingest(ctx)
}

// Summarize runs the summarisation stage.
func (a *Application) Summarize(ctx context.Context, all bool) (domain.StageReport, error) {
	if err := a.require(domain.StageSummarize); err != nil {
		return domain.StageReport{Stage: domain.StageSummarize}, err
	}
	return a.pipeline.Summarize(ctx, all)
}

// Unify folds origin tables into the unified table.
func (a *Application) Unify(ctx context.Context) (domain.StageReport, error) {
	return a.pipeline.Unify(ctx)
}

// Classify runs the classification stage.
func (a *Application) Classify(ctx context.Context, all bool) (domain.StageReport, error) {
	if err := a.require(domain.StageClassify); err != nil {
		return domain.StageReport{Stage: domain.StageClassify}, err
	}
	return a.pipeline.Classify(ctx, all)
}

// Run performs one full pipeline execution.
func (a *Application) Run(ctx context.Context) ([]domain.StageReport, error) {
	for _, stage := range []string{domain.StageSummarize, domain.StageClassify} {
		if err := a.require(stage); err != nil {
			return nil, err
		}
	}
	return a.pipeline.Run(ctx)
}

// Schedule runs the pipeline on the configured cron expression until ctx is done.
func (a *Application) Schedule(ctx context.Context) error {
	for _, stage := range []string{domain.StageSummarize, domain.StageClassify} {
		if err := a.require(stage); err != nil {
			return err
		}
	}

	sc := a.cfg.Scheduler
	driver := scheduler.NewCronScheduler(sc.CronExpression, sc.Location(), sc.RunOnStart, a.logger.With("component", "scheduler"))
	if next, err := driver.Next(time.Now()); err == nil {
		a.logger.Info("scheduler armed", slog.String("cron", sc.CronExpression), slog.Time("next", next))
	}

	s := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "schedule"))
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

// PushMetrics sends the collected stage metrics to the configured Pushgateway.
func (a *Application) PushMetrics(ctx context.Context) error {
	m := a.cfg.Metrics
	if m.PushgatewayURL == "" {
		return nil
	}
	return a.recorder.Push(ctx, m.PushgatewayURL, m.Job)
}

// Close stops the browser and releases the database.
func (a *Application) Close() error {
	var errs []error
	if a.chrome != nil {
		errs = append(errs, a.chrome.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
