package usecase

import (
	"context"
	"log/slog"
	"time"

	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/ports"
)

var timeNow = time.Now

// PipelineDeps wires the stages into the orchestration pipeline.
// Any stage may be nil and is then skipped.
type PipelineDeps struct {
	Ingester   *Ingester
	Summarizer *Summarizer
	Unifier    *Unifier
	Classifier *Classifier
	Observer   ports.StageObserver
	Logger     *slog.Logger
}

// Pipeline runs ingest, summarize, unify and classify in that order.
type Pipeline struct {
	ingester   *Ingester
	summarizer *Summarizer
	unifier    *Unifier
	classifier *Classifier
	observer   ports.StageObserver
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		ingester:   deps.Ingester,
		summarizer: deps.Summarizer,
		unifier:    deps.Unifier,
		classifier: deps.Classifier,
		observer:   deps.Observer,
		logger:     loggerOrDefault(deps.Logger),
	}
}

// Ingest runs the ingestion stage alone.
func (p *Pipeline) Ingest(ctx context.Context) (domain.StageReport, error) {
	if p.ingester == nil {
		return domain.NewStageReport(domain.StageIngest, timeNow()), nil
	}
	return p.finish(p.ingester.Run(ctx))
}

// Summarize runs the summarisation stage alone.
func (p *Pipeline) Summarize(ctx context.Context, all bool) (domain.StageReport, error) {
	if p.summarizer == nil {
		return domain.NewStageReport(domain.StageSummarize, timeNow()), nil
	}
	return p.finish(p.summarizer.Run(ctx, all))
}

// Unify runs the unification stage alone.
func (p *Pipeline) Unify(ctx context.Context) (domain.StageReport, error) {
	if p.unifier == nil {
		return domain.NewStageReport(domain.StageUnify, timeNow()), nil
	}
	return p.finish(p.unifier.Run(ctx))
}

// Classify runs the classification stage alone.
func (p *Pipeline) Classify(ctx context.Context, all bool) (domain.StageReport, error) {
	if p.classifier == nil {
		return domain.NewStageReport(domain.StageClassify, timeNow()), nil
	}
	return p.finish(p.classifier.Run(ctx, all))
}

// Run executes every stage once. Per-item failures stay inside the reports;
// a stage-level error stops the run and is returned with the reports so far.
func (p *Pipeline) Run(ctx context.Context) ([]domain.StageReport, error) {
	stages := []func(context.Context) (domain.StageReport, error){
		p.Ingest,
		func(ctx context.Context) (domain.StageReport, error) { return p.Summarize(ctx, false) },
		p.Unify,
		func(ctx context.Context) (domain.StageReport, error) { return p.Classify(ctx, false) },
	}

	reports := make([]domain.StageReport, 0, len(stages))
	for _, stage := range stages {
		report, err := stage(ctx)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func (p *Pipeline) finish(report domain.StageReport, err error) (domain.StageReport, error) {
	if report.FinishedAt.IsZero() {
		report.FinishedAt = timeNow()
	}
	if p.observer != nil {
		p.observer.Observe(report)
	}

	attrs := []any{
		slog.String("stage", report.Stage),
		slog.Int("seen", report.Seen),
		slog.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	}
	for outcome, n := range report.Outcomes {
		attrs = append(attrs, slog.Int(string(outcome), n))
	}
	if err != nil {
		p.logger.Error("stage aborted", append(attrs, slog.Any("err", err))...)
		return report, err
	}
	p.logger.Info("stage finished", attrs...)
	return report, nil
}
