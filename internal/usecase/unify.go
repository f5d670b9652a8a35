package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/ports"
)

// Unifier folds the origin summary tables into the unified table.
type Unifier struct {
	repo    ports.UnifiedRepository
	origins []string
	logger  *slog.Logger
	now     func() time.Time
}

// NewUnifier constructs the unification stage. Origin order decides which
// table wins when several hold the same URL.
func NewUnifier(repo ports.UnifiedRepository, origins []string, log *slog.Logger) *Unifier {
	return &Unifier{
		repo:    repo,
		origins: append([]string(nil), origins...),
		logger:  loggerOrDefault(log),
		now:     time.Now,
	}
}

// Run merges new rows from every origin. The merge is all-or-nothing, so any
// error is fatal for the stage.
func (u *Unifier) Run(ctx context.Context) (report domain.StageReport, err error) {
	report = domain.NewStageReport(domain.StageUnify, u.now())
	defer func() { report.FinishedAt = u.now() }()

	results, err := u.repo.Unify(ctx, u.origins, report.StartedAt)
	if err != nil {
		return report, fmt.Errorf("unify summaries: %w", err)
	}

	for _, r := range results {
		report.AddN(domain.OutcomeStored, int(r.Inserted))
		u.logger.Info("origin merged", slog.String("origin", r.Origin), slog.Int64("inserted", r.Inserted))
	}
	return report, nil
}
