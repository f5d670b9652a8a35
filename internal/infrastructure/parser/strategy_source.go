package parser

import (
	"context"
	"errors"
	"log/slog"

	"ArticlesPipeline/internal/config"
	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/harvest"
	"ArticlesPipeline/internal/ports"
)

// StrategySource implements LinkSource via registered harvester strategies.
type StrategySource struct {
	registry *harvest.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.LinkSource = (*StrategySource)(nil)

// NewStrategySource wires the harvester registry with config-defined sources.
func NewStrategySource(reg *harvest.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// Harvest walks every configured source and returns links deduplicated by URL.
// A failing source is logged and skipped; the first occurrence of a URL wins.
func (s *StrategySource) Harvest(ctx context.Context) ([]domain.Link, error) {
	if s.registry == nil {
		return nil, errors.New("harvester registry is not configured")
	}

	s.debug("harvest", "sources", len(s.sources))

	seen := map[string]struct{}{}
	var aggregated []domain.Link
	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return aggregated, err
		}

		strategy, err := s.registry.Resolve(src.Harvester)
		if err != nil {
			s.warn("skip source", "source", src.Name, "error", err)
			continue
		}

		req := harvest.Request{
			SourceName: src.Name,
			URL:        src.URL,
			Query:      src.Query,
			Pattern:    src.Pattern,
			Options:    src.Options,
		}

		results, err := strategy.Harvest(ctx, req)
		if err != nil {
			s.warn("source failed", "source", src.Name, "harvester", src.Harvester, "error", err)
			continue
		}

		added := 0
		for _, link := range results {
			if link.Source == "" {
				link.Source = src.Name
			}
			if _, dup := seen[link.URL]; dup {
				continue
			}
			seen[link.URL] = struct{}{}
			aggregated = append(aggregated, link)
			added++
		}
		s.debug("source produced links", "source", src.Name, "count", len(results), "new", added)
	}

	s.debug("strategy source done", "total_links", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
