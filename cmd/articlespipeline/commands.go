package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ArticlesPipeline/internal/app"
	"ArticlesPipeline/internal/config"
	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "articlespipeline",
		Short:         "Collect, summarise and classify articles",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		stageCommand(opts, "ingest", "Harvest links and store feed summaries and scraped articles",
			func(ctx context.Context, a *app.Application, _ bool) ([]domain.StageReport, error) {
				return single(a.Ingest(ctx))
			}, false),
		stageCommand(opts, "summarize", "Summarise stored articles with the configured model",
			func(ctx context.Context, a *app.Application, all bool) ([]domain.StageReport, error) {
				return single(a.Summarize(ctx, all))
			}, true),
		stageCommand(opts, "unify", "Merge summary tables into the unified table",
			func(ctx context.Context, a *app.Application, _ bool) ([]domain.StageReport, error) {
				return single(a.Unify(ctx))
			}, false),
		stageCommand(opts, "classify", "Classify unified summaries against the campaign rubric",
			func(ctx context.Context, a *app.Application, all bool) ([]domain.StageReport, error) {
				return single(a.Classify(ctx, all))
			}, true),
		stageCommand(opts, "run", "Run ingest, summarize, unify and classify once",
			func(ctx context.Context, a *app.Application, _ bool) ([]domain.StageReport, error) {
				return a.Run(ctx)
			}, false),
		scheduleCommand(opts),
	)
	return root
}

type stageFunc func(ctx context.Context, a *app.Application, all bool) ([]domain.StageReport, error)

func stageCommand(opts *rootOptions, name, short string, run stageFunc, withAll bool) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, logger, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer closeApp(a, logger)

			reports, runErr := run(ctx, a, all)
			printReports(cmd, reports)
			if err := a.PushMetrics(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("push metrics failed", slog.Any("err", err))
			}
			return runErr
		},
	}
	if withAll {
		cmd.Flags().BoolVar(&all, "all", false, "reprocess every row, not only pending ones")
	}
	return cmd
}

func scheduleCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on the configured cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, logger, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeApp(a, logger)
			return a.Schedule(cmd.Context())
		},
	}
}

func openApp(ctx context.Context, opts *rootOptions) (*app.Application, *slog.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	logger, _ := logging.WithRun(logging.New(cfg.Logging.Level))
	logger.Debug("configuration loaded", slog.String("path", opts.configPath), slog.String("db", cfg.Database.Driver))

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

func closeApp(a *app.Application, logger *slog.Logger) {
	if err := a.Close(); err != nil {
		logger.Warn("shutdown", slog.Any("err", err))
	}
}

func single(report domain.StageReport, err error) ([]domain.StageReport, error) {
	return []domain.StageReport{report}, err
}

func printReports(cmd *cobra.Command, reports []domain.StageReport) {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold).SprintFunc()

	for _, r := range reports {
		if r.Stage == "" {
			continue
		}
		took := r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)
		if took < 0 {
			took = 0
		}
		fmt.Fprintf(out, "%s  seen=%d  took=%s\n", bold(r.Stage), r.Seen, took)

		outcomes := make([]string, 0, len(r.Outcomes))
		for o := range r.Outcomes {
			outcomes = append(outcomes, string(o))
		}
		sort.Strings(outcomes)
		for _, o := range outcomes {
			n := r.Outcomes[domain.Outcome(o)]
			fmt.Fprintf(out, "  %-12s %s\n", o, outcomeColor(domain.Outcome(o)).Sprint(n))
		}
	}
}

func outcomeColor(o domain.Outcome) *color.Color {
	switch o {
	case domain.OutcomeStored:
		return color.New(color.FgGreen)
	case domain.OutcomeFailed:
		return color.New(color.FgRed)
	case domain.OutcomeUnavailable, domain.OutcomeUnparsed:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}
