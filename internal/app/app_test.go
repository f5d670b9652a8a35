package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesPipeline/internal/config"
	"ArticlesPipeline/internal/domain"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "pipeline.db")
	cfg.LLM.APIKey = ""
	cfg.Sources = nil
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) *Application {
	t.Helper()

	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestStagesWithoutLLMFailFast(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := newTestApp(t, testConfig(t))

	_, err := a.Summarize(ctx, false)
	require.ErrorIs(t, err, ErrStageUnavailable)
	assert.Contains(t, err.Error(), domain.StageSummarize)

	_, err = a.Classify(ctx, false)
	require.ErrorIs(t, err, ErrStageUnavailable)

	_, err = a.Run(ctx)
	require.ErrorIs(t, err, ErrStageUnavailable)

	require.ErrorIs(t, a.Schedule(ctx), ErrStageUnavailable)

	// unification needs no model
	report, err := a.Unify(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Seen)
}

func TestStagesWithLLMAreWired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.LLM.APIKey = "sk-test"
	a := newTestApp(t, cfg)

	// empty store: nothing reaches the provider
	report, err := a.Summarize(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StageSummarize, report.Stage)

	report, err = a.Classify(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, domain.StageClassify, report.Stage)
}

func TestDigestHarvesterNeedsGmailCredentials(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, testConfig(t))

	registry, err := a.harvesters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"rss", "sheet", "xlsx"}, registry.Names())

	cfg := testConfig(t)
	cfg.Gmail.CredentialsFile = filepath.Join(t.TempDir(), "absent.json")
	_, err = New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gmail")
}
