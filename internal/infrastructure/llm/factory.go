package llm

import (
	"fmt"
	"log/slog"
	"strings"

	"ArticlesPipeline/internal/config"
	"ArticlesPipeline/internal/ports"
)

// New builds the configured provider wrapped in a circuit breaker.
// A non-empty model overrides cfg.Model for one stage.
func New(cfg config.LLMConfig, model string, log *slog.Logger) (ports.Completer, error) {
	if model == "" {
		model = cfg.Model
	}

	var (
		completer ports.Completer
		err       error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		completer, err = NewOpenAIClient(cfg.Endpoint, cfg.APIKey, model, cfg.Timeout)
	case "ollama":
		completer, err = NewOllamaClient(cfg.Endpoint, model)
	case "anthropic":
		completer, err = NewAnthropicClient(cfg.APIKey, model, cfg.Endpoint)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return WithBreaker(completer, cfg.BreakerFailures, cfg.BreakerCooldown, log), nil
}
