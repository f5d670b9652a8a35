package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/ports"
)

// OllamaClient completes prompts with a local model through langchaingo.
type OllamaClient struct {
	llm   llms.Model
	model string
}

var _ ports.Completer = (*OllamaClient)(nil)

// NewOllamaClient connects to an Ollama server.
func NewOllamaClient(serverURL, model string) (*OllamaClient, error) {
	if model == "" {
		return nil, errors.New("ollama model is not configured")
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return &OllamaClient{llm: llm, model: model}, nil
}

// Model reports the model identifier.
func (c *OllamaClient) Model() string { return c.model }

// Complete maps the request onto langchaingo message contents.
func (c *OllamaClient) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	content := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		content = append(content, llms.TextParts(messageType(m.Role), m.Content))
	}

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := c.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", domain.ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", domain.ErrEmptyCompletion
	}
	return text, nil
}

func messageType(role string) schema.ChatMessageType {
	switch role {
	case domain.RoleSystem:
		return schema.ChatMessageTypeSystem
	case domain.RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}
