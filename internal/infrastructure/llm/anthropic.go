package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/ports"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicClient implements ports.Completer using the Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

var _ ports.Completer = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client; baseURL is optional.
func NewAnthropicClient(apiKey, model, baseURL string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key is not configured")
	}
	if model == "" {
		return nil, errors.New("anthropic model is not configured")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{client: &client, model: model}, nil
}

// Model reports the model identifier.
func (c *AnthropicClient) Model() string { return c.model }

// Complete moves system turns into the system prompt and sends the rest as messages.
func (c *AnthropicClient) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(req.Temperature),
	}
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case domain.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var parts []string
	for _, block := range message.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, ""))
	if text == "" {
		return "", domain.ErrEmptyCompletion
	}
	return text, nil
}
