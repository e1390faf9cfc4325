// AngelaMos | 2026
// client.go

package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ascendlabs/ascend-api/internal/config"
	"github.com/ascendlabs/ascend-api/internal/core"
)

// Message is one turn of model context.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client is the completion port. The production implementation talks
// to GROQ through its OpenAI-compatible API; tests swap in a fake.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type groqClient struct {
	client         *openai.Client
	model          string
	requestTimeout time.Duration
}

func NewClient(cfg config.LLMConfig) Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &groqClient{
		client:         openai.NewClientWithConfig(clientConfig),
		model:          cfg.Model,
		requestTimeout: cfg.RequestTimeout,
	}
}

func (c *groqClient) Complete(
	ctx context.Context,
	messages []Message,
) (string, error) {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: chatMessages,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf(
				"llm completion (%d): %s: %w",
				apiErr.HTTPStatusCode,
				apiErr.Message,
				core.ErrUpstream,
			)
		}
		return "", fmt.Errorf("llm completion: %v: %w", err, core.ErrUpstream)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices: %w", core.ErrUpstream)
	}

	return resp.Choices[0].Message.Content, nil
}
