// Package llm talks to OpenAI-compatible chat-completion endpoints.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/promptforge/api/internal/config"
	"github.com/promptforge/api/internal/optimizer"
)

// DefaultTemperature matches the sampling used for all refinement stages.
const DefaultTemperature = 0.7

// Client is one chat backend. It implements optimizer.ChatEndpoint.
type Client struct {
	name    string
	model   string
	timeout time.Duration
	api     *openai.Client
	logger  *zap.Logger
}

// NewClient builds a client for backend with a per-call timeout.
func NewClient(backend config.Backend, timeout time.Duration, logger *zap.Logger) *Client {
	cfg := openai.DefaultConfig(backend.APIKey)
	if backend.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(backend.BaseURL, "/")
	}
	cfg.HTTPClient = &http.Client{}

	return &Client{
		name:    backend.Name,
		model:   backend.Model,
		timeout: timeout,
		api:     openai.NewClientWithConfig(cfg),
		logger:  logger.With(zap.String("backend", backend.Name), zap.String("model", backend.Model)),
	}
}

// Name returns the configured backend name.
func (c *Client) Name() string {
	return c.name
}

// Complete sends one system/human exchange and returns the reply text.
func (c *Client) Complete(ctx context.Context, system, human string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: DefaultTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: human},
		},
	})
	if err != nil {
		return "", c.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: response has no choices: %w", c.name, optimizer.ErrEmptyCompletion)
	}

	c.logger.Debug("chat completion received",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) wrap(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: api error (status %d): %w", c.name, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%s: request failed (status %d): %w", c.name, reqErr.HTTPStatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: timed out after %s: %w", c.name, c.timeout, err)
	}
	return fmt.Errorf("%s: %w", c.name, err)
}

// Endpoints maps the three configured backends onto pipeline backend IDs.
func Endpoints(cfg *config.Config, logger *zap.Logger) map[optimizer.BackendID]optimizer.ChatEndpoint {
	return map[optimizer.BackendID]optimizer.ChatEndpoint{
		optimizer.BackendA: NewClient(cfg.BackendA, cfg.APITimeout, logger),
		optimizer.BackendB: NewClient(cfg.BackendB, cfg.APITimeout, logger),
		optimizer.BackendC: NewClient(cfg.BackendC, cfg.APITimeout, logger),
	}
}
