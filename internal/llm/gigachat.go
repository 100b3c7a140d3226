package llm

import (
	"context"
	"fmt"
	"strings"

	"keeper/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

const gigachatSystemInstruction = `You are a revenue analyst for small service businesses such as spas and salons.
Always answer with a single JSON object and nothing else: no markdown, no commentary before or after it.
Every insight needs a concrete dollar value and an honest confidence between 0 and 1.`

// GigaChatCompleter talks to GigaChat through gigago.
type GigaChatCompleter struct {
	client   *gigago.Client
	generate func(ctx context.Context, prompt string) (string, error)
	logger   *zap.Logger
}

func NewGigaChatCompleter(ctx context.Context, cfg config.GigaChatConfig, logger *zap.Logger) (*GigaChatCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gigachat: %w", ErrMissingAPIKey)
	}

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "GigaChat"
	}
	model := client.GenerativeModel(modelName)
	model.SystemInstruction = gigachatSystemInstruction
	model.Temperature = 0.3

	generate := func(ctx context.Context, prompt string) (string, error) {
		resp, err := model.Generate(ctx, []gigago.Message{
			{Role: gigago.RoleUser, Content: prompt},
		})
		if err != nil {
			return "", fmt.Errorf("failed to generate response: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyCompletion
		}
		return resp.Choices[0].Message.Content, nil
	}

	logger.Info("GigaChat completer ready", zap.String("model", modelName))
	return &GigaChatCompleter{client: client, generate: generate, logger: logger}, nil
}

func (c *GigaChatCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	content, err := c.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (c *GigaChatCompleter) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}
