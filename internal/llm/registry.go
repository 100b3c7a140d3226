package llm

import (
	"context"
	"fmt"

	"keeper/internal/insight"
	"keeper/pkg/config"

	"go.uber.org/zap"
)

// Provider names accepted in CONSENSUS_PROVIDERS.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderGigaChat  = "gigachat"
)

// BuildSources creates one source per configured provider, in config order.
// The returned cleanup releases provider clients.
func BuildSources(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]insight.Source, func(), error) {
	var sources []insight.Source
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	for _, name := range cfg.Insights.Providers {
		l := logger.With(zap.String("provider", name))
		switch name {
		case ProviderOpenAI:
			c := NewOpenAICompleter(HTTPOptions{
				APIKey:      cfg.OpenAI.APIKey,
				BaseURL:     cfg.OpenAI.BaseURL,
				Model:       cfg.OpenAI.ChatModel,
				Temperature: 0.3,
			})
			sources = append(sources, NewProviderSource(name, c, OpenAIPrompt, OpenAIAdapter, l))
		case ProviderAnthropic:
			c := NewAnthropicCompleter(HTTPOptions{
				APIKey:      cfg.Anthropic.APIKey,
				BaseURL:     cfg.Anthropic.BaseURL,
				Model:       cfg.Anthropic.Model,
				Temperature: 0.2,
			})
			sources = append(sources, NewProviderSource(name, c, AnthropicPrompt, AnthropicAdapter, l))
		case ProviderGemini:
			c := NewGeminiCompleter(HTTPOptions{
				APIKey:      cfg.Gemini.APIKey,
				BaseURL:     cfg.Gemini.BaseURL,
				Model:       cfg.Gemini.Model,
				Temperature: 0.3,
				MaxTokens:   1000,
			})
			sources = append(sources, NewProviderSource(name, c, GeminiPrompt, GeminiAdapter, l))
		case ProviderGigaChat:
			c, err := NewGigaChatCompleter(ctx, cfg.GigaChat, l)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			closers = append(closers, c.Close)
			sources = append(sources, NewProviderSource(name, c, OpenAIPrompt, OpenAIAdapter, l))
		default:
			cleanup()
			return nil, nil, fmt.Errorf("unknown insight provider %q", name)
		}
	}

	return sources, cleanup, nil
}
