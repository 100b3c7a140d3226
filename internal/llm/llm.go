// Package llm turns external language-model providers into consensus
// insight sources.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"keeper/internal/insight"

	"go.uber.org/zap"
)

var (
	ErrNoJSON          = errors.New("no JSON object in model response")
	ErrEmptyCompletion = errors.New("no response from LLM")
	ErrMissingAPIKey   = errors.New("missing API key")
)

// Completer sends one prompt and returns the raw model text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Adapter converts one provider's JSON payload into insights. Entries it
// cannot use are dropped; a payload it cannot read at all is an error.
type Adapter func(payload []byte) ([]insight.Insight, error)

// PromptFunc renders the provider prompt for a business summary.
type PromptFunc func(summary insight.BusinessSummary) string

// ProviderSource is an insight.Source backed by a language model.
type ProviderSource struct {
	name      string
	completer Completer
	prompt    PromptFunc
	adapter   Adapter
	logger    *zap.Logger
}

func NewProviderSource(name string, c Completer, prompt PromptFunc, adapter Adapter, logger *zap.Logger) *ProviderSource {
	return &ProviderSource{
		name:      name,
		completer: c,
		prompt:    prompt,
		adapter:   adapter,
		logger:    logger,
	}
}

func (p *ProviderSource) Name() string { return p.name }

func (p *ProviderSource) Insights(ctx context.Context, summary insight.BusinessSummary) ([]insight.Insight, error) {
	text, err := p.completer.Complete(ctx, p.prompt(summary))
	if err != nil {
		return nil, fmt.Errorf("%s completion failed: %w", p.name, err)
	}

	payload, err := ExtractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}

	insights, err := p.adapter(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse insights: %w", p.name, err)
	}
	for i := range insights {
		insights[i].Source = p.name
	}

	p.logger.Info("Provider insights received", zap.String("provider", p.name), zap.Int("count", len(insights)))
	return insights, nil
}

// ExtractJSON returns the outermost JSON object in model text, ignoring any
// markdown fences or commentary around it.
func ExtractJSON(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return nil, ErrNoJSON
	}
	return []byte(text[start : end+1]), nil
}
