package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	defaultMaxTokens   = 1500
)

// HTTPOptions configures one HTTP-backed completer.
type HTTPOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

func (o HTTPOptions) client() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}

func (o HTTPOptions) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return defaultMaxTokens
}

// APIError is a non-200 reply from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Body)
}

func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{Provider: provider, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", provider, err)
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAICompleter calls the chat completions endpoint.
type OpenAICompleter struct {
	opts   HTTPOptions
	client *http.Client
}

func NewOpenAICompleter(opts HTTPOptions) *OpenAICompleter {
	return &OpenAICompleter{opts: opts, client: opts.client()}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.opts.APIKey == "" {
		return "", fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}

	req := map[string]any{
		"model":       c.opts.Model,
		"messages":    []chatMessage{{Role: "user", Content: prompt}},
		"temperature": c.opts.Temperature,
		"max_tokens":  c.opts.maxTokens(),
	}
	var resp struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	headers := map[string]string{"Authorization": "Bearer " + c.opts.APIKey}
	if err := postJSON(ctx, c.client, "OpenAI", c.opts.BaseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

const anthropicVersion = "2023-06-01"

// AnthropicCompleter calls the messages endpoint.
type AnthropicCompleter struct {
	opts   HTTPOptions
	client *http.Client
}

func NewAnthropicCompleter(opts HTTPOptions) *AnthropicCompleter {
	return &AnthropicCompleter{opts: opts, client: opts.client()}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.opts.APIKey == "" {
		return "", fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}

	req := map[string]any{
		"model":       c.opts.Model,
		"max_tokens":  c.opts.maxTokens(),
		"temperature": c.opts.Temperature,
		"messages":    []chatMessage{{Role: "user", Content: prompt}},
	}
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	headers := map[string]string{
		"x-api-key":         c.opts.APIKey,
		"anthropic-version": anthropicVersion,
	}
	if err := postJSON(ctx, c.client, "Anthropic", c.opts.BaseURL+"/messages", headers, req, &resp); err != nil {
		return "", err
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", ErrEmptyCompletion
}

// GeminiCompleter calls generateContent.
type GeminiCompleter struct {
	opts   HTTPOptions
	client *http.Client
}

func NewGeminiCompleter(opts HTTPOptions) *GeminiCompleter {
	return &GeminiCompleter{opts: opts, client: opts.client()}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.opts.APIKey == "" {
		return "", fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}

	req := map[string]any{
		"contents": []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		"generationConfig": map[string]any{
			"temperature":     c.opts.Temperature,
			"maxOutputTokens": c.opts.maxTokens(),
		},
	}
	var resp struct {
		Candidates []struct {
			Content geminiContent `json:"content"`
		} `json:"candidates"`
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", c.opts.BaseURL, c.opts.Model)
	headers := map[string]string{"x-goog-api-key": c.opts.APIKey}
	if err := postJSON(ctx, c.client, "Gemini", url, headers, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
