package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	openaiEmbeddingsPath = "/embeddings"
	defaultRetryBackoff  = time.Second
	maxRetryAfter        = 10 * time.Second
)

type OpenAIOptions struct {
	APIKey       string
	BaseURL      string
	Model        string
	Dimensions   int
	RetryBackoff time.Duration
	HTTPClient   *http.Client
}

// OpenAIClient calls the OpenAI embeddings endpoint for one text at a time.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	dimensions int
	backoff    time.Duration
	client     *http.Client
	logger     *zap.Logger
}

type openaiRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type openaiResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

type openaiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// statusError is a non-200 reply; retryable for 429 and 5xx.
type statusError struct {
	code       int
	message    string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("OpenAI API error (%d): %s", e.code, e.message)
}

func (e *statusError) Unwrap() error {
	if e.code == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return nil
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

func NewOpenAIClient(opts OpenAIOptions, logger *zap.Logger) *OpenAIClient {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return &OpenAIClient{
		apiKey:     opts.APIKey,
		baseURL:    opts.BaseURL,
		model:      opts.Model,
		dimensions: opts.Dimensions,
		backoff:    backoff,
		client:     client,
		logger:     logger,
	}
}

func (c *OpenAIClient) Dimensions() int {
	return c.dimensions
}

// Embed returns the vector for text. A throttled or transient failure is
// retried once after a bounded backoff.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	body, err := json.Marshal(openaiRequest{Input: text, Model: c.model, Dimensions: c.dimensions})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	vec, err := c.do(ctx, body)
	if err == nil {
		return vec, nil
	}

	delay, retry := c.retryDelay(err)
	if !retry {
		return nil, err
	}
	c.logger.Warn("Embedding request failed, retrying once", zap.Error(err), zap.Duration("backoff", delay))

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	vec, err = c.do(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("embedding retry failed: %w", err)
	}
	return vec, nil
}

func (c *OpenAIClient) retryDelay(err error) (time.Duration, bool) {
	var se *statusError
	if errors.As(err, &se) {
		if !se.retryable() {
			return 0, false
		}
		if se.retryAfter > 0 {
			return min(se.retryAfter, maxRetryAfter), true
		}
		return c.backoff, true
	}
	if errors.Is(err, ErrMalformedResponse) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	// transport failure
	return c.backoff, true
}

func (c *OpenAIClient) do(ctx context.Context, body []byte) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+openaiEmbeddingsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		se := &statusError{code: resp.StatusCode, message: string(respBody)}
		var apiErr openaiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			se.message = apiErr.Error.Message
		}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			se.retryAfter = time.Duration(secs) * time.Second
		}
		return nil, se
	}

	var parsed openaiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrMalformedResponse)
	}

	vec := parsed.Data[0].Embedding
	if c.dimensions > 0 && len(vec) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d", ErrMalformedResponse, c.dimensions, len(vec))
	}
	return vec, nil
}
