// Package upstream implements the client for the single upstream
// inference API: request construction, typed error mapping, and the
// streaming byte-stream decoder.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// Config contains the upstream client configuration.
type Config struct {
	// BaseURL is the API endpoint base URL (no trailing slash).
	BaseURL string

	// APIKey is the bearer token sent on every request.
	APIKey string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts for transient failures
	// (network errors and 5xx responses). Retry policy lives here, in
	// client configuration; callers above this layer never retry.
	MaxRetries int

	// MaxIdleConns is the connection pool size.
	MaxIdleConns int

	// MaxIdleConnsPerHost is the per-host idle connection limit.
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection stays pooled.
	IdleConnTimeout time.Duration
}

// Client is the HTTP client for the upstream inference API. It provides
// connection pooling, bounded retries for transient failures, and typed
// error mapping. It is safe for concurrent use.
type Client struct {
	config Config
	client *http.Client
}

// NewClient creates a new upstream client with connection pooling.
func NewClient(config Config) *Client {
	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}
}

// CreateChatCompletion issues a single-shot completion request and
// decodes the full response body.
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	req.Stream = false

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	var out ChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ParseError{RawResponse: string(raw), Cause: err}
	}

	return &out, nil
}

// StreamChatCompletion issues a streaming completion request and returns
// a decoder over the live response body. The caller owns the decoder and
// must drain it to EOF or close it.
func (c *Client) StreamChatCompletion(ctx context.Context, req *ChatRequest) (*StreamDecoder, error) {
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", body)
	if err != nil {
		return nil, err
	}

	return NewStreamDecoder(resp.Body), nil
}

// ListModels fetches the full upstream model catalog.
func (c *Client) ListModels(ctx context.Context) ([]CatalogModel, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.config.BaseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Cause: fmt.Errorf("failed to read catalog: %w", err)}
	}

	var out catalogResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ParseError{RawResponse: string(raw), Cause: err}
	}

	return out.Data, nil
}

// doRequest performs an HTTP request with bounded retries for transient
// failures. 4xx responses and context cancellation are never retried.
// A successful call returns the response with its body still open.
func (c *Client) doRequest(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			slog.Debug("retrying upstream request",
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff,
			)

			select {
			case <-ctx.Done():
				return nil, &NetworkError{Cause: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json, text/event-stream")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				// Caller cancelled or deadline hit; do not retry.
				return nil, &TimeoutError{Timeout: c.config.Timeout}
			}

			lastErr = &NetworkError{Cause: err}
			slog.Warn("upstream request failed, will retry",
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		upErr := newUpstreamError(resp.StatusCode, errBody)

		if resp.StatusCode >= 500 {
			// Server-side failure; retry within budget.
			lastErr = upErr
			slog.Warn("upstream returned server error, will retry",
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
			continue
		}

		// Client-side rejection; surface immediately.
		return nil, upErr
	}

	return nil, lastErr
}

// newUpstreamError builds an UpstreamError from an error response body,
// extracting the structured message when the body carries one.
func newUpstreamError(status int, body []byte) *UpstreamError {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return &UpstreamError{
			StatusCode: status,
			Message:    payload.Error.Message,
			Type:       payload.Error.Type,
		}
	}

	return &UpstreamError{
		StatusCode: status,
		Message:    string(body),
	}
}
