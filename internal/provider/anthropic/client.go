package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flynn-ai/unichat/internal/errors"
)

// API is the part of the Messages API the handler needs.
type API interface {
	CreateMessage(ctx context.Context, req *MessageRequest) (*MessageResponse, error)
	StreamMessage(ctx context.Context, req *MessageRequest) (EventSource, error)
}

// Config configures the Anthropic client.
type Config struct {
	APIKey     string
	BaseURL    string // Default: https://api.anthropic.com
	Timeout    time.Duration
	HTTPClient *http.Client
}

// DefaultConfig returns default configuration for Anthropic.
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:  apiKey,
		BaseURL: defaultBaseURL,
		Timeout: 10 * time.Minute,
	}
}

// Client talks to the Messages API over plain HTTP. It never retries;
// failures go back to the caller as they are.
type Client struct {
	baseURL string
	headers map[string]string
	http    *http.Client
}

var _ API = (*Client)(nil)

// NewClient creates a new Anthropic client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.NewBuilder(errors.KindUnsupported, "anthropic api key is required").
			Provider(providerName).
			WithSuggestion("Set ANTHROPIC_API_KEY or [providers.anthropic] api_key in the config file").
			Build()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultConfig("").Timeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: sanitizeBaseURL(cfg.BaseURL),
		headers: map[string]string{
			"X-API-Key":         strings.TrimSpace(cfg.APIKey),
			"Anthropic-Version": anthropicVersion,
			"Content-Type":      "application/json",
			"User-Agent":        userAgent,
		},
		http: httpClient,
	}, nil
}

// CreateMessage sends a non-streaming request.
func (c *Client) CreateMessage(ctx context.Context, req *MessageRequest) (*MessageResponse, error) {
	payload := *req
	payload.Stream = false

	resp, err := c.do(ctx, &payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out MessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}
	return &out, nil
}

// StreamMessage sends a streaming request and returns the open event source.
// The caller must Close it.
func (c *Client) StreamMessage(ctx context.Context, req *MessageRequest) (EventSource, error) {
	payload := *req
	payload.Stream = true

	resp, err := c.do(ctx, &payload)
	if err != nil {
		return nil, err
	}
	return newSSEReader(resp.Body), nil
}

func (c *Client) do(ctx context.Context, payload *MessageRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindBadRequest, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.KindBadRequest, "failed to create HTTP request")
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	if payload.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		return nil, readAPIError(resp)
	}
	return resp, nil
}

func readAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	var apiErr ErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Type: apiErr.Error.Type, Message: apiErr.Error.Message}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func sanitizeBaseURL(base string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(base), "/")
	if trimmed == "" {
		return defaultBaseURL
	}
	return trimmed
}
