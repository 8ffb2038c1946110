// Package openai implements the flat provider family: every backend that
// speaks the OpenAI chat-completions dialect (OpenAI, Mistral, Grok, Gemini,
// DeepSeek, Alibaba) behind one request builder, response normalizer,
// pass-through stream and error mapping.
package openai

import (
	"context"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/flynn-ai/unichat/internal/errors"
	"github.com/flynn-ai/unichat/internal/model"
)

// API is the part of the chat-completions API the handler needs.
type API interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req goopenai.ChatCompletionRequest) (StreamSource, error)
}

// StreamSource yields flat chunks. Recv returns io.EOF at the end.
type StreamSource interface {
	Recv() (goopenai.ChatCompletionStreamResponse, error)
	Close() error
}

// Config configures a flat-provider client.
type Config struct {
	APIKey     string
	BaseURL    string // Default: the kind's public endpoint
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client adapts go-openai to API for one provider kind.
type Client struct {
	kind   model.Kind
	client *goopenai.Client
}

var _ API = (*Client)(nil)

// NewClient creates a client for kind. The kind's default endpoint is used
// unless cfg overrides it.
func NewClient(kind model.Kind, cfg *Config) (*Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.NewBuilder(errors.KindUnsupported, string(kind)+" api key is required").
			Provider(string(kind)).
			WithSuggestion("Set " + kind.EnvKey() + " or [providers." + string(kind) + "] api_key in the config file").
			Build()
	}

	clientConfig := goopenai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	clientConfig.BaseURL = baseURL(kind, cfg.BaseURL)

	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	} else {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Minute
		}
		clientConfig.HTTPClient = &http.Client{Timeout: timeout}
	}

	logger.Debug().
		Str("provider", string(kind)).
		Str("base_url", clientConfig.BaseURL).
		Msg("client created")

	return &Client{kind: kind, client: goopenai.NewClientWithConfig(clientConfig)}, nil
}

// CreateChatCompletion sends a non-streaming request.
func (c *Client) CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	req.Stream = false
	return c.client.CreateChatCompletion(ctx, req)
}

// CreateChatCompletionStream opens a stream. The caller must Close it.
func (c *Client) CreateChatCompletionStream(ctx context.Context, req goopenai.ChatCompletionRequest) (StreamSource, error) {
	s, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	return &streamAdapter{s: s}, nil
}

type streamAdapter struct {
	s *goopenai.ChatCompletionStream
}

func (a *streamAdapter) Recv() (goopenai.ChatCompletionStreamResponse, error) {
	return a.s.Recv()
}

func (a *streamAdapter) Close() error {
	a.s.Close()
	return nil
}

func baseURL(kind model.Kind, override string) string {
	u := strings.TrimSpace(override)
	if u == "" {
		u = kind.DefaultBaseURL()
	}
	return strings.TrimRight(u, "/")
}
