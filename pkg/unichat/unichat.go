// Package unichat issues one canonical chat-completion request against any
// supported provider and returns one canonical response or chunk stream.
package unichat

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/flynn-ai/unichat/internal/config"
	"github.com/flynn-ai/unichat/internal/errors"
	"github.com/flynn-ai/unichat/internal/history"
	"github.com/flynn-ai/unichat/internal/log"
	"github.com/flynn-ai/unichat/internal/model"
	"github.com/flynn-ai/unichat/internal/provider"
	"github.com/flynn-ai/unichat/internal/provider/anthropic"
	"github.com/flynn-ai/unichat/internal/provider/openai"
	"github.com/flynn-ai/unichat/internal/stats"
	"github.com/flynn-ai/unichat/internal/tools/schemas"
	"github.com/flynn-ai/unichat/internal/transform"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

var logger = log.GetLogger("unichat")

// Options are the per-request knobs.
type Options = provider.Options

// ChunkStream is a pull-based canonical stream.
type ChunkStream = provider.ChunkStream

// Option constructors re-exported for callers outside this module.
var (
	CacheWith      = provider.CacheWith
	ReasoningLevel = provider.ReasoningLevel
	ReasoningOn    = provider.ReasoningOn
	ReasoningOff   = provider.ReasoningOff
)

// Completion is either a full response or an open stream, never both.
type Completion struct {
	Response *protocol.Response
	Stream   ChunkStream
}

// Client dispatches requests to provider handlers. It is safe for
// concurrent use; each returned stream belongs to one caller.
type Client struct {
	cfg      *config.Config
	registry *model.Registry
	history  *history.History
	stats    *stats.Collector
	logOut   io.Writer

	anthropicAPI anthropic.API
	flatAPIs     map[model.Kind]openai.API

	mu       sync.Mutex
	handlers map[model.Kind]provider.Handler
}

// Option configures a Client.
type Option func(*Client)

// WithRegistry replaces the built-in model registry.
func WithRegistry(r *model.Registry) Option {
	return func(c *Client) { c.registry = r }
}

// WithLogOutput sends log output to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(c *Client) { c.logOut = w }
}

// WithAnthropicAPI serves block-oriented models through api.
func WithAnthropicAPI(api anthropic.API) Option {
	return func(c *Client) { c.anthropicAPI = api }
}

// WithFlatAPI serves models of a flat provider kind through api.
func WithFlatAPI(kind model.Kind, api openai.API) Option {
	return func(c *Client) { c.flatAPIs[kind] = api }
}

// New creates a client. A nil cfg means config.Default(). Configured model
// entries are applied to the registry, so a bad entry fails here before any
// request is made.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Client{
		cfg:      cfg,
		registry: model.DefaultRegistry(),
		history:  history.New(),
		stats:    stats.NewCollector(),
		logOut:   os.Stderr,
		flatAPIs: make(map[model.Kind]openai.API),
		handlers: make(map[model.Kind]provider.Handler),
	}
	for _, opt := range opts {
		opt(c)
	}

	log.Configure(c.logOut, cfg.Log.Format, cfg.Log.Level)

	if err := c.registry.Apply(cfg.Models); err != nil {
		return nil, err
	}
	return c, nil
}

// DefaultOptions returns the request defaults from the configuration.
func (c *Client) DefaultOptions() Options {
	opts := provider.DefaultOptions()
	opts.Temperature = c.cfg.Defaults.Temperature
	opts.Stream = c.cfg.Defaults.Stream
	return opts
}

// CreateCompletion sends conversation to modelName. tools may mix
// declaration dialects. opts.Stream selects a streamed or a full response.
// An unknown model or a tool message that answers no earlier tool call fails
// before any request is made.
func (c *Client) CreateCompletion(ctx context.Context, modelName string, conversation []protocol.Message, tools []protocol.ToolDeclaration, opts Options) (*Completion, error) {
	spec, err := c.registry.Lookup(modelName)
	if err != nil {
		return nil, err
	}
	if err := transform.Validate(conversation); err != nil {
		return nil, err
	}
	h, err := c.handler(spec.Kind)
	if err != nil {
		return nil, err
	}
	canonical := schemas.Normalize(tools)

	logger.Debug().
		Str("model", spec.Name).
		Str("provider", string(spec.Kind)).
		Int("messages", len(conversation)).
		Int("tools", len(canonical)).
		Bool("stream", opts.Stream).
		Msg("completion request")

	if opts.Stream {
		s, err := h.Stream(ctx, conversation, canonical, spec, opts)
		if err != nil {
			return nil, err
		}
		return &Completion{Stream: s}, nil
	}

	resp, err := h.Complete(ctx, conversation, canonical, spec, opts)
	if err != nil {
		return nil, err
	}
	return &Completion{Response: resp}, nil
}

// Complete is CreateCompletion with streaming off.
func (c *Client) Complete(ctx context.Context, modelName string, conversation []protocol.Message, tools []protocol.ToolDeclaration, opts Options) (*protocol.Response, error) {
	opts.Stream = false
	out, err := c.CreateCompletion(ctx, modelName, conversation, tools, opts)
	if err != nil {
		return nil, err
	}
	return out.Response, nil
}

// Stream is CreateCompletion with streaming on. The caller must Close the
// stream.
func (c *Client) Stream(ctx context.Context, modelName string, conversation []protocol.Message, tools []protocol.ToolDeclaration, opts Options) (ChunkStream, error) {
	opts.Stream = true
	out, err := c.CreateCompletion(ctx, modelName, conversation, tools, opts)
	if err != nil {
		return nil, err
	}
	return out.Stream, nil
}

// History returns the messages reassembled from block-oriented streams.
func (c *Client) History() []protocol.Message {
	return c.history.Messages()
}

// ResetHistory drops the reassembled messages.
func (c *Client) ResetHistory() {
	c.history.Reset()
}

// Stats returns call counters.
func (c *Client) Stats() *stats.Stats {
	return c.stats.Collect()
}

// Models lists every model name the client can serve.
func (c *Client) Models() []string {
	return c.registry.Names()
}

// handler returns the cached handler for kind, creating it on first use.
func (c *Client) handler(kind model.Kind) (provider.Handler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.handlers[kind]; ok {
		return h, nil
	}

	var h provider.Handler
	switch kind {
	case model.KindAnthropic:
		api := c.anthropicAPI
		if api == nil {
			pc := c.cfg.Provider(string(kind), kind.EnvKey())
			client, err := anthropic.NewClient(&anthropic.Config{
				APIKey:  pc.APIKey,
				BaseURL: pc.BaseURL,
				Timeout: pc.Timeout,
			})
			if err != nil {
				return nil, err
			}
			api = client
		}
		h = anthropic.NewHandler(api, c.history, c.stats)

	case model.KindOpenAI, model.KindMistral, model.KindGrok, model.KindGemini, model.KindDeepSeek, model.KindAlibaba:
		api := c.flatAPIs[kind]
		if api == nil {
			pc := c.cfg.Provider(string(kind), kind.EnvKey())
			client, err := openai.NewClient(kind, &openai.Config{
				APIKey:  pc.APIKey,
				BaseURL: pc.BaseURL,
				Timeout: pc.Timeout,
			})
			if err != nil {
				return nil, err
			}
			api = client
		}
		h = openai.NewHandler(kind, api, c.stats)

	default:
		return nil, errors.Unsupported("provider %q is not supported", kind)
	}

	logger.Info().Str("provider", string(kind)).Msg("provider handler created")
	c.handlers[kind] = h
	return h, nil
}
