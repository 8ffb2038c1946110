package openai

import (
	"context"
	"time"

	"github.com/flynn-ai/unichat/internal/log"
	"github.com/flynn-ai/unichat/internal/model"
	"github.com/flynn-ai/unichat/internal/provider"
	"github.com/flynn-ai/unichat/internal/stats"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

var logger = log.GetLogger("openai")

// Handler serves every flat-provider kind through one API.
type Handler struct {
	kind  model.Kind
	api   API
	stats *stats.Collector
}

var _ provider.Handler = (*Handler)(nil)

// NewHandler builds a handler for kind. collector may be nil.
func NewHandler(kind model.Kind, api API, collector *stats.Collector) *Handler {
	return &Handler{kind: kind, api: api, stats: collector}
}

// Complete sends a non-streaming request and normalizes the reply.
func (h *Handler) Complete(ctx context.Context, conversation []protocol.Message, tools []protocol.Tool, spec model.Spec, opts provider.Options) (*protocol.Response, error) {
	req := BuildRequest(conversation, tools, spec, opts)
	req.Stream = false

	start := time.Now()
	resp, err := h.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, h.fail(err)
	}
	h.stats.RecordRequest(string(h.kind), time.Since(start))

	out, err := NormalizeResponse(resp, spec.Name)
	if err != nil {
		return nil, h.fail(err)
	}
	return out, nil
}

// Stream opens a streaming request. Nothing is read until the first Recv.
func (h *Handler) Stream(ctx context.Context, conversation []protocol.Message, tools []protocol.Tool, spec model.Spec, opts provider.Options) (provider.ChunkStream, error) {
	req := BuildRequest(conversation, tools, spec, opts)
	req.Stream = true

	start := time.Now()
	src, err := h.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, h.fail(err)
	}
	h.stats.RecordStream(string(h.kind), time.Since(start))

	logger.Debug().Str("provider", string(h.kind)).Str("model", spec.Name).Msg("stream opened")
	return NewStream(src, h.kind, spec.Name, h.stats), nil
}

func (h *Handler) fail(err error) error {
	norm := NormalizeError(h.kind, err)
	h.stats.RecordError(string(h.kind), norm)
	logger.Debug().Err(norm).Str("provider", string(h.kind)).Msg("request failed")
	return norm
}
