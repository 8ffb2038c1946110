package anthropic

import (
	"context"
	"time"

	"github.com/flynn-ai/unichat/internal/history"
	"github.com/flynn-ai/unichat/internal/model"
	"github.com/flynn-ai/unichat/internal/provider"
	"github.com/flynn-ai/unichat/internal/stats"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

// Handler serves block-oriented models.
type Handler struct {
	api     API
	history *history.History
	stats   *stats.Collector
}

var _ provider.Handler = (*Handler)(nil)

// NewHandler builds a handler over api. sink receives messages reassembled
// from streams; sink and collector may be nil.
func NewHandler(api API, sink *history.History, collector *stats.Collector) *Handler {
	return &Handler{api: api, history: sink, stats: collector}
}

// Complete sends a non-streaming request and normalizes the reply.
func (h *Handler) Complete(ctx context.Context, conversation []protocol.Message, tools []protocol.Tool, spec model.Spec, opts provider.Options) (*protocol.Response, error) {
	req := BuildRequest(conversation, tools, spec, opts)
	req.Stream = false

	start := time.Now()
	resp, err := h.api.CreateMessage(ctx, req)
	if err != nil {
		return nil, h.fail(err)
	}
	h.stats.RecordRequest(providerName, time.Since(start))

	return NormalizeResponse(resp), nil
}

// Stream opens a streaming request. Nothing is read until the first Recv.
func (h *Handler) Stream(ctx context.Context, conversation []protocol.Message, tools []protocol.Tool, spec model.Spec, opts provider.Options) (provider.ChunkStream, error) {
	req := BuildRequest(conversation, tools, spec, opts)
	req.Stream = true

	start := time.Now()
	src, err := h.api.StreamMessage(ctx, req)
	if err != nil {
		return nil, h.fail(err)
	}
	h.stats.RecordStream(providerName, time.Since(start))

	logger.Debug().Str("model", spec.Name).Msg("stream opened")
	return NewReassembler(src, spec.Name, h.history, h.stats), nil
}

func (h *Handler) fail(err error) error {
	norm := NormalizeError(err)
	h.stats.RecordError(providerName, norm)
	logger.Debug().Err(norm).Msg("request failed")
	return norm
}
