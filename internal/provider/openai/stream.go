package openai

import (
	"io"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/flynn-ai/unichat/internal/model"
	"github.com/flynn-ai/unichat/internal/provider"
	"github.com/flynn-ai/unichat/internal/stats"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

// Stream relabels flat chunks one at a time. Flat providers already stream
// in the canonical shape, so there is no reassembly and no history.
type Stream struct {
	src   StreamSource
	kind  model.Kind
	model string
	stats *stats.Collector

	id     string
	now    func() time.Time
	done   bool
	closed bool
}

var _ provider.ChunkStream = (*Stream)(nil)

// NewStream wraps src. requestModel fills in chunks that omit the model.
func NewStream(src StreamSource, kind model.Kind, requestModel string, collector *stats.Collector) *Stream {
	return &Stream{src: src, kind: kind, model: requestModel, stats: collector, now: time.Now}
}

// Recv returns the next canonical chunk, or io.EOF after the last one.
func (s *Stream) Recv() (protocol.Chunk, error) {
	if s.done {
		return protocol.Chunk{}, io.EOF
	}
	for {
		resp, err := s.src.Recv()
		if err == io.EOF {
			s.done = true
			return protocol.Chunk{}, io.EOF
		}
		if err != nil {
			s.done = true
			norm := NormalizeStreamError(s.kind, err)
			s.stats.RecordError(string(s.kind), norm)
			return protocol.Chunk{}, norm
		}
		if len(resp.Choices) == 0 {
			continue
		}
		return s.chunk(resp), nil
	}
}

// Close releases the underlying connection.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.done = true
	return s.src.Close()
}

func (s *Stream) chunk(resp goopenai.ChatCompletionStreamResponse) protocol.Chunk {
	if resp.ID != "" {
		s.id = resp.ID
	} else if s.id == "" {
		s.id = fallbackID("")
	}

	c := protocol.Chunk{
		ID:      s.id,
		Object:  protocol.ObjectChunk,
		Created: resp.Created,
		Model:   resp.Model,
		Choices: make([]protocol.ChunkChoice, 0, len(resp.Choices)),
	}
	if c.Created == 0 {
		c.Created = s.now().Unix()
	}
	if c.Model == "" {
		c.Model = s.model
	}

	for _, ch := range resp.Choices {
		out := protocol.ChunkChoice{
			Index: ch.Index,
			Delta: protocol.Delta{Role: protocol.Role(ch.Delta.Role)},
		}
		if ch.Delta.Content != "" {
			content := ch.Delta.Content
			out.Delta.Content = &content
		}
		for i, tc := range ch.Delta.ToolCalls {
			index := tc.Index
			if index == nil {
				index = protocol.IndexOf(i)
			}
			out.Delta.ToolCalls = append(out.Delta.ToolCalls, protocol.ToolCall{
				Index: index,
				ID:    tc.ID,
				Type:  toolType(tc.Type),
				Function: protocol.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		if ch.FinishReason != "" {
			reason := protocol.FinishReason(ch.FinishReason)
			out.FinishReason = &reason
		}
		c.Choices = append(c.Choices, out)
	}
	return c
}
