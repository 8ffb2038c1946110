package anthropic

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flynn-ai/unichat/internal/errors"
	"github.com/flynn-ai/unichat/internal/history"
	"github.com/flynn-ai/unichat/internal/log"
	"github.com/flynn-ai/unichat/internal/provider"
	"github.com/flynn-ai/unichat/internal/stats"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

var logger = log.GetLogger("anthropic")

// ============================================================
// Reassembly state
// ============================================================

// Phase is where the reassembly machine is within a message.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseMessageOpen
	PhaseTextBlock
	PhaseToolBlock
	PhaseThinkingBlock
	PhaseMessageClosed
)

// toolAccumulator collects the argument fragments of one tool_use block.
type toolAccumulator struct {
	id    string
	name  string
	index int
	input map[string]any
	buf   strings.Builder
}

// State turns block-phase events into flat canonical chunks while
// reconstructing the full assistant message. Each event kind has its own
// transition method so transitions can be exercised one at a time.
type State struct {
	Phase Phase

	model   string
	id      string
	created int64

	message   *protocol.Message
	blocks    []protocol.ContentBlock
	tool      *toolAccumulator
	toolIndex int

	now func() time.Time
}

// NewState starts a machine for one stream. model is reported on chunks
// until message_start supplies the provider's own name.
func NewState(model string) *State {
	return &State{model: model, now: time.Now}
}

// ToolIndex is the index the next tool_use block will receive.
func (s *State) ToolIndex() int {
	return s.toolIndex
}

// Apply dispatches one event. It returns the chunk to emit (nil for none),
// the message to commit to history (nil for none), and an error only for
// provider error events.
func (s *State) Apply(ev Event) (*protocol.Chunk, *protocol.Message, error) {
	switch e := ev.(type) {
	case MessageStartEvent:
		c, pending := s.MessageStart(e)
		return c, pending, nil
	case ContentBlockStartEvent:
		return s.ContentBlockStart(e), nil, nil
	case ContentBlockDeltaEvent:
		return s.ContentBlockDelta(e), nil, nil
	case ContentBlockStopEvent:
		s.ContentBlockStop(e)
		return nil, nil, nil
	case MessageDeltaEvent:
		return s.MessageDelta(e), nil, nil
	case MessageStopEvent:
		return nil, s.MessageStop(), nil
	case PingEvent:
		return nil, nil, nil
	case ErrorEvent:
		return nil, nil, &APIError{Type: e.Error.Type, Message: e.Error.Message}
	default:
		return nil, nil, fmt.Errorf("unhandled stream event %T", ev)
	}
}

// MessageStart opens a new message and emits the role delta. A message left
// open by a missing message_stop is finalized and returned for commit.
func (s *State) MessageStart(e MessageStartEvent) (*protocol.Chunk, *protocol.Message) {
	pending := s.Finish()
	s.toolIndex = 0

	s.id = e.Message.ID
	if e.Message.Model != "" {
		s.model = e.Message.Model
	}
	s.created = s.now().Unix()
	s.message = &protocol.Message{Role: protocol.RoleAssistant}
	s.blocks = nil
	s.tool = nil
	s.Phase = PhaseMessageOpen

	c := s.chunk(protocol.Delta{Role: protocol.RoleAssistant}, nil)
	return &c, pending
}

// ContentBlockStart opens a block. A tool_use block opens an accumulator and
// emits the tool call header with empty arguments.
func (s *State) ContentBlockStart(e ContentBlockStartEvent) *protocol.Chunk {
	s.ensureMessage()
	if s.tool != nil {
		// missing content_block_stop
		s.flushTool()
		s.toolIndex++
	}

	switch e.ContentBlock.Type {
	case protocol.BlockToolUse:
		s.tool = &toolAccumulator{
			id:    e.ContentBlock.ID,
			name:  e.ContentBlock.Name,
			index: s.toolIndex,
			input: e.ContentBlock.Input,
		}
		s.Phase = PhaseToolBlock
		c := s.chunk(protocol.Delta{ToolCalls: []protocol.ToolCall{{
			Index:    protocol.IndexOf(s.tool.index),
			ID:       s.tool.id,
			Type:     protocol.ToolTypeFunction,
			Function: protocol.FunctionCall{Name: s.tool.name, Arguments: ""},
		}}}, nil)
		return &c

	case protocol.BlockThinking:
		s.blocks = append(s.blocks, protocol.ThinkingBlock(e.ContentBlock.Thinking, e.ContentBlock.Signature))
		s.Phase = PhaseThinkingBlock
		return nil

	case protocol.BlockRedactedThinking:
		s.blocks = append(s.blocks, protocol.RedactedThinkingBlock(e.ContentBlock.Data))
		s.Phase = PhaseThinkingBlock
		return nil

	default:
		s.Phase = PhaseTextBlock
		if e.ContentBlock.Text == "" {
			return nil
		}
		return s.appendText(e.ContentBlock.Text)
	}
}

// ContentBlockDelta handles text, tool argument and thinking fragments.
func (s *State) ContentBlockDelta(e ContentBlockDeltaEvent) *protocol.Chunk {
	switch e.Delta.Type {
	case DeltaText:
		s.ensureMessage()
		return s.appendText(e.Delta.Text)

	case DeltaInputJSON:
		if s.tool == nil {
			logger.Debug().Msg("input_json_delta outside a tool_use block, skipping")
			return nil
		}
		s.tool.buf.WriteString(e.Delta.PartialJSON)
		c := s.chunk(protocol.Delta{ToolCalls: []protocol.ToolCall{{
			Index:    protocol.IndexOf(s.tool.index),
			Function: protocol.FunctionCall{Arguments: e.Delta.PartialJSON},
		}}}, nil)
		return &c

	case DeltaThinking:
		if b := s.trailing(protocol.BlockThinking); b != nil {
			b.Thinking += e.Delta.Thinking
		}
		return nil

	case DeltaSignature:
		if b := s.trailing(protocol.BlockThinking); b != nil {
			b.Signature = e.Delta.Signature
		}
		return nil

	default:
		logger.Debug().Str("delta", e.Delta.Type).Msg("unknown delta type, skipping")
		return nil
	}
}

// ContentBlockStop closes the open block. A tool_use block is parsed into
// a tool_use content block, or a diagnostic text block when its arguments
// are not valid JSON, and the tool index advances.
func (s *State) ContentBlockStop(ContentBlockStopEvent) {
	if s.tool != nil {
		s.flushTool()
		s.toolIndex++
	}
	if s.message != nil {
		s.Phase = PhaseMessageOpen
	}
}

// MessageDelta emits the mapped finish reason on an empty delta.
func (s *State) MessageDelta(e MessageDeltaEvent) *protocol.Chunk {
	var finish *protocol.FinishReason
	if e.Delta.StopReason != "" {
		r := MapStopReason(e.Delta.StopReason)
		finish = &r
	}
	c := s.chunk(protocol.Delta{}, finish)
	return &c
}

// MessageStop finalizes the message and resets per-message state. It
// returns the message to commit, or nil when no message was open.
func (s *State) MessageStop() *protocol.Message {
	msg := s.finalize()
	s.toolIndex = 0
	s.Phase = PhaseMessageClosed
	return msg
}

// Finish is called when the source is exhausted. An open tool block is
// flushed and a non-empty partial message is returned for commit.
func (s *State) Finish() *protocol.Message {
	if s.tool != nil {
		s.flushTool()
	}
	msg := s.finalize()
	if msg == nil || len(msg.Content.Blocks()) == 0 {
		return nil
	}
	return msg
}

func (s *State) finalize() *protocol.Message {
	if s.message == nil {
		return nil
	}
	msg := *s.message
	msg.Content = protocol.BlockContent(s.blocks...)
	s.message = nil
	s.blocks = nil
	s.tool = nil
	return &msg
}

func (s *State) flushTool() {
	t := s.tool
	s.tool = nil
	s.ensureMessage()

	raw := t.buf.String()
	if strings.TrimSpace(raw) == "" {
		input := t.input
		if input == nil {
			input = map[string]any{}
		}
		s.blocks = append(s.blocks, protocol.ToolUseBlock(t.id, t.name, input))
		return
	}

	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil || input == nil {
		logger.Warn().
			Str("tool", t.name).
			Str("tool_id", t.id).
			Int("bytes", len(raw)).
			Msg("malformed tool input JSON")
		s.blocks = append(s.blocks, protocol.TextBlock(
			fmt.Sprintf("Error: Tool %s (ID: %s) received malformed JSON input.", t.name, t.id)))
		return
	}
	s.blocks = append(s.blocks, protocol.ToolUseBlock(t.id, t.name, input))
}

func (s *State) appendText(text string) *protocol.Chunk {
	if b := s.trailing(protocol.BlockText); b != nil {
		b.Text += text
	} else {
		s.blocks = append(s.blocks, protocol.TextBlock(text))
	}
	c := s.chunk(protocol.Delta{Content: &text}, nil)
	return &c
}

// trailing returns the last block when it has the given type.
func (s *State) trailing(t protocol.BlockType) *protocol.ContentBlock {
	if n := len(s.blocks); n > 0 && s.blocks[n-1].Type == t {
		return &s.blocks[n-1]
	}
	return nil
}

// ensureMessage opens a message for content that arrives without a
// preceding message_start.
func (s *State) ensureMessage() {
	if s.message != nil {
		return
	}
	s.message = &protocol.Message{Role: protocol.RoleAssistant}
	if s.Phase == PhaseIdle || s.Phase == PhaseMessageClosed {
		s.Phase = PhaseMessageOpen
	}
}

func (s *State) chunk(delta protocol.Delta, finish *protocol.FinishReason) protocol.Chunk {
	if s.id == "" {
		s.id = "chatcmpl-" + uuid.NewString()
	}
	if s.created == 0 {
		s.created = s.now().Unix()
	}
	return protocol.Chunk{
		ID:      s.id,
		Object:  protocol.ObjectChunk,
		Created: s.created,
		Model:   s.model,
		Choices: []protocol.ChunkChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finish,
		}},
	}
}

// ============================================================
// Reassembler
// ============================================================

// Reassembler pulls events from an EventSource one at a time and yields
// canonical chunks in source order. Completed messages go to the history
// sink at message_stop, and a partial message when the source runs out.
type Reassembler struct {
	src     EventSource
	state   *State
	history *history.History
	stats   *stats.Collector

	done   bool
	closed bool
}

var _ provider.ChunkStream = (*Reassembler)(nil)

// NewReassembler wraps src. sink and collector may be nil.
func NewReassembler(src EventSource, model string, sink *history.History, collector *stats.Collector) *Reassembler {
	return &Reassembler{
		src:     src,
		state:   NewState(model),
		history: sink,
		stats:   collector,
	}
}

// Recv returns the next canonical chunk, or io.EOF after the last one.
func (r *Reassembler) Recv() (protocol.Chunk, error) {
	if r.done {
		return protocol.Chunk{}, io.EOF
	}

	for {
		raw, err := r.src.Next()
		if err == io.EOF {
			r.finish()
			return protocol.Chunk{}, io.EOF
		}
		if err != nil {
			r.finish()
			return protocol.Chunk{}, r.fail(errors.NewBuilder(errors.KindConnectionFailed, "stream read failed").
				Provider(providerName).
				Wrap(err).
				Build())
		}

		ev, err := DecodeEvent(raw.Name, raw.Data)
		if err != nil {
			logger.Warn().Err(err).Str("event", raw.Name).Msg("skipping undecodable stream event")
			r.stats.RecordSkippedEvent(providerName)
			continue
		}

		chunk, commit, err := r.state.Apply(ev)
		if commit != nil {
			r.commit(*commit)
		}
		if err != nil {
			r.finish()
			return protocol.Chunk{}, r.fail(NormalizeError(err))
		}
		if chunk != nil {
			return *chunk, nil
		}
	}
}

// Close releases the source. Closing before exhaustion commits nothing.
func (r *Reassembler) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.done = true
	return r.src.Close()
}

func (r *Reassembler) finish() {
	r.done = true
	if msg := r.state.Finish(); msg != nil {
		r.commit(*msg)
	}
}

func (r *Reassembler) fail(err error) error {
	r.stats.RecordError(providerName, err)
	return err
}

func (r *Reassembler) commit(m protocol.Message) {
	if r.history != nil {
		r.history.Append(m)
	}
}
