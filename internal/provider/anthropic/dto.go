// Package anthropic implements the block-oriented provider: request
// building, response normalization, stream reassembly and error mapping for
// the Anthropic Messages API.
package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/flynn-ai/unichat/pkg/protocol"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	messagesPath     = "/v1/messages"
	anthropicVersion = "2023-06-01"
	userAgent        = "unichat/anthropic"

	providerName = "anthropic"
)

// ============================================================
// Requests
// ============================================================

// MessageRequest follows the Anthropic Messages API contract.
type MessageRequest struct {
	Model     string         `json:"model"`
	MaxTokens int            `json:"max_tokens"`
	Messages  []MessageParam `json:"messages"`

	// System is a string, or a []SystemBlock when prompt caching is on.
	System any `json:"system,omitempty"`

	Temperature  *float64      `json:"temperature,omitempty"`
	Tools        []ToolParam   `json:"tools,omitempty"`
	Stream       bool          `json:"stream,omitempty"`
	OutputConfig *OutputConfig `json:"output_config,omitempty"`
}

// MessageParam represents a single conversational turn.
type MessageParam struct {
	Role    string                  `json:"role"`
	Content []protocol.ContentBlock `json:"content"`
}

// SystemBlock is one text part of a structured system prompt.
type SystemBlock struct {
	Type         string                 `json:"type"`
	Text         string                 `json:"text"`
	CacheControl *protocol.CacheControl `json:"cache_control,omitempty"`
}

// ToolParam is a tool in Anthropic's input_schema form.
type ToolParam struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description,omitempty"`
	InputSchema  protocol.Schema        `json:"input_schema"`
	CacheControl *protocol.CacheControl `json:"cache_control,omitempty"`
}

// OutputConfig carries the reasoning effort level.
type OutputConfig struct {
	Effort string `json:"effort"`
}

// ============================================================
// Responses
// ============================================================

// MessageResponse is a complete, non-streamed message.
type MessageResponse struct {
	ID           string                  `json:"id"`
	Type         string                  `json:"type"`
	Role         string                  `json:"role"`
	Model        string                  `json:"model"`
	Content      []protocol.ContentBlock `json:"content"`
	StopReason   string                  `json:"stop_reason"`
	StopSequence *string                 `json:"stop_sequence"`
	Usage        Usage                   `json:"usage"`
}

// Usage reports token counts.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// ErrorResponse models Anthropic error payloads.
type ErrorResponse struct {
	Type  string    `json:"type"`
	Error ErrorBody `json:"error"`
}

// ErrorBody drills into the API error object.
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// APIError surfaces Anthropic errors with HTTP metadata. StatusCode is 0
// for errors delivered inside a stream.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("anthropic API error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("anthropic API error (%d, %s): %s", e.StatusCode, e.Type, e.Message)
}

// ============================================================
// Stream events
// ============================================================

// Stream event names as they appear in the SSE "event:" field and the
// payload's "type".
const (
	EventMessageStart      = "message_start"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventPing              = "ping"
	EventError             = "error"
)

// Delta types inside content_block_delta.
const (
	DeltaText      = "text_delta"
	DeltaInputJSON = "input_json_delta"
	DeltaThinking  = "thinking_delta"
	DeltaSignature = "signature_delta"
)

// Event is one decoded stream event.
type Event interface {
	EventType() string
}

// MessageStartEvent opens a message.
type MessageStartEvent struct {
	Message MessageResponse `json:"message"`
}

// ContentBlockStartEvent opens a content block.
type ContentBlockStartEvent struct {
	Index        int                   `json:"index"`
	ContentBlock protocol.ContentBlock `json:"content_block"`
}

// ContentBlockDeltaEvent carries a fragment of the open block.
type ContentBlockDeltaEvent struct {
	Index int        `json:"index"`
	Delta BlockDelta `json:"delta"`
}

// BlockDelta is the union of all content_block_delta payloads.
type BlockDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	Signature   string `json:"signature,omitempty"`
}

// ContentBlockStopEvent closes the open block.
type ContentBlockStopEvent struct {
	Index int `json:"index"`
}

// MessageDeltaEvent carries the stop reason and final usage.
type MessageDeltaEvent struct {
	Delta struct {
		StopReason   string  `json:"stop_reason"`
		StopSequence *string `json:"stop_sequence"`
	} `json:"delta"`
	Usage Usage `json:"usage"`
}

// MessageStopEvent closes the message.
type MessageStopEvent struct{}

// PingEvent is a keep-alive.
type PingEvent struct{}

// ErrorEvent reports a failure mid-stream.
type ErrorEvent struct {
	Error ErrorBody `json:"error"`
}

func (MessageStartEvent) EventType() string      { return EventMessageStart }
func (ContentBlockStartEvent) EventType() string { return EventContentBlockStart }
func (ContentBlockDeltaEvent) EventType() string { return EventContentBlockDelta }
func (ContentBlockStopEvent) EventType() string  { return EventContentBlockStop }
func (MessageDeltaEvent) EventType() string      { return EventMessageDelta }
func (MessageStopEvent) EventType() string       { return EventMessageStop }
func (PingEvent) EventType() string              { return EventPing }
func (ErrorEvent) EventType() string             { return EventError }

// DecodeEvent decodes one SSE payload. The payload's own "type" wins over
// the SSE event name, which is only a fallback.
func DecodeEvent(name string, data []byte) (Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", name, err)
	}
	kind := envelope.Type
	if kind == "" {
		kind = name
	}

	var ev Event
	var err error
	switch kind {
	case EventMessageStart:
		var e MessageStartEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case EventContentBlockStart:
		var e ContentBlockStartEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case EventContentBlockDelta:
		var e ContentBlockDeltaEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case EventContentBlockStop:
		var e ContentBlockStopEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case EventMessageDelta:
		var e MessageDeltaEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case EventMessageStop:
		ev = MessageStopEvent{}
	case EventPing:
		ev = PingEvent{}
	case EventError:
		var e ErrorEvent
		err = json.Unmarshal(data, &e)
		ev = e
	default:
		return nil, fmt.Errorf("unknown stream event %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s event: %w", kind, err)
	}
	return ev, nil
}
