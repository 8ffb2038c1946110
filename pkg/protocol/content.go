package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BlockType discriminates ContentBlock variants.
type BlockType string

const (
	BlockText             BlockType = "text"
	BlockToolUse          BlockType = "tool_use"
	BlockToolResult       BlockType = "tool_result"
	BlockThinking         BlockType = "thinking"
	BlockRedactedThinking BlockType = "redacted_thinking"
)

// CacheControl is a provider prompt-caching hint.
type CacheControl struct {
	Type string `json:"type"`
}

// Ephemeral returns the only cache hint providers currently accept.
func Ephemeral() *CacheControl {
	return &CacheControl{Type: "ephemeral"}
}

// ContentBlock is one element of block-structured message content. Only the
// fields of the variant named by Type are meaningful.
type ContentBlock struct {
	Type BlockType

	// text
	Text string

	// tool_use
	ID    string
	Name  string
	Input map[string]any

	// tool_result
	ToolUseID string
	Result    string
	IsError   bool

	// thinking
	Thinking  string
	Signature string

	// redacted_thinking
	Data string

	CacheControl *CacheControl
}

// TextBlock returns a text block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolUseBlock returns a tool_use block.
func ToolUseBlock(id, name string, input map[string]any) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock returns a tool_result block.
func ToolResultBlock(toolUseID, content string) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: toolUseID, Result: content}
}

// ThinkingBlock returns a thinking block.
func ThinkingBlock(thinking, signature string) ContentBlock {
	return ContentBlock{Type: BlockThinking, Thinking: thinking, Signature: signature}
}

// RedactedThinkingBlock returns a redacted_thinking block.
func RedactedThinkingBlock(data string) ContentBlock {
	return ContentBlock{Type: BlockRedactedThinking, Data: data}
}

// Cached returns a copy of b carrying an ephemeral cache hint.
func (b ContentBlock) Cached() ContentBlock {
	b.CacheControl = Ephemeral()
	return b
}

type textWire struct {
	Type         BlockType     `json:"type"`
	Text         string        `json:"text"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

type toolUseWire struct {
	Type         BlockType      `json:"type"`
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Input        map[string]any `json:"input"`
	CacheControl *CacheControl  `json:"cache_control,omitempty"`
}

type toolResultWire struct {
	Type         BlockType       `json:"type"`
	ToolUseID    string          `json:"tool_use_id"`
	Content      json.RawMessage `json:"content"`
	IsError      bool            `json:"is_error,omitempty"`
	CacheControl *CacheControl   `json:"cache_control,omitempty"`
}

type thinkingWire struct {
	Type         BlockType     `json:"type"`
	Thinking     string        `json:"thinking"`
	Signature    string        `json:"signature"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

type redactedWire struct {
	Type         BlockType     `json:"type"`
	Data         string        `json:"data"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// MarshalJSON emits only the fields of the block's variant.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case BlockText:
		return json.Marshal(textWire{b.Type, b.Text, b.CacheControl})
	case BlockToolUse:
		input := b.Input
		if input == nil {
			input = map[string]any{}
		}
		return json.Marshal(toolUseWire{b.Type, b.ID, b.Name, input, b.CacheControl})
	case BlockToolResult:
		content, err := json.Marshal(b.Result)
		if err != nil {
			return nil, err
		}
		return json.Marshal(toolResultWire{b.Type, b.ToolUseID, content, b.IsError, b.CacheControl})
	case BlockThinking:
		return json.Marshal(thinkingWire{b.Type, b.Thinking, b.Signature, b.CacheControl})
	case BlockRedactedThinking:
		return json.Marshal(redactedWire{b.Type, b.Data, b.CacheControl})
	default:
		return nil, fmt.Errorf("content block: unknown type %q", b.Type)
	}
}

// UnmarshalJSON decodes any block variant. A tool_result whose content is a
// block array is flattened to its text.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type         BlockType       `json:"type"`
		Text         string          `json:"text"`
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		Input        map[string]any  `json:"input"`
		ToolUseID    string          `json:"tool_use_id"`
		Content      json.RawMessage `json:"content"`
		IsError      bool            `json:"is_error"`
		Thinking     string          `json:"thinking"`
		Signature    string          `json:"signature"`
		Data         string          `json:"data"`
		CacheControl *CacheControl   `json:"cache_control"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = ContentBlock{
		Type:         raw.Type,
		Text:         raw.Text,
		ID:           raw.ID,
		Name:         raw.Name,
		Input:        raw.Input,
		ToolUseID:    raw.ToolUseID,
		IsError:      raw.IsError,
		Thinking:     raw.Thinking,
		Signature:    raw.Signature,
		Data:         raw.Data,
		CacheControl: raw.CacheControl,
	}
	if len(raw.Content) > 0 {
		b.Result = resultText(raw.Content)
	}
	return nil
}

func resultText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		parts := make([]string, 0, len(blocks))
		for _, blk := range blocks {
			if blk.Type == BlockText {
				parts = append(parts, blk.Text)
			}
		}
		return strings.Join(parts, "\n")
	}
	return string(raw)
}
