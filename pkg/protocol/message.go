// Package protocol provides the canonical chat-completion data model shared by
// every provider. These types can be imported by external tools and extensions.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"

	// RoleDeveloper is only produced for reasoning model families that
	// reject a system role.
	RoleDeveloper Role = "developer"
)

// Message is one turn of a conversation.
// A nil Content means the field is absent or null.
type Message struct {
	Role       Role       `json:"role"`
	Content    *Content   `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Text returns a message with plain text content.
func Text(role Role, text string) Message {
	return Message{Role: role, Content: TextContent(text)}
}

// ToolMessage returns a tool result message answering the given call.
func ToolMessage(toolCallID, text string) Message {
	return Message{Role: RoleTool, Content: TextContent(text), ToolCallID: toolCallID}
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	out := m
	if m.Content != nil {
		c := m.Content.Clone()
		out.Content = &c
	}
	if m.ToolCalls != nil {
		out.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	return out
}

// CloneMessages copies a conversation so it can be rewritten without
// touching the caller's slice.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// Content is either plain text or an ordered sequence of content blocks.
type Content struct {
	text   string
	blocks []ContentBlock
	isList bool
}

// TextContent wraps plain text.
func TextContent(text string) *Content {
	return &Content{text: text}
}

// BlockContent wraps a block sequence.
func BlockContent(blocks ...ContentBlock) *Content {
	if blocks == nil {
		blocks = []ContentBlock{}
	}
	return &Content{blocks: blocks, isList: true}
}

// IsBlocks reports whether the content is a block sequence.
func (c *Content) IsBlocks() bool {
	return c != nil && c.isList
}

// Blocks returns the block sequence, or nil for plain text.
func (c *Content) Blocks() []ContentBlock {
	if c == nil {
		return nil
	}
	return c.blocks
}

// String returns the plain text, or the text blocks joined together when the
// content is a block sequence.
func (c *Content) String() string {
	if c == nil {
		return ""
	}
	if !c.isList {
		return c.text
	}
	var buf bytes.Buffer
	for _, b := range c.blocks {
		if b.Type == BlockText {
			buf.WriteString(b.Text)
		}
	}
	return buf.String()
}

// Clone returns a copy with its own block slice.
func (c Content) Clone() Content {
	if c.blocks != nil {
		c.blocks = append([]ContentBlock(nil), c.blocks...)
	}
	return c
}

// MarshalJSON encodes text as a JSON string and blocks as a JSON array.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.isList {
		return json.Marshal(c.blocks)
	}
	return json.Marshal(c.text)
}

// UnmarshalJSON accepts a JSON string or an array of blocks.
func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		*c = Content{}
		return json.Unmarshal(data, &c.text)
	case '[':
		var blocks []ContentBlock
		if err := json.Unmarshal(data, &blocks); err != nil {
			return err
		}
		*c = *BlockContent(blocks...)
		return nil
	default:
		return fmt.Errorf("content: unsupported JSON value %q", data[:1])
	}
}
