// Package transform rewrites canonical conversations into the shapes
// individual providers accept. Every function returns a new conversation and
// leaves its input untouched.
package transform

import (
	"github.com/flynn-ai/unichat/internal/model"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

// relabelMarker re-enables markdown output on reasoning models that receive
// their instructions as a developer message.
const relabelMarker = "Formatting re-enabled\n"

// Policy describes how a provider/model pair wants the system prompt.
type Policy struct {
	// SeparateSystem lifts a leading system message out of the conversation.
	SeparateSystem bool

	// SystemMode rewrites the system message in place for reasoning models.
	SystemMode model.SystemMode
}

// PolicyFor derives the policy from a registry entry.
func PolicyFor(spec model.Spec) Policy {
	return Policy{
		SeparateSystem: spec.Kind.BlockOriented(),
		SystemMode:     spec.SystemMode,
	}
}

// Prepared is a conversation ready for request building.
type Prepared struct {
	SystemPrompt string
	Conversation []protocol.Message
}

// Prepare applies the system-prompt policy.
func Prepare(conversation []protocol.Message, p Policy) Prepared {
	conv := protocol.CloneMessages(conversation)
	out := Prepared{Conversation: conv}

	if len(conv) == 0 {
		return out
	}

	switch {
	case p.SeparateSystem:
		if conv[0].Role == protocol.RoleSystem {
			out.SystemPrompt = firstText(conv[0].Content)
			out.Conversation = conv[1:]
		}

	case p.SystemMode == model.SystemMerge:
		if conv[0].Role == protocol.RoleSystem {
			system := firstText(conv[0].Content)
			rest := conv[1:]
			if len(rest) > 0 && system != "" {
				rest[0].Content = prefixContent(rest[0].Content, system+"\n\n")
			}
			out.Conversation = rest
		}

	case p.SystemMode == model.SystemRelabel:
		if conv[0].Role == protocol.RoleSystem {
			conv[0].Role = protocol.RoleDeveloper
			conv[0].Content = prefixContent(conv[0].Content, relabelMarker)
		}
	}

	return out
}

// firstText returns plain text content, or the first text block.
func firstText(c *protocol.Content) string {
	if c == nil {
		return ""
	}
	if !c.IsBlocks() {
		return c.String()
	}
	for _, b := range c.Blocks() {
		if b.Type == protocol.BlockText {
			return b.Text
		}
	}
	return ""
}

// prefixContent prepends text to plain content, or to the first text block,
// inserting a new leading text block when there is none.
func prefixContent(c *protocol.Content, prefix string) *protocol.Content {
	if c == nil {
		return protocol.TextContent(prefix)
	}
	if !c.IsBlocks() {
		return protocol.TextContent(prefix + c.String())
	}
	blocks := append([]protocol.ContentBlock(nil), c.Blocks()...)
	for i, b := range blocks {
		if b.Type == protocol.BlockText {
			blocks[i].Text = prefix + b.Text
			return protocol.BlockContent(blocks...)
		}
	}
	return protocol.BlockContent(append([]protocol.ContentBlock{protocol.TextBlock(prefix)}, blocks...)...)
}
