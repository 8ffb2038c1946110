package transform

import (
	"encoding/json"

	"github.com/flynn-ai/unichat/internal/log"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

// RawArgsKey holds tool-call arguments that were not valid JSON.
const RawArgsKey = "__raw_args__"

var logger = log.GetLogger("transform")

// ToBlocks converts a conversation to block form:
//   - assistant tool_calls become tool_use blocks after any existing text
//   - tool messages become user messages holding one tool_result block
//   - plain string content becomes a single text block
//
// Message order is preserved.
func ToBlocks(conversation []protocol.Message) []protocol.Message {
	out := make([]protocol.Message, 0, len(conversation))
	for _, m := range conversation {
		switch {
		case m.Role == protocol.RoleAssistant && len(m.ToolCalls) > 0:
			blocks := textBlocks(m.Content)
			blocks = append(blocks, ToolUseBlocks(m.ToolCalls)...)
			out = append(out, protocol.Message{
				Role:    protocol.RoleAssistant,
				Content: protocol.BlockContent(blocks...),
			})

		case m.Role == protocol.RoleTool:
			out = append(out, protocol.Message{
				Role:    protocol.RoleUser,
				Content: protocol.BlockContent(protocol.ToolResultBlock(m.ToolCallID, toolResultText(m.Content))),
			})

		default:
			c := m.Clone()
			if c.Content != nil && !c.Content.IsBlocks() {
				c.Content = protocol.BlockContent(protocol.TextBlock(c.Content.String()))
			}
			out = append(out, c)
		}
	}
	return out
}

// ToolUseBlocks converts tool calls to tool_use blocks. Arguments that do not
// parse as a JSON object are kept verbatim under RawArgsKey.
func ToolUseBlocks(calls []protocol.ToolCall) []protocol.ContentBlock {
	blocks := make([]protocol.ContentBlock, 0, len(calls))
	for _, call := range calls {
		blocks = append(blocks, protocol.ToolUseBlock(call.ID, call.Function.Name, ParseArguments(call.Function.Name, call.Function.Arguments)))
	}
	return blocks
}

// ParseArguments decodes tool-call arguments into an object. Empty arguments
// decode to an empty object.
func ParseArguments(name, raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		logger.Warn().Str("tool", name).Msg("tool call arguments are not valid JSON, passing raw string")
		return map[string]any{RawArgsKey: raw}
	}
	return args
}

func textBlocks(c *protocol.Content) []protocol.ContentBlock {
	if c == nil {
		return nil
	}
	if !c.IsBlocks() {
		if s := c.String(); s != "" {
			return []protocol.ContentBlock{protocol.TextBlock(s)}
		}
		return nil
	}
	return append([]protocol.ContentBlock(nil), c.Blocks()...)
}

// toolResultText keeps string content as is and JSON-encodes anything else.
func toolResultText(c *protocol.Content) string {
	if c == nil {
		return ""
	}
	if !c.IsBlocks() {
		return c.String()
	}
	data, err := json.Marshal(c)
	if err != nil {
		return c.String()
	}
	return string(data)
}
