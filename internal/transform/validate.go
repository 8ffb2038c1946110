package transform

import (
	"github.com/flynn-ai/unichat/internal/errors"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

// Validate checks that every tool message answers a tool call issued by an
// earlier assistant message, either as a tool_calls entry or a tool_use
// block. It returns a BadRequest error naming the first offending message.
func Validate(conversation []protocol.Message) error {
	issued := make(map[string]bool)
	for i, m := range conversation {
		switch m.Role {
		case protocol.RoleAssistant:
			for _, tc := range m.ToolCalls {
				if tc.ID != "" {
					issued[tc.ID] = true
				}
			}
			for _, b := range m.Content.Blocks() {
				if b.Type == protocol.BlockToolUse && b.ID != "" {
					issued[b.ID] = true
				}
			}

		case protocol.RoleTool:
			if m.ToolCallID == "" {
				return errors.NewBuilder(errors.KindBadRequest, "tool message has no tool_call_id").
					WithContext("message", i).
					WithSuggestion("Set ToolCallID to the id of the tool call being answered").
					Build()
			}
			if !issued[m.ToolCallID] {
				return errors.NewBuilder(errors.KindBadRequest, "tool message answers an unknown tool call").
					WithContext("message", i).
					WithContext("tool_call_id", m.ToolCallID).
					Build()
			}
		}
	}
	return nil
}
