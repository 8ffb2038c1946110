package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flynn-ai/unichat/pkg/protocol"
)

// MapStopReason converts an Anthropic stop reason. Unknown values pass
// through unchanged.
func MapStopReason(reason string) protocol.FinishReason {
	switch reason {
	case "tool_use":
		return protocol.FinishToolCalls
	case "end_turn", "stop_sequence":
		return protocol.FinishStop
	case "max_tokens":
		return protocol.FinishLength
	default:
		return protocol.FinishReason(reason)
	}
}

// NormalizeResponse converts a complete message into the canonical response.
// Text blocks are joined with newlines; content is null when there are none.
func NormalizeResponse(resp *MessageResponse) *protocol.Response {
	var texts []string
	var calls []protocol.ToolCall

	for _, b := range resp.Content {
		switch b.Type {
		case protocol.BlockText:
			texts = append(texts, b.Text)
		case protocol.BlockToolUse:
			calls = append(calls, protocol.NewToolCall(b.ID, b.Name, stringifyInput(b.Input)))
		}
	}

	msg := protocol.Message{Role: protocol.RoleAssistant, ToolCalls: calls}
	if len(texts) > 0 {
		msg.Content = protocol.TextContent(strings.Join(texts, "\n"))
	}

	return &protocol.Response{
		ID:      responseID(resp.ID),
		Object:  protocol.ObjectCompletion,
		Created: time.Now().Unix(),
		Model:   resp.Model,
		Choices: []protocol.Choice{{
			Index:        0,
			Message:      msg,
			FinishReason: MapStopReason(resp.StopReason),
		}},
		Usage: protocol.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}

// stringifyInput encodes a tool input. An input that cannot be encoded is
// replaced with a diagnostic object rather than failing the response.
func stringifyInput(input map[string]any) string {
	if input == nil {
		return "{}"
	}
	data, err := json.Marshal(input)
	if err == nil {
		return string(data)
	}

	logger.Warn().Err(err).Msg("failed to stringify tool input")
	preview := fmt.Sprintf("%v", input)
	if len(preview) > 200 {
		preview = preview[:200]
	}
	diag, _ := json.Marshal(map[string]string{
		"error":                "Failed to stringify input",
		"originalInputPreview": preview,
	})
	return string(diag)
}

func responseID(id string) string {
	if id != "" {
		return id
	}
	return "chatcmpl-" + uuid.NewString()
}
