package openai

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/flynn-ai/unichat/internal/errors"
	"github.com/flynn-ai/unichat/internal/transform"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

// NormalizeResponse relabels a flat response into the canonical shape.
// Only the first choice is kept. requestModel fills in a missing model name.
func NormalizeResponse(resp goopenai.ChatCompletionResponse, requestModel string) (*protocol.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, errors.New(errors.KindAPIError, "response contains no choices")
	}
	choice := resp.Choices[0]

	msg := protocol.Message{Role: protocol.RoleAssistant}
	if choice.Message.Content != "" {
		msg.Content = protocol.TextContent(choice.Message.Content)
	}
	for _, tc := range choice.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, protocol.ToolCall{
			ID:   tc.ID,
			Type: toolType(tc.Type),
			Function: protocol.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: normalizeArguments(tc.Function.Name, tc.Function.Arguments),
			},
		})
	}

	out := &protocol.Response{
		ID:      fallbackID(resp.ID),
		Object:  protocol.ObjectCompletion,
		Created: resp.Created,
		Model:   resp.Model,
		Choices: []protocol.Choice{{
			Index:        0,
			Message:      msg,
			FinishReason: protocol.FinishReason(choice.FinishReason),
		}},
		Usage: protocol.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if out.Created == 0 {
		out.Created = time.Now().Unix()
	}
	if out.Model == "" {
		out.Model = requestModel
	}
	return out, nil
}

// normalizeArguments keeps valid JSON objects verbatim and substitutes the
// raw-args wrapper for anything else.
func normalizeArguments(name, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return raw
	}
	data, err := json.Marshal(transform.ParseArguments(name, raw))
	if err != nil {
		return "{}"
	}
	return string(data)
}

func toolType(t goopenai.ToolType) string {
	if t == "" {
		return protocol.ToolTypeFunction
	}
	return string(t)
}

func fallbackID(id string) string {
	if id != "" {
		return id
	}
	return "chatcmpl-" + uuid.NewString()
}
