package openai

import (
	"math"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/flynn-ai/unichat/internal/model"
	"github.com/flynn-ai/unichat/internal/provider"
	"github.com/flynn-ai/unichat/internal/tools/schemas"
	"github.com/flynn-ai/unichat/internal/transform"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

// BuildRequest turns a canonical conversation into a chat-completions
// request. It performs no I/O.
func BuildRequest(conversation []protocol.Message, tools []protocol.Tool, spec model.Spec, opts provider.Options) goopenai.ChatCompletionRequest {
	prepared := transform.Prepare(conversation, transform.PolicyFor(spec))

	messages := make([]goopenai.ChatCompletionMessage, 0, len(prepared.Conversation))
	for _, m := range prepared.Conversation {
		messages = append(messages, toMessage(m))
	}

	req := goopenai.ChatCompletionRequest{
		Model:           spec.Name,
		Messages:        messages,
		Temperature:     temperature(provider.ResolveTemperature(opts, spec)),
		Stream:          opts.Stream,
		ReasoningEffort: opts.ReasoningEffort.Level(),
	}

	if spec.MaxTokens > 0 {
		if spec.Reasoning {
			req.MaxCompletionTokens = spec.MaxTokens
		} else {
			req.MaxTokens = spec.MaxTokens
		}
	}

	if !spec.NoTools && len(tools) > 0 {
		req.Tools = toTools(tools)
	}

	return req
}

// temperature converts t for the wire. go-openai drops a zero temperature
// as omitempty, so an explicit 0 is sent as the smallest positive float32.
func temperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func toMessage(m protocol.Message) goopenai.ChatCompletionMessage {
	out := goopenai.ChatCompletionMessage{
		Role:       string(m.Role),
		ToolCallID: m.ToolCallID,
	}

	if m.Content.IsBlocks() {
		for _, b := range m.Content.Blocks() {
			if b.Type != protocol.BlockText {
				continue
			}
			out.MultiContent = append(out.MultiContent, goopenai.ChatMessagePart{
				Type: goopenai.ChatMessagePartTypeText,
				Text: b.Text,
			})
		}
	} else {
		out.Content = m.Content.String()
	}

	for _, tc := range m.ToolCalls {
		typ := tc.Type
		if typ == "" {
			typ = protocol.ToolTypeFunction
		}
		out.ToolCalls = append(out.ToolCalls, goopenai.ToolCall{
			Index: tc.Index,
			ID:    tc.ID,
			Type:  goopenai.ToolType(typ),
			Function: goopenai.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	return out
}

// toTools renders tools in the function dialect.
func toTools(tools []protocol.Tool) []goopenai.Tool {
	decls := schemas.Denormalize(tools, schemas.DialectFunction)
	out := make([]goopenai.Tool, 0, len(decls))
	for _, d := range decls {
		fn, ok := d.(protocol.FunctionTool)
		if !ok {
			continue
		}
		params := fn.Function.Parameters
		if params == nil {
			params = protocol.DefaultSchema()
		}
		out = append(out, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        fn.Function.Name,
				Description: fn.Function.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
