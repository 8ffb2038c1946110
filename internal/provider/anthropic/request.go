package anthropic

import (
	"github.com/flynn-ai/unichat/internal/model"
	"github.com/flynn-ai/unichat/internal/provider"
	"github.com/flynn-ai/unichat/internal/transform"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

// BuildRequest turns a canonical conversation into a Messages API payload.
// It performs no I/O.
func BuildRequest(conversation []protocol.Message, tools []protocol.Tool, spec model.Spec, opts provider.Options) *MessageRequest {
	prepared := transform.Prepare(conversation, transform.PolicyFor(spec))

	msgs := transform.ToBlocks(prepared.Conversation)
	if opts.Cache.Enabled {
		msgs = transform.CacheMessages(msgs)
	}

	temperature := provider.ResolveTemperature(opts, spec)
	req := &MessageRequest{
		Model:       spec.Name,
		MaxTokens:   spec.OutputLimit(),
		Messages:    toParams(msgs),
		System:      systemPrompt(prepared.SystemPrompt, opts.Cache),
		Temperature: &temperature,
		Stream:      opts.Stream,
	}

	if !spec.NoTools {
		req.Tools = toolParams(tools, opts.Cache.Enabled)
	}
	if level := opts.ReasoningEffort.Level(); level != "" {
		req.OutputConfig = &OutputConfig{Effort: level}
	}

	return req
}

// systemPrompt returns a plain string, or with caching on, the prompt
// followed by the cache namespace as a cached text block. Empty parts are
// left out because the API rejects empty text blocks.
func systemPrompt(system string, cache provider.CacheHint) any {
	if !cache.Enabled {
		if system == "" {
			return nil
		}
		return system
	}

	var blocks []SystemBlock
	if system != "" {
		blocks = append(blocks, SystemBlock{Type: "text", Text: system})
	}
	if cache.Namespace != "" {
		blocks = append(blocks, SystemBlock{Type: "text", Text: cache.Namespace, CacheControl: protocol.Ephemeral()})
	}
	if len(blocks) == 0 {
		return nil
	}
	return blocks
}

// toolParams renders tools in input_schema form. With caching on, the last
// tool carries the cache breakpoint so the whole tool list is cached.
func toolParams(tools []protocol.Tool, cached bool) []ToolParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]ToolParam, len(tools))
	for i, t := range tools {
		schema := t.InputSchema
		if schema == nil {
			schema = protocol.DefaultSchema()
		}
		out[i] = ToolParam{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		}
	}
	if cached {
		out[len(out)-1].CacheControl = protocol.Ephemeral()
	}
	return out
}

func toParams(msgs []protocol.Message) []MessageParam {
	out := make([]MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := m.Content.Blocks()
		if len(blocks) == 0 {
			blocks = []protocol.ContentBlock{protocol.TextBlock("")}
		}
		out = append(out, MessageParam{Role: string(m.Role), Content: blocks})
	}
	return out
}
