package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flynn-ai/unichat/internal/model"
	"github.com/flynn-ai/unichat/internal/provider"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

var claude = model.Spec{Name: "claude-sonnet-4-5", Kind: model.KindAnthropic, MaxTokens: 64000}

func weatherTools() []protocol.Tool {
	return []protocol.Tool{
		{Name: "get_weather", Description: "Weather for a city", InputSchema: protocol.Schema{
			"type":       "object",
			"properties": map[string]any{"city": map[string]any{"type": "string"}},
			"required":   []any{"city"},
		}},
		{Name: "get_time", Description: "Current time"},
	}
}

func TestBuildRequestSeparatesSystem(t *testing.T) {
	conv := []protocol.Message{
		protocol.Text(protocol.RoleSystem, "You are terse."),
		protocol.Text(protocol.RoleUser, "Hi"),
	}

	req := BuildRequest(conv, nil, claude, provider.DefaultOptions())

	assert.Equal(t, "claude-sonnet-4-5", req.Model)
	assert.Equal(t, 64000, req.MaxTokens)
	assert.Equal(t, "You are terse.", req.System)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "Hi", req.Messages[0].Content[0].Text)
	assert.Nil(t, req.Messages[0].Content[0].CacheControl)
	assert.Nil(t, req.OutputConfig)
	assert.Nil(t, req.Tools)

	// the caller's conversation is untouched
	assert.Equal(t, protocol.RoleSystem, conv[0].Role)
	assert.False(t, conv[1].Content.IsBlocks())
}

func TestBuildRequestCaching(t *testing.T) {
	conv := []protocol.Message{
		protocol.Text(protocol.RoleSystem, "sys"),
		protocol.Text(protocol.RoleUser, "one"),
		protocol.Text(protocol.RoleAssistant, "a"),
		protocol.Text(protocol.RoleUser, "two"),
		protocol.Text(protocol.RoleAssistant, "b"),
		protocol.Text(protocol.RoleUser, "three"),
	}
	opts := provider.DefaultOptions()
	opts.Cache = provider.CacheWith("project-42")

	req := BuildRequest(conv, weatherTools(), claude, opts)

	system, ok := req.System.([]SystemBlock)
	require.True(t, ok)
	require.Len(t, system, 2)
	assert.Equal(t, "sys", system[0].Text)
	assert.Nil(t, system[0].CacheControl)
	assert.Equal(t, "project-42", system[1].Text)
	assert.Equal(t, protocol.Ephemeral(), system[1].CacheControl)

	cached := 0
	for _, m := range req.Messages {
		for _, b := range m.Content {
			if b.CacheControl != nil {
				cached++
			}
		}
	}
	assert.Equal(t, 2, cached)
	assert.Nil(t, req.Messages[0].Content[0].CacheControl)
	assert.NotNil(t, req.Messages[2].Content[0].CacheControl)
	assert.NotNil(t, req.Messages[4].Content[0].CacheControl)

	require.Len(t, req.Tools, 2)
	assert.Nil(t, req.Tools[0].CacheControl)
	assert.NotNil(t, req.Tools[1].CacheControl)
	assert.Equal(t, protocol.DefaultSchema(), req.Tools[1].InputSchema)
}

func TestBuildRequestCachingWithoutSystem(t *testing.T) {
	opts := provider.DefaultOptions()
	opts.Cache = provider.CacheWith("")

	req := BuildRequest([]protocol.Message{protocol.Text(protocol.RoleUser, "hi")}, nil, claude, opts)
	assert.Nil(t, req.System)
}

func TestBuildRequestTemperatureAndLimits(t *testing.T) {
	opts := provider.DefaultOptions()
	opts.Temperature = 1.7

	spec := model.Spec{Name: "claude-unlisted", Kind: model.KindAnthropic}
	req := BuildRequest([]protocol.Message{protocol.Text(protocol.RoleUser, "hi")}, nil, spec, opts)

	require.NotNil(t, req.Temperature)
	assert.Equal(t, 1.0, *req.Temperature)
	assert.Equal(t, model.DefaultMaxTokens, req.MaxTokens)
}

func TestBuildRequestNoToolsModel(t *testing.T) {
	spec := claude
	spec.NoTools = true

	req := BuildRequest([]protocol.Message{protocol.Text(protocol.RoleUser, "hi")}, weatherTools(), spec, provider.DefaultOptions())
	assert.Nil(t, req.Tools)
}

func TestBuildRequestReasoningEffort(t *testing.T) {
	opts := provider.DefaultOptions()
	conv := []protocol.Message{protocol.Text(protocol.RoleUser, "think")}

	opts.ReasoningEffort = provider.ReasoningOn
	req := BuildRequest(conv, nil, claude, opts)
	require.NotNil(t, req.OutputConfig)
	assert.Equal(t, "high", req.OutputConfig.Effort)

	opts.ReasoningEffort = provider.ReasoningLevel("low")
	req = BuildRequest(conv, nil, claude, opts)
	assert.Equal(t, "low", req.OutputConfig.Effort)

	opts.ReasoningEffort = provider.ReasoningOff
	req = BuildRequest(conv, nil, claude, opts)
	assert.Nil(t, req.OutputConfig)
}

func TestBuildRequestToolRoundTrip(t *testing.T) {
	conv := []protocol.Message{
		protocol.Text(protocol.RoleUser, "Weather in Paris?"),
		{
			Role:      protocol.RoleAssistant,
			Content:   protocol.TextContent("Checking."),
			ToolCalls: []protocol.ToolCall{protocol.NewToolCall("toolu_1", "get_weather", `{"city":"Paris"}`)},
		},
		protocol.ToolMessage("toolu_1", "18C and sunny"),
	}

	req := BuildRequest(conv, weatherTools(), claude, provider.DefaultOptions())
	require.Len(t, req.Messages, 3)

	assistant := req.Messages[1]
	assert.Equal(t, "assistant", assistant.Role)
	require.Len(t, assistant.Content, 2)
	assert.Equal(t, "Checking.", assistant.Content[0].Text)
	assert.Equal(t, protocol.BlockToolUse, assistant.Content[1].Type)
	assert.Equal(t, map[string]any{"city": "Paris"}, assistant.Content[1].Input)

	result := req.Messages[2]
	assert.Equal(t, "user", result.Role)
	require.Len(t, result.Content, 1)
	assert.Equal(t, protocol.BlockToolResult, result.Content[0].Type)
	assert.Equal(t, "toolu_1", result.Content[0].ToolUseID)
	assert.Equal(t, "18C and sunny", result.Content[0].Result)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"input_schema"`)
	assert.Contains(t, string(data), `"tool_use_id":"toolu_1"`)
}
