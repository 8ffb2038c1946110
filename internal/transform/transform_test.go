package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flynn-ai/unichat/internal/errors"
	"github.com/flynn-ai/unichat/internal/model"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

func conversation() []protocol.Message {
	return []protocol.Message{
		protocol.Text(protocol.RoleSystem, "Be brief."),
		protocol.Text(protocol.RoleUser, "Hi"),
	}
}

func TestPrepareSeparatesSystemForBlockProviders(t *testing.T) {
	in := conversation()
	p := Prepare(in, PolicyFor(model.Spec{Kind: model.KindAnthropic}))

	assert.Equal(t, "Be brief.", p.SystemPrompt)
	require.Len(t, p.Conversation, 1)
	assert.Equal(t, protocol.RoleUser, p.Conversation[0].Role)
	assert.Len(t, in, 2, "input untouched")
}

func TestPrepareReadsSystemFromTextBlock(t *testing.T) {
	in := []protocol.Message{
		{Role: protocol.RoleSystem, Content: protocol.BlockContent(protocol.TextBlock("rules"))},
		protocol.Text(protocol.RoleUser, "Hi"),
	}
	p := Prepare(in, Policy{SeparateSystem: true})
	assert.Equal(t, "rules", p.SystemPrompt)
}

func TestPrepareWithoutSystemMessage(t *testing.T) {
	in := []protocol.Message{protocol.Text(protocol.RoleUser, "Hi")}
	p := Prepare(in, Policy{SeparateSystem: true})
	assert.Empty(t, p.SystemPrompt)
	assert.Equal(t, in, p.Conversation)

	assert.Empty(t, Prepare(nil, Policy{SeparateSystem: true}).Conversation)
}

func TestPrepareMergesSystemForLegacyReasoningModels(t *testing.T) {
	in := conversation()
	p := Prepare(in, Policy{SystemMode: model.SystemMerge})

	assert.Empty(t, p.SystemPrompt)
	require.Len(t, p.Conversation, 1)
	assert.Equal(t, protocol.RoleUser, p.Conversation[0].Role)
	assert.Equal(t, "Be brief.\n\nHi", p.Conversation[0].Content.String())
	assert.Equal(t, "Hi", in[1].Content.String(), "input untouched")

	lone := Prepare(in[:1], Policy{SystemMode: model.SystemMerge})
	assert.Empty(t, lone.Conversation)
}

func TestPrepareRelabelsSystemAsDeveloper(t *testing.T) {
	in := conversation()
	p := Prepare(in, Policy{SystemMode: model.SystemRelabel})

	require.Len(t, p.Conversation, 2)
	assert.Equal(t, protocol.RoleDeveloper, p.Conversation[0].Role)
	assert.Equal(t, "Formatting re-enabled\nBe brief.", p.Conversation[0].Content.String())
	assert.Equal(t, protocol.RoleSystem, in[0].Role, "input untouched")

	userFirst := Prepare(in[1:], Policy{SystemMode: model.SystemRelabel})
	assert.Equal(t, protocol.RoleUser, userFirst.Conversation[0].Role)
}

func TestPrepareKeepsSystemForFlatProviders(t *testing.T) {
	p := Prepare(conversation(), PolicyFor(model.Spec{Kind: model.KindOpenAI}))
	assert.Empty(t, p.SystemPrompt)
	assert.Equal(t, conversation(), p.Conversation)
}

func TestToBlocksToolRoundTrip(t *testing.T) {
	in := []protocol.Message{
		protocol.Text(protocol.RoleUser, "Weather in Paris?"),
		{
			Role:      protocol.RoleAssistant,
			ToolCalls: []protocol.ToolCall{protocol.NewToolCall("t1", "weather", `{"city":"Paris"}`)},
		},
		protocol.ToolMessage("t1", "sunny"),
	}

	out := ToBlocks(in)
	require.Len(t, out, 3)

	assert.Equal(t, []protocol.ContentBlock{protocol.TextBlock("Weather in Paris?")}, out[0].Content.Blocks())

	assert.Empty(t, out[1].ToolCalls)
	require.Len(t, out[1].Content.Blocks(), 1)
	use := out[1].Content.Blocks()[0]
	assert.Equal(t, protocol.BlockToolUse, use.Type)
	assert.Equal(t, "t1", use.ID)
	assert.Equal(t, "weather", use.Name)
	assert.Equal(t, map[string]any{"city": "Paris"}, use.Input)

	assert.Equal(t, protocol.RoleUser, out[2].Role)
	require.Len(t, out[2].Content.Blocks(), 1)
	res := out[2].Content.Blocks()[0]
	assert.Equal(t, protocol.BlockToolResult, res.Type)
	assert.Equal(t, "t1", res.ToolUseID)
	assert.Equal(t, "sunny", res.Result)

	assert.Len(t, in[1].ToolCalls, 1, "input untouched")
	assert.False(t, in[0].Content.IsBlocks(), "input untouched")
}

func TestToBlocksKeepsAssistantTextBeforeToolUse(t *testing.T) {
	out := ToBlocks([]protocol.Message{{
		Role:      protocol.RoleAssistant,
		Content:   protocol.TextContent("Let me check."),
		ToolCalls: []protocol.ToolCall{protocol.NewToolCall("t1", "weather", `{}`)},
	}})
	blocks := out[0].Content.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, protocol.BlockText, blocks[0].Type)
	assert.Equal(t, protocol.BlockToolUse, blocks[1].Type)
}

func TestToBlocksEncodesStructuredToolResult(t *testing.T) {
	out := ToBlocks([]protocol.Message{{
		Role:       protocol.RoleTool,
		ToolCallID: "t9",
		Content:    protocol.BlockContent(protocol.TextBlock("42")),
	}})
	res := out[0].Content.Blocks()[0]
	assert.JSONEq(t, `[{"type":"text","text":"42"}]`, res.Result)
}

func TestMalformedArgumentsAreWrappedNotFatal(t *testing.T) {
	blocks := ToolUseBlocks([]protocol.ToolCall{protocol.NewToolCall("t1", "weather", "{bad json")})
	require.Len(t, blocks, 1)
	assert.Equal(t, map[string]any{RawArgsKey: "{bad json"}, blocks[0].Input)

	assert.Equal(t, map[string]any{}, ParseArguments("f", ""))
	assert.Equal(t, map[string]any{RawArgsKey: "[1,2]"}, ParseArguments("f", "[1,2]"))
	assert.Equal(t, map[string]any{RawArgsKey: "null"}, ParseArguments("f", "null"))
}

func TestCacheMessagesMarksAtMostTwoUserMessages(t *testing.T) {
	in := []protocol.Message{
		protocol.Text(protocol.RoleUser, "u1"),
		protocol.Text(protocol.RoleAssistant, "a1"),
		{Role: protocol.RoleUser, Content: protocol.BlockContent(protocol.TextBlock("u2a"), protocol.TextBlock("u2b"))},
		protocol.Text(protocol.RoleAssistant, "a2"),
		protocol.Text(protocol.RoleUser, "u3"),
	}

	out := CacheMessages(in)
	require.Len(t, out, len(in))

	annotated := 0
	for _, m := range out {
		if m.Content.IsBlocks() && len(m.Content.Blocks()) > 0 && m.Content.Blocks()[0].CacheControl != nil {
			annotated++
		}
	}
	assert.Equal(t, 2, annotated)

	assert.Equal(t, in[0], out[0], "oldest user message untouched")
	assert.Equal(t, in[1], out[1])
	assert.Equal(t, in[3], out[3])

	for _, b := range out[2].Content.Blocks() {
		assert.Equal(t, protocol.Ephemeral(), b.CacheControl)
	}
	require.Len(t, out[4].Content.Blocks(), 1)
	assert.Equal(t, "u3", out[4].Content.Blocks()[0].Text)
	assert.NotNil(t, out[4].Content.Blocks()[0].CacheControl)

	assert.Nil(t, in[2].Content.Blocks()[0].CacheControl, "input untouched")
}

func TestCacheMessagesWithFewUsers(t *testing.T) {
	out := CacheMessages([]protocol.Message{protocol.Text(protocol.RoleAssistant, "hello")})
	assert.False(t, out[0].Content.IsBlocks())
	assert.Empty(t, CacheMessages(nil))
}

func TestValidateToolMessages(t *testing.T) {
	call := protocol.Message{
		Role:      protocol.RoleAssistant,
		ToolCalls: []protocol.ToolCall{{ID: "call_1", Function: protocol.FunctionCall{Name: "get_weather"}}},
	}
	block := protocol.Message{
		Role:    protocol.RoleAssistant,
		Content: protocol.BlockContent(protocol.ToolUseBlock("toolu_1", "get_time", nil)),
	}

	assert.NoError(t, Validate(nil))
	assert.NoError(t, Validate([]protocol.Message{call, protocol.ToolMessage("call_1", "sunny")}))
	assert.NoError(t, Validate([]protocol.Message{block, protocol.ToolMessage("toolu_1", "noon")}))

	err := Validate([]protocol.Message{call, {Role: protocol.RoleTool, Content: protocol.TextContent("sunny")}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindBadRequest))
	assert.Equal(t, 1, err.(*errors.AppError).Context["message"])

	err = Validate([]protocol.Message{protocol.ToolMessage("call_1", "early"), call})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindBadRequest))
	assert.Equal(t, "call_1", err.(*errors.AppError).Context["tool_call_id"])
}
