package protocol

import "encoding/json"

// FinishReason is why the model stopped. Values a provider reports that have
// no canonical equivalent are carried through unchanged.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
)

const (
	ObjectCompletion = "chat.completion"
	ObjectChunk      = "chat.completion.chunk"
)

// Response is a complete, non-streamed completion. It always has exactly one
// choice.
type Response struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Message returns the first choice's message.
func (r *Response) Message() Message {
	if r == nil || len(r.Choices) == 0 {
		return Message{}
	}
	return r.Choices[0].Message
}

// Choice is one completion alternative.
type Choice struct {
	Index        int          `json:"index"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
}

// Usage reports token counts as the provider returned them.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// UnmarshalJSON accepts snake_case and camelCase field names.
func (u *Usage) UnmarshalJSON(data []byte) error {
	var raw struct {
		PromptTokens          *int `json:"prompt_tokens"`
		CompletionTokens      *int `json:"completion_tokens"`
		TotalTokens           *int `json:"total_tokens"`
		PromptTokensCamel     *int `json:"promptTokens"`
		CompletionTokensCamel *int `json:"completionTokens"`
		TotalTokensCamel      *int `json:"totalTokens"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = Usage{
		PromptTokens:     firstInt(raw.PromptTokens, raw.PromptTokensCamel),
		CompletionTokens: firstInt(raw.CompletionTokens, raw.CompletionTokensCamel),
		TotalTokens:      firstInt(raw.TotalTokens, raw.TotalTokensCamel),
	}
	return nil
}

func firstInt(vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}

// Chunk is one element of a canonical stream.
type Chunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// ChunkChoice carries the incremental delta.
type ChunkChoice struct {
	Index        int           `json:"index"`
	Delta        Delta         `json:"delta"`
	FinishReason *FinishReason `json:"finish_reason"`
}

// Delta is the incremental part of a chunk. Every field is optional.
type Delta struct {
	Role      Role       `json:"role,omitempty"`
	Content   *string    `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Delta returns the first choice's delta.
func (c Chunk) Delta() Delta {
	if len(c.Choices) == 0 {
		return Delta{}
	}
	return c.Choices[0].Delta
}

// FinishReason returns the first choice's finish reason, or "" if unset.
func (c Chunk) FinishReason() FinishReason {
	if len(c.Choices) == 0 || c.Choices[0].FinishReason == nil {
		return ""
	}
	return *c.Choices[0].FinishReason
}
