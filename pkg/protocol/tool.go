package protocol

// ToolCall is a tool invocation requested by the assistant. Inside stream
// chunks Arguments may be a fragment of the full JSON document.
type ToolCall struct {
	Index    *int         `json:"index,omitempty"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function and carries its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments"`
}

// ToolTypeFunction is the only tool call type in use.
const ToolTypeFunction = "function"

// NewToolCall returns a complete function tool call.
func NewToolCall(id, name, arguments string) ToolCall {
	return ToolCall{
		ID:       id,
		Type:     ToolTypeFunction,
		Function: FunctionCall{Name: name, Arguments: arguments},
	}
}

// IndexOf returns a pointer suitable for ToolCall.Index.
func IndexOf(i int) *int {
	return &i
}

// Schema is a JSON-Schema-like object. It is never validated, so malformed
// schemas pass through unchanged.
type Schema map[string]any

// DefaultSchema is used for tools declared without any schema.
func DefaultSchema() Schema {
	return Schema{
		"type":                 "object",
		"properties":           map[string]any{},
		"required":             []any{},
		"additionalProperties": false,
	}
}

// Tool is the canonical tool definition.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema Schema `json:"input_schema"`
}

// ToolDeclaration is a tool in one of the wire dialects callers supply.
// It is implemented by FunctionTool and LooseTool only.
type ToolDeclaration interface {
	isToolDeclaration()
}

// FunctionTool is the wrapped dialect:
// {"type":"function","function":{"name","description","parameters"}}.
type FunctionTool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition is the body of a FunctionTool.
type FunctionDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  Schema `json:"parameters,omitempty"`
}

// LooseTool is the flat dialect. The schema may appear under either key;
// inputSchema wins when both are set.
type LooseTool struct {
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	InputSchemaCamel Schema `json:"inputSchema,omitempty"`
	InputSchema      Schema `json:"input_schema,omitempty"`
}

func (FunctionTool) isToolDeclaration() {}
func (LooseTool) isToolDeclaration()    {}
