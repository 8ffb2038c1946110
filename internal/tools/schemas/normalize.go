package schemas

import (
	"encoding/json"
	"fmt"

	"github.com/flynn-ai/unichat/pkg/protocol"
)

// Dialect selects the wire shape Denormalize produces.
type Dialect int

const (
	// DialectFunction is {"type":"function","function":{...,"parameters"}}.
	DialectFunction Dialect = iota

	// DialectLoose is {"name","description","input_schema"}.
	DialectLoose
)

// Classify decodes one tool declaration. It is the wrapped dialect only when
// both "type" and "function" are present; anything else is loose.
func Classify(raw json.RawMessage) (protocol.ToolDeclaration, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("tool declaration: %w", err)
	}

	_, hasType := probe["type"]
	_, hasFunction := probe["function"]
	if hasType && hasFunction {
		var ft protocol.FunctionTool
		if err := json.Unmarshal(raw, &ft); err != nil {
			return nil, fmt.Errorf("function tool: %w", err)
		}
		return ft, nil
	}

	var lt protocol.LooseTool
	if err := json.Unmarshal(raw, &lt); err != nil {
		return nil, fmt.Errorf("loose tool: %w", err)
	}
	return lt, nil
}

// Decode decodes a JSON array of tool declarations that may mix dialects.
func Decode(data []byte) ([]protocol.ToolDeclaration, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("tool declarations: %w", err)
	}
	decls := make([]protocol.ToolDeclaration, 0, len(raws))
	for i, raw := range raws {
		d, err := Classify(raw)
		if err != nil {
			return nil, fmt.Errorf("tool %d: %w", i, err)
		}
		decls = append(decls, d)
	}
	return decls, nil
}

// Normalize converts declarations to canonical tools. The schema comes from
// function.parameters for wrapped tools, and from inputSchema, then
// input_schema, then the default empty object schema for loose ones.
// Schemas are never validated. Nil declarations are skipped.
func Normalize(decls []protocol.ToolDeclaration) []protocol.Tool {
	if len(decls) == 0 {
		return nil
	}
	tools := make([]protocol.Tool, 0, len(decls))
	for _, d := range decls {
		if t, ok := normalizeOne(d); ok {
			tools = append(tools, t)
		}
	}
	return tools
}

// normalizeOne converts one declaration. Nil declarations are skipped.
func normalizeOne(d protocol.ToolDeclaration) (protocol.Tool, bool) {
	switch t := d.(type) {
	case protocol.FunctionTool:
		return protocol.Tool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		}, true
	case *protocol.FunctionTool:
		if t == nil {
			return protocol.Tool{}, false
		}
		return normalizeOne(*t)
	case protocol.LooseTool:
		schema := t.InputSchemaCamel
		if schema == nil {
			schema = t.InputSchema
		}
		if schema == nil {
			schema = protocol.DefaultSchema()
		}
		return protocol.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		}, true
	case *protocol.LooseTool:
		if t == nil {
			return protocol.Tool{}, false
		}
		return normalizeOne(*t)
	default:
		return protocol.Tool{}, false
	}
}

// Denormalize renders canonical tools in the requested dialect.
// Normalize(Denormalize(tools, d)) returns tools unchanged.
func Denormalize(tools []protocol.Tool, d Dialect) []protocol.ToolDeclaration {
	if len(tools) == 0 {
		return nil
	}
	out := make([]protocol.ToolDeclaration, 0, len(tools))
	for _, t := range tools {
		switch d {
		case DialectLoose:
			out = append(out, protocol.LooseTool{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: t.InputSchema,
			})
		default:
			out = append(out, protocol.FunctionTool{
				Type: protocol.ToolTypeFunction,
				Function: protocol.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.InputSchema,
				},
			})
		}
	}
	return out
}
