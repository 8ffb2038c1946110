// Package schemas normalizes tool declarations between the wire dialects
// providers and callers use.
package schemas

import (
	"encoding/json"

	"github.com/flynn-ai/unichat/pkg/protocol"
)

// SchemaBuilder provides a fluent interface for building canonical tools.
type SchemaBuilder struct {
	tool     protocol.Tool
	props    map[string]any
	required []any
}

// NewSchema creates a new schema builder with the given name and description.
func NewSchema(name, description string) *SchemaBuilder {
	return &SchemaBuilder{
		tool: protocol.Tool{
			Name:        name,
			Description: description,
		},
		props:    make(map[string]any),
		required: make([]any, 0),
	}
}

// AddParam adds a parameter to the schema.
// paramType should be a JSON Schema type: "string", "number", "integer",
// "boolean", "array", "object".
func (b *SchemaBuilder) AddParam(name, paramType, description string, required bool) *SchemaBuilder {
	return b.AddParamWithEnum(name, paramType, description, nil, required)
}

// AddParamWithEnum adds a parameter with an enum constraint.
func (b *SchemaBuilder) AddParamWithEnum(name, paramType, description string, enum []string, required bool) *SchemaBuilder {
	paramDef := map[string]any{
		"type":        paramType,
		"description": description,
	}
	if len(enum) > 0 {
		values := make([]any, len(enum))
		for i, v := range enum {
			values[i] = v
		}
		paramDef["enum"] = values
	}
	b.props[name] = paramDef
	if required {
		b.required = append(b.required, name)
	}
	return b
}

// AddObjectParam adds an object parameter with nested properties.
func (b *SchemaBuilder) AddObjectParam(name, description string, properties map[string]any, required []string) *SchemaBuilder {
	req := make([]any, len(required))
	for i, r := range required {
		req[i] = r
	}
	b.props[name] = map[string]any{
		"type":        "object",
		"description": description,
		"properties":  properties,
		"required":    req,
	}
	return b
}

// Build returns the constructed tool.
func (b *SchemaBuilder) Build() protocol.Tool {
	t := b.tool
	t.InputSchema = protocol.Schema{
		"type":                 "object",
		"properties":           b.props,
		"required":             b.required,
		"additionalProperties": false,
	}
	return t
}

// Registry holds canonical tools in registration order.
type Registry struct {
	order []string
	tools map[string]protocol.Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]protocol.Tool)}
}

// Register adds a tool, replacing any tool with the same name in place.
func (r *Registry) Register(t protocol.Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// RegisterDeclarations normalizes and registers tools in any dialect.
func (r *Registry) RegisterDeclarations(decls ...protocol.ToolDeclaration) {
	for _, t := range Normalize(decls) {
		r.Register(t)
	}
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (protocol.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tool names in registration order.
func (r *Registry) List() []string {
	return append([]string(nil), r.order...)
}

// Tools returns the canonical tools in registration order.
func (r *Registry) Tools() []protocol.Tool {
	out := make([]protocol.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Functions renders the registry in the wrapped function dialect.
func (r *Registry) Functions() []protocol.ToolDeclaration {
	return Denormalize(r.Tools(), DialectFunction)
}

// Loose renders the registry in the loose input_schema dialect.
func (r *Registry) Loose() []protocol.ToolDeclaration {
	return Denormalize(r.Tools(), DialectLoose)
}

// ToJSON returns the registry as JSON for debugging.
func (r *Registry) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r.Tools(), "", "  ")
}

// Merge merges another registry into this one. Existing names win.
func (r *Registry) Merge(other *Registry) {
	for _, name := range other.order {
		if _, exists := r.tools[name]; !exists {
			r.Register(other.tools[name])
		}
	}
}
