package schemas

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/flynn-ai/unichat/pkg/protocol"
)

// FromMCP converts a tool listed by an MCP server. MCP tools use the loose
// dialect with a camelCase inputSchema, so the tool is re-read through its
// JSON form rather than by field access.
func FromMCP(t *mcp.Tool) (protocol.LooseTool, error) {
	if t == nil {
		return protocol.LooseTool{}, fmt.Errorf("mcp tool is nil")
	}
	data, err := json.Marshal(t)
	if err != nil {
		return protocol.LooseTool{}, fmt.Errorf("encode mcp tool %s: %w", t.Name, err)
	}
	var lt protocol.LooseTool
	if err := json.Unmarshal(data, &lt); err != nil {
		return protocol.LooseTool{}, fmt.Errorf("decode mcp tool %s: %w", t.Name, err)
	}
	return lt, nil
}

// FromMCPList converts every tool in a tools/list result.
func FromMCPList(res *mcp.ListToolsResult) ([]protocol.ToolDeclaration, error) {
	if res == nil {
		return nil, nil
	}
	decls := make([]protocol.ToolDeclaration, 0, len(res.Tools))
	for _, t := range res.Tools {
		lt, err := FromMCP(t)
		if err != nil {
			return nil, err
		}
		decls = append(decls, lt)
	}
	return decls, nil
}
