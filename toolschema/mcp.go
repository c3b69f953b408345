package toolschema

import (
	"fmt"

	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/chattemplate/internal/jsonvalue"
)

// ToMCPTool converts a function schema to an MCP tool definition. The
// parameters object becomes the input schema; an object-typed return
// schema becomes the output schema. Both are plain maps.
func ToMCPTool(s ToolSchema) (*mcp.Tool, error) {
	fn := s.Function()
	if fn == nil {
		return nil, fmt.Errorf("%w: missing function object", ErrInvalidSchema)
	}
	name := s.Name()
	if name == "" {
		return nil, fmt.Errorf("%w: missing function name", ErrInvalidSchema)
	}

	params, ok := jsonvalue.Plain(fn["parameters"]).(map[string]any)
	if !ok || params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}

	tool := &mcp.Tool{
		Name:        name,
		Description: s.Description(),
		InputSchema: params,
	}
	if ret, ok := jsonvalue.Plain(fn["return"]).(map[string]any); ok && ret["type"] == "object" {
		tool.OutputSchema = ret
	}
	return tool, nil
}

// ToModelTool converts a function schema to a namespaced tool record.
func ToModelTool(s ToolSchema, namespace string) (model.Tool, error) {
	t, err := ToMCPTool(s)
	if err != nil {
		return model.Tool{}, err
	}
	tool := model.Tool{Tool: *t, Namespace: namespace}
	if err := tool.Validate(); err != nil {
		return model.Tool{}, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return tool, nil
}

// FromMCPTool wraps an MCP tool definition in the function schema shape.
// The input schema passes through unchanged.
func FromMCPTool(t mcp.Tool) ToolSchema {
	fn := map[string]any{
		"name":        t.Name,
		"description": t.Description,
	}
	if t.InputSchema != nil {
		fn["parameters"] = t.InputSchema
	} else {
		fn["parameters"] = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return ToolSchema{"type": "function", "function": fn}
}

// FromModelTool wraps a namespaced tool record in the function schema
// shape. The namespace is dropped; templates see the bare tool name.
func FromModelTool(t model.Tool) ToolSchema {
	return FromMCPTool(t.Tool)
}
