package preprocessing

import (
	"fmt"

	"github.com/iancoleman/orderedmap"
	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/chattemplate/internal/jsonvalue"
	"github.com/jonwraymond/chattemplate/toolschema"
)

// callableKey marks a wire tool entry holding a callable descriptor:
//
//	{"callable": {"name": "get_weather", "doc": "...", "params": [...]}}
const callableKey = "callable"

// normalizeTools turns every accepted tool shape into a function schema.
// Schema mappings and MCP tool records pass through; callables are
// compiled. A nil list stays nil so templates can tell "no tools" apart.
func normalizeTools(compiler *toolschema.Compiler, tools []any) ([]toolschema.ToolSchema, error) {
	if tools == nil {
		return nil, nil
	}
	out := make([]toolschema.ToolSchema, 0, len(tools))
	for i, tool := range tools {
		schema, err := normalizeTool(compiler, tool)
		if err != nil {
			return nil, fmt.Errorf("tools[%d]: %w", i, err)
		}
		out = append(out, schema)
	}
	return out, nil
}

func normalizeTool(compiler *toolschema.Compiler, tool any) (toolschema.ToolSchema, error) {
	switch t := tool.(type) {
	case toolschema.ToolSchema:
		return t, nil
	case *orderedmap.OrderedMap, orderedmap.OrderedMap:
		om, ok := jsonvalue.Object(t)
		if !ok {
			return nil, fmt.Errorf("%w: nil tool", ErrToolValidation)
		}
		return normalizeTool(compiler, jsonvalue.Entries(om))
	case map[string]any:
		raw, ok := t[callableKey]
		if !ok {
			return toolschema.ToolSchema(t), nil
		}
		desc, ok := jsonvalue.Plain(raw).(map[string]any)
		if !ok || desc == nil || len(t) != 1 {
			return nil, fmt.Errorf("%w: %q must be the only key and hold a mapping", ErrToolValidation, callableKey)
		}
		fn, err := toolschema.DecodeCallable(desc)
		if err != nil {
			return nil, err
		}
		return compiler.Compile(fn)
	case toolschema.Callable:
		return compiler.Compile(t)
	case *toolschema.Callable:
		if t == nil {
			return nil, fmt.Errorf("%w: nil callable", ErrToolValidation)
		}
		return compiler.Compile(*t)
	case mcp.Tool:
		return toolschema.FromMCPTool(t), nil
	case *mcp.Tool:
		if t == nil {
			return nil, fmt.Errorf("%w: nil tool", ErrToolValidation)
		}
		return toolschema.FromMCPTool(*t), nil
	case model.Tool:
		return toolschema.FromModelTool(t), nil
	case *model.Tool:
		if t == nil {
			return nil, fmt.Errorf("%w: nil tool", ErrToolValidation)
		}
		return toolschema.FromModelTool(*t), nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrToolValidation, tool)
	}
}

// normalizeDocuments checks that every document is a mapping. The title
// and text keys are the template's concern and are not enforced here.
// Ordered documents keep their key order.
func normalizeDocuments(docs []any) ([]any, error) {
	if docs == nil {
		return nil, nil
	}
	out := make([]any, 0, len(docs))
	for i, doc := range docs {
		switch d := doc.(type) {
		case map[string]any:
			out = append(out, d)
		default:
			om, ok := jsonvalue.Object(doc)
			if !ok {
				return nil, fmt.Errorf("%w: documents[%d] is %T", ErrDocumentValidation, i, doc)
			}
			out = append(out, om)
		}
	}
	return out, nil
}
