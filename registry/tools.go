package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/chattemplate/preprocessing"
	"github.com/jonwraymond/chattemplate/toolschema"
)

// ToolHandler executes a local tool with the arguments of a tools/call
// request and returns a JSON-marshalable result.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// LocalToolOption configures local tool registration.
type LocalToolOption func(*localToolConfig)

type localToolConfig struct {
	namespace string
	tags      []string
	version   string
}

// WithNamespace sets the namespace for a local tool.
func WithNamespace(ns string) LocalToolOption {
	return func(c *localToolConfig) { c.namespace = ns }
}

// WithTags sets the tags for a local tool.
func WithTags(tags ...string) LocalToolOption {
	return func(c *localToolConfig) { c.tags = tags }
}

// WithVersion sets the version for a local tool.
func WithVersion(v string) LocalToolOption {
	return func(c *localToolConfig) { c.version = v }
}

func applyLocalToolOptions(opts []LocalToolOption) localToolConfig {
	var cfg localToolConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func buildLocalTool(name, description string, inputSchema map[string]any, cfg localToolConfig) model.Tool {
	return model.Tool{
		Tool: mcp.Tool{
			Name:        name,
			Description: description,
			InputSchema: inputSchema,
		},
		Namespace: cfg.namespace,
		Version:   cfg.version,
		Tags:      model.NormalizeTags(cfg.tags),
	}
}

// Built-in tool names.
const (
	ToolRenderChatTemplate = "render_chat_template"
	ToolFetchChatTemplate  = "fetch_chat_template"
	ToolCompileToolSchema  = "compile_tool_schema"
)

var renderCallable = toolschema.Callable{
	Name: ToolRenderChatTemplate,
	Doc: `Render chat conversations through a chat template.

Args:
    conversations: Conversations to render, each a list of messages with role and content.
    messages: A single conversation, rendered as the only conversation.
    chat_template: Template source. Required unless model is given.
    model: Model whose chat template and special tokens are used when chat_template is empty.
    revision: Model revision.
    token: Hub access token for private models.
    tools: Tool schemas, or callable descriptors under a "callable" key.
    documents: Documents with title and text.
    return_assistant_tokens_mask: Return the character spans of generation blocks.
    continue_final_message: End each chat inside its final message so generation continues it.
    add_generation_prompt: Append the header of a new assistant turn.
    chat_template_kwargs: Extra template variables.

Returns:
    The rendered chats and their generation spans.`,
	Params: []toolschema.Param{
		{Name: "conversations", Annotation: "list[list[dict[str, Any]]]", HasDefault: true},
		{Name: "messages", Annotation: "list[dict[str, Any]]", HasDefault: true},
		{Name: "chat_template", Annotation: "str", HasDefault: true},
		{Name: "model", Annotation: "str", HasDefault: true},
		{Name: "revision", Annotation: "str", HasDefault: true},
		{Name: "token", Annotation: "str", HasDefault: true},
		{Name: "tools", Annotation: "list[dict[str, Any]]", HasDefault: true},
		{Name: "documents", Annotation: "list[dict[str, Any]]", HasDefault: true},
		{Name: "return_assistant_tokens_mask", Annotation: "bool", HasDefault: true, Default: false},
		{Name: "continue_final_message", Annotation: "bool", HasDefault: true, Default: false},
		{Name: "add_generation_prompt", Annotation: "bool", HasDefault: true, Default: false},
		{Name: "chat_template_kwargs", Annotation: "dict[str, Any]", HasDefault: true},
	},
	ReturnAnnotation: "dict[str, Any]",
}

var fetchCallable = toolschema.Callable{
	Name: ToolFetchChatTemplate,
	Doc: `Fetch a model's chat template and special-token variables from the model hub.

Args:
    model: Model id, such as an organization/name pair.
    chat_template: Template override, or the name of one of the model's named templates.
    tools: Tool schemas; selects the model's tool_use template when it has one.
    revision: Model revision.
    token: Hub access token for private models.

Returns:
    The chat template and its keyword arguments.`,
	Params: []toolschema.Param{
		{Name: "model", Annotation: "str"},
		{Name: "chat_template", Annotation: "Optional[str]", HasDefault: true},
		{Name: "tools", Annotation: "list[dict[str, Any]]", HasDefault: true},
		{Name: "revision", Annotation: "str", HasDefault: true},
		{Name: "token", Annotation: "str", HasDefault: true},
	},
	ReturnAnnotation: "dict[str, Any]",
}

var compileCallable = toolschema.Callable{
	Name: ToolCompileToolSchema,
	Doc: `Compile a callable descriptor into a function tool schema.

Args:
    callable: Descriptor with name, doc, params and returns.

Returns:
    The function tool schema.`,
	Params: []toolschema.Param{
		{Name: "callable", Annotation: "dict[str, Any]"},
	},
	ReturnAnnotation: "dict[str, Any]",
}

func (r *Registry) registerBuiltins() error {
	builtins := []struct {
		callable toolschema.Callable
		handler  ToolHandler
	}{
		{renderCallable, r.handleRender},
		{fetchCallable, r.handleFetch},
		{compileCallable, handleCompile},
	}
	for _, b := range builtins {
		schema, err := toolschema.Compile(b.callable)
		if err != nil {
			return fmt.Errorf("compile %s: %w", b.callable.Name, err)
		}
		tool, err := toolschema.ToModelTool(schema, r.config.Namespace)
		if err != nil {
			return err
		}
		tool.Version = r.config.ServerInfo.Version
		if err := r.RegisterLocal(tool, b.handler); err != nil {
			return err
		}
	}
	return nil
}

// decodeArgs converts tool arguments into a request document.
func decodeArgs(args map[string]any, out any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func (r *Registry) handleRender(ctx context.Context, args map[string]any) (any, error) {
	var req preprocessing.RenderRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return r.processor.RenderChatTemplate(ctx, &req)
}

func (r *Registry) handleFetch(ctx context.Context, args map[string]any) (any, error) {
	var req preprocessing.FetchRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return r.processor.FetchChatTemplate(ctx, req)
}

func handleCompile(_ context.Context, args map[string]any) (any, error) {
	raw, ok := args["callable"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: callable must be an object", ErrInvalidRequest)
	}
	fn, err := toolschema.DecodeCallable(raw)
	if err != nil {
		return nil, err
	}
	return toolschema.Compile(fn)
}
