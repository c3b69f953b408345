package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonwraymond/toolfoundation/model"

	"github.com/jonwraymond/chattemplate/preprocessing"
)

// Config configures a Registry.
type Config struct {
	ServerInfo ServerInfo

	// Processor serves the built-in tools. If nil, uses preprocessing.Default.
	Processor *preprocessing.Processor

	// Namespace is applied to the built-in tools. Default: "chattemplate".
	Namespace string
}

// ServerInfo describes this MCP server for initialize response.
type ServerInfo struct {
	Name    string
	Version string
}

// DefaultNamespace is the namespace of the built-in tools.
const DefaultNamespace = "chattemplate"

type localTool struct {
	tool    model.Tool
	handler ToolHandler
}

// Registry is an MCP tool registry serving chat-template rendering and
// model template resolution, plus any locally registered tools.
type Registry struct {
	mu     sync.RWMutex
	config Config

	processor *preprocessing.Processor
	tools     map[string]localTool
	order     []string
}

// New creates a Registry with the built-in tools registered.
func New(cfg Config) (*Registry, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.ServerInfo.Name == "" {
		cfg.ServerInfo.Name = "chattemplate"
	}
	r := &Registry{
		config:    cfg,
		processor: cfg.Processor,
		tools:     make(map[string]localTool),
	}
	if r.processor == nil {
		r.processor = preprocessing.Default
	}
	if err := r.registerBuiltins(); err != nil {
		return nil, err
	}
	return r, nil
}

// Processor returns the processor behind the built-in tools.
func (r *Registry) Processor() *preprocessing.Processor {
	return r.processor
}

// RegisterLocal registers a tool with a local execution handler. A tool
// with the same name replaces the earlier one.
func (r *Registry) RegisterLocal(tool model.Tool, handler ToolHandler) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if handler == nil {
		return fmt.Errorf("%w: %s", ErrHandlerNotFound, tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; !exists {
		r.order = append(r.order, tool.Name)
	}
	r.tools[tool.Name] = localTool{tool: tool, handler: handler}
	return nil
}

// RegisterLocalFunc is a convenience for inline tool definition.
func (r *Registry) RegisterLocalFunc(
	name, description string,
	inputSchema map[string]any,
	handler ToolHandler,
	opts ...LocalToolOption,
) error {
	cfg := applyLocalToolOptions(opts)
	tool := buildLocalTool(name, description, inputSchema, cfg)
	return r.RegisterLocal(tool, handler)
}

// ListAll returns all registered tools in registration order.
func (r *Registry) ListAll(ctx context.Context) ([]model.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]model.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name].tool)
	}
	return tools, nil
}

// GetTool returns a tool by name.
func (r *Registry) GetTool(ctx context.Context, name string) (model.Tool, error) {
	r.mu.RLock()
	lt, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return model.Tool{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return lt.tool, nil
}

// Execute runs a tool by name with the given arguments.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	lt, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	result, err := lt.handler(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExecutionFailed, name, err)
	}
	return result, nil
}
