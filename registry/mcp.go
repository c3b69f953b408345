package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"k8s.io/klog/v2"

	"github.com/jonwraymond/chattemplate/internal/logging"
)

const jsonrpcVersion = "2.0"

// MCPRequest represents an incoming MCP JSON-RPC request.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r MCPRequest) IsNotification() bool {
	return r.ID == nil && strings.HasPrefix(r.Method, "notifications/")
}

// MCPResponse represents an MCP JSON-RPC response.
type MCPResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *MCPError `json:"error,omitempty"`
}

// MCPError is a JSON-RPC error object.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func errorResponse(id any, code int, msg string) MCPResponse {
	return MCPResponse{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Error:   &MCPError{Code: code, Message: msg},
	}
}

// HandleRequest processes an MCP request and returns a response.
func (r *Registry) HandleRequest(ctx context.Context, req MCPRequest) MCPResponse {
	logger := klog.FromContext(ctx).WithName("registry.HandleRequest")
	logger.V(logging.DEBUG).Info("request", "method", req.Method, "id", req.ID)

	if req.JSONRPC != jsonrpcVersion {
		return errorResponse(req.ID, ErrCodeInvalidRequest, fmt.Sprintf("unsupported jsonrpc version %q", req.JSONRPC))
	}

	switch req.Method {
	case "initialize":
		return r.handleInitialize(req.ID)
	case "ping":
		return MCPResponse{JSONRPC: jsonrpcVersion, ID: req.ID, Result: map[string]any{}}
	case "tools/list":
		return r.handleToolsList(ctx, req.ID)
	case "tools/call":
		return r.handleToolsCall(ctx, req.ID, req.Params)
	default:
		return errorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("method %s not found", req.Method))
	}
}

func (r *Registry) handleInitialize(id any) MCPResponse {
	return MCPResponse{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Result: map[string]any{
			"protocolVersion": model.MCPVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    r.config.ServerInfo.Name,
				"version": r.config.ServerInfo.Version,
			},
		},
	}
}

func (r *Registry) handleToolsList(ctx context.Context, id any) MCPResponse {
	tools, err := r.ListAll(ctx)
	if err != nil {
		return errorResponse(id, ErrCodeInternal, err.Error())
	}

	mcpTools := make([]map[string]any, 0, len(tools))
	for _, tool := range tools {
		mcpTools = append(mcpTools, toMCPTool(tool.Tool))
	}
	return MCPResponse{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Result:  map[string]any{"tools": mcpTools},
	}
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (r *Registry) handleToolsCall(ctx context.Context, id any, params json.RawMessage) MCPResponse {
	var callParams toolsCallParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return errorResponse(id, ErrCodeInvalidParams, err.Error())
	}
	if callParams.Name == "" {
		return errorResponse(id, ErrCodeInvalidParams, "tool name is required")
	}

	result, err := r.Execute(ctx, callParams.Name, callParams.Arguments)
	if err != nil {
		code := ErrCodeToolExecFailed
		switch {
		case errors.Is(err, ErrToolNotFound):
			code = ErrCodeToolNotFound
		case errors.Is(err, ErrInvalidRequest):
			code = ErrCodeInvalidParams
		}
		klog.FromContext(ctx).WithName("registry.HandleRequest").
			V(logging.VERBOSE).Info("tool call failed", "tool", callParams.Name, "err", err.Error())
		return errorResponse(id, code, err.Error())
	}

	callResult, err := toCallToolResult(result)
	if err != nil {
		return errorResponse(id, ErrCodeInternal, err.Error())
	}
	return MCPResponse{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Result:  callResult,
	}
}

// toCallToolResult carries result both as JSON text content and as
// structured content.
func toCallToolResult(result any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	var structured any
	if err := json.Unmarshal(data, &structured); err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	out := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
	if _, ok := structured.(map[string]any); ok {
		out.StructuredContent = json.RawMessage(data)
	}
	return out, nil
}

func toMCPTool(tool mcp.Tool) map[string]any {
	out := map[string]any{
		"name":        tool.Name,
		"description": tool.Description,
		"inputSchema": tool.InputSchema,
	}
	if tool.OutputSchema != nil {
		out["outputSchema"] = tool.OutputSchema
	}
	return out
}
