// Package registry serves chat-template rendering over the Model Context
// Protocol.
//
// A Registry answers MCP JSON-RPC requests (initialize, ping, tools/list,
// tools/call) with three built-in tools backed by a preprocessing.Processor:
//
//   - render_chat_template: render conversations through a chat template
//   - fetch_chat_template: resolve a model's template and special tokens
//   - compile_tool_schema: compile a callable descriptor into a tool schema
//
// The input schemas of the built-in tools are themselves compiled by
// toolschema. Further tools can be added with RegisterLocal.
//
// Example usage:
//
//	reg, err := registry.New(registry.Config{
//	    ServerInfo: registry.ServerInfo{
//	        Name:    "chattemplate",
//	        Version: "0.1.0",
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.ServeStdio(ctx, reg)
//
// Transports: ServeStdio (line-delimited JSON-RPC), ServeHTTP (one JSON
// response per POST) and ServeSSE (one SSE message event per POST).
package registry
