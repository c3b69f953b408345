package registry

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"k8s.io/klog/v2"

	"github.com/jonwraymond/chattemplate/internal/logging"
)

// maxMessageSize bounds one line-delimited JSON-RPC message on stdio.
const maxMessageSize = 32 << 20

// ServeStdio runs the registry as an MCP server over stdin and stdout.
// Blocks until stdin is closed or context is cancelled.
func ServeStdio(ctx context.Context, r *Registry) error {
	return Serve(ctx, r, os.Stdin, os.Stdout)
}

// Serve reads line-delimited JSON-RPC requests from in and writes one
// response line per request to out. Notifications get no response.
func Serve(ctx context.Context, r *Registry, in io.Reader, out io.Writer) error {
	logger := klog.FromContext(ctx).WithName("registry.Serve")
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			logger.V(logging.VERBOSE).Info("invalid request line", "err", err.Error())
			if err := encoder.Encode(errorResponse(nil, ErrCodeParseError, err.Error())); err != nil {
				return fmt.Errorf("failed to encode error response: %w", err)
			}
			continue
		}
		if req.IsNotification() {
			continue
		}

		resp := r.HandleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

// ServeHTTP returns an http.Handler for streamable HTTP transport.
// Handles POST requests with JSON-RPC bodies, returns JSON responses.
func ServeHTTP(r *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var mcpReq MCPRequest
		if err := json.NewDecoder(req.Body).Decode(&mcpReq); err != nil {
			writeJSON(w, errorResponse(nil, ErrCodeParseError, err.Error()))
			return
		}
		if mcpReq.IsNotification() {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		writeJSON(w, r.HandleRequest(req.Context(), mcpReq))
	})
}

func writeJSON(w http.ResponseWriter, resp MCPResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// ServeSSE returns an http.Handler for Server-Sent Events transport.
// Each POSTed request is answered with a single SSE message event.
func ServeSSE(r *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		var mcpReq MCPRequest
		if err := json.NewDecoder(req.Body).Decode(&mcpReq); err != nil {
			writeSSEEvent(w, flusher, "error", errorResponse(nil, ErrCodeParseError, err.Error()))
			return
		}

		resp := r.HandleRequest(req.Context(), mcpReq)
		writeSSEEvent(w, flusher, "message", resp)
	})
}

func writeSSEEvent(w http.ResponseWriter, f http.Flusher, event string, data any) {
	jsonData, _ := json.Marshal(data)
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return
	}
	f.Flush()
}
