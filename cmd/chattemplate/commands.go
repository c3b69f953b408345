package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/jonwraymond/chattemplate/internal/logging"
	"github.com/jonwraymond/chattemplate/preprocessing"
	"github.com/jonwraymond/chattemplate/registry"
	"github.com/jonwraymond/chattemplate/toolschema"
)

func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

// readInput reads path, or stdin for "-".
func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(a.env.stdin)
	}
	return os.ReadFile(path)
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.env.stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runRender(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("render")
	file := fs.StringP("file", "f", "-", "request document (- for stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := a.readInput(*file)
	if err != nil {
		return err
	}
	var req preprocessing.RenderRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	resp, err := a.processor.RenderChatTemplate(ctx, &req)
	if err != nil {
		return err
	}
	return a.writeJSON(resp)
}

func runFetch(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("fetch")
	model := fs.String("model", "", "model id")
	revision := fs.String("revision", "", "model revision (default main)")
	chatTemplate := fs.String("chat-template", "", "template override or named template")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := preprocessing.FetchRequest{Model: *model, Revision: *revision}
	if fs.Changed("chat-template") {
		req.ChatTemplate = chatTemplate
	}
	resp, err := a.processor.FetchChatTemplate(ctx, req)
	if err != nil {
		return err
	}
	return a.writeJSON(resp)
}

func runSchema(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("schema")
	file := fs.StringP("file", "f", "-", "callable descriptor (- for stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data, err := a.readInput(*file)
	if err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid callable: %w", err)
	}
	fn, err := toolschema.DecodeCallable(raw)
	if err != nil {
		return err
	}
	schema, err := toolschema.Compile(fn)
	if err != nil {
		return err
	}
	return a.writeJSON(schema)
}

func runServe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("serve")
	addr := fs.String("http", "", "listen address for HTTP (/mcp) and SSE (/sse); stdio when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg, err := registry.New(registry.Config{
		ServerInfo: registry.ServerInfo{Name: "chattemplate", Version: version},
		Processor:  a.processor,
	})
	if err != nil {
		return err
	}
	if *addr == "" {
		return registry.Serve(ctx, reg, a.env.stdin, a.env.stdout)
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", registry.ServeHTTP(reg))
	mux.Handle("/sse", registry.ServeSSE(reg))
	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	klog.FromContext(ctx).V(logging.DEFAULT).Info("serving MCP over HTTP", "addr", *addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
