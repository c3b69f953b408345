package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &out, noEnv)
	return out.String(), err
}

func TestRun_Render(t *testing.T) {
	req := `{
		"chat_template": "{% for m in messages %}{{ m.role }}: {{ m.content }}\n{% endfor %}",
		"messages": [{"role": "user", "content": "Hi"}]
	}`
	out, err := runCLI(t, req, "render")
	require.NoError(t, err)

	var resp struct {
		RenderedChats     []string `json:"rendered_chats"`
		GenerationIndices [][]any  `json:"generation_indices"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"user: Hi\n"}, resp.RenderedChats)
	assert.Equal(t, [][]any{{}}, resp.GenerationIndices)
}

func TestRun_RenderFromFile(t *testing.T) {
	path := writeFile(t, "request.json", `{
		"chat_template": "{% for m in messages %}<{{ m.content }}>{% endfor %}",
		"conversations": [[{"role": "user", "content": "a"}], [{"role": "user", "content": "b"}]]
	}`)
	out, err := runCLI(t, "", "render", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"<a>"`)
	assert.Contains(t, out, `"<b>"`)
}

func TestRun_RenderInvalid(t *testing.T) {
	_, err := runCLI(t, "{", "render")
	assert.ErrorContains(t, err, "invalid request")

	_, err = runCLI(t, `{"messages": [{"role": "user", "content": "Hi"}]}`, "render")
	assert.Error(t, err, "a request needs a template or a model")
}

func TestRun_Schema(t *testing.T) {
	path := writeFile(t, "callable.json", `{
		"name": "get_weather",
		"doc": "Get the weather.\n\nArgs:\n    city: The city.",
		"params": [{"name": "city", "annotation": "str"}]
	}`)
	out, err := runCLI(t, "", "schema", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "get_weather"`)
	assert.Contains(t, out, `"description": "The city."`)
}

func TestRun_SchemaInvalid(t *testing.T) {
	_, err := runCLI(t, `{"doc": "no name"}`, "schema")
	assert.Error(t, err)
}

func TestRun_Fetch(t *testing.T) {
	hub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/org/model/resolve/main/tokenizer_config.json" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Bearer hf_cli", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"chat_template": "{{ bos_token }}", "bos_token": "<s>", "model_max_length": 4096}`))
	}))
	defer hub.Close()

	out, err := runCLI(t, "", "--hub-endpoint", hub.URL, "--hub-token", "hf_cli", "fetch", "--model", "org/model")
	require.NoError(t, err)

	var resp struct {
		ChatTemplate       string         `json:"chat_template"`
		ChatTemplateKWArgs map[string]any `json:"chat_template_kwargs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "{{ bos_token }}", resp.ChatTemplate)
	assert.Equal(t, map[string]any{"bos_token": "<s>"}, resp.ChatTemplateKWArgs)
}

func TestRun_ServeStdio(t *testing.T) {
	in := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n"
	out, err := runCLI(t, in, "serve")
	require.NoError(t, err)
	assert.Contains(t, out, "render_chat_template")
	assert.Contains(t, out, "compile_tool_schema")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing command", nil, "missing command"},
		{"unknown command", []string{"bogus"}, `unknown command "bogus"`},
		{"bad capacity", []string{"--cache-capacity", "-1", "render"}, "cache.capacity"},
		{"bad endpoint", []string{"--hub-endpoint", "nowhere", "render"}, "hub.endpoint"},
		{"unknown flag", []string{"--nope"}, "unknown flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, "", tt.args...)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRun_ConfigFile(t *testing.T) {
	path := writeFile(t, "config.toml", "[cache]\ncapacity = -5\n")
	_, err := runCLI(t, "", "--config", path, "render")
	assert.ErrorContains(t, err, "cache.capacity")

	_, err = runCLI(t, "", "--config", path, "--cache-capacity", "4", "schema", "-f", writeFile(t, "c.json", `{"name": "f", "doc": "Do f."}`))
	assert.NoError(t, err, "flags override the config file")
}
