package chattemplate

import (
	"context"
	"testing"

	"github.com/iancoleman/orderedmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/chattemplate/toolschema"
)

func TestToJSON(t *testing.T) {
	ordered := orderedmap.New()
	ordered.Set("z", 1)
	ordered.Set("a", []any{true, nil})

	tests := []struct {
		name string
		in   any
		opts JSONOptions
		want string
	}{
		{"string", "hi", JSONOptions{}, `"hi"`},
		{"no html escaping", "<a href='x'>&</a>", JSONOptions{}, `"<a href='x'>&</a>"`},
		{"control characters", "a\nb\t\x01", JSONOptions{}, `"a\nb\t\u0001"`},
		{"unicode kept", "café 😀", JSONOptions{}, `"café 😀"`},
		{"ensure ascii", "café 😀", JSONOptions{EnsureASCII: true}, `"caf\u00e9 \ud83d\ude00"`},
		{"integral float", 2.0, JSONOptions{}, `2.0`},
		{"large float", 1e16, JSONOptions{}, `1e+16`},
		{"small float", 0.00001, JSONOptions{}, `1e-05`},
		{"fraction", 2.5, JSONOptions{}, `2.5`},
		{"int", 7, JSONOptions{}, `7`},
		{"nil", nil, JSONOptions{}, `null`},
		{"list", []any{1, "a", false}, JSONOptions{}, `[1, "a", false]`},
		{"string slice", []string{"integer", "null"}, JSONOptions{}, `["integer", "null"]`},
		{"empty containers", map[string]any{"a": []any{}, "b": map[string]any{}}, JSONOptions{}, `{"a": [], "b": {}}`},
		{
			"schema key order",
			map[string]any{"required": []any{"x"}, "type": "object", "properties": map[string]any{}},
			JSONOptions{},
			`{"type": "object", "properties": {}, "required": ["x"]}`,
		},
		{
			"sort keys",
			map[string]any{"type": "object", "properties": map[string]any{}},
			JSONOptions{SortKeys: true},
			`{"properties": {}, "type": "object"}`,
		},
		{"ordered map", ordered, JSONOptions{}, `{"z": 1, "a": [true, null]}`},
		{
			"custom separators",
			map[string]any{"a": 1, "b": []any{1, 2}},
			JSONOptions{ItemSeparator: ",", KeySeparator: ":"},
			`{"a":1,"b":[1,2]}`,
		},
		{
			"indent",
			map[string]any{"type": "function", "function": map[string]any{"name": "f"}},
			JSONOptions{Indented: true, Indent: 2},
			"{\n  \"type\": \"function\",\n  \"function\": {\n    \"name\": \"f\"\n  }\n}",
		},
		{"span", Span{Start: 1, End: 3}, JSONOptions{}, `[1, 3]`},
		{"message", NewMessage("user", "hi").With("name", "bob"), JSONOptions{}, `{"role": "user", "content": "hi", "name": "bob"}`},
		{"empty message", Message{}, JSONOptions{}, `{}`},
		{"struct", struct {
			B int    `json:"b"`
			A string `json:"a"`
		}{B: 1, A: "x"}, JSONOptions{}, `{"b": 1, "a": "x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToJSON(tt.in, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToJSON_ToolSchema(t *testing.T) {
	schema, err := toolschema.Compile(toolschema.Callable{
		Name:   "echo",
		Doc:    "Echo text.\n\nArgs:\n    text: What to echo.",
		Params: []toolschema.Param{{Name: "text", Annotation: "str"}},
	})
	require.NoError(t, err)

	got, err := ToJSON(schema, JSONOptions{})
	require.NoError(t, err)
	assert.Equal(t,
		`{"type": "function", "function": {"name": "echo", "description": "Echo text.", "parameters": {"type": "object", "properties": {"text": {"type": "string", "description": "What to echo."}}, "required": ["text"]}}}`,
		got)
}

func TestTojsonFilter(t *testing.T) {
	c := newTestCache(t)
	vars := Vars{
		Messages: []Message{NewMessage("user", "é<")},
		Extra: map[string]any{
			"data": map[string]any{"b": 1, "a": "é"},
		},
	}

	tests := []struct {
		name string
		tpl  string
		want string
	}{
		{"default", `{{ messages[0].content|tojson }}`, `"é<"`},
		{"positional indent", `{{ data|tojson(1) }}`, "{\n \"a\": \"é\",\n \"b\": 1\n}"},
		{"keyword indent", `{{ data|tojson(indent=1) }}`, "{\n \"a\": \"é\",\n \"b\": 1\n}"},
		{"ensure_ascii off", `{{ data|tojson(ensure_ascii=False) }}`, `{"a": "é", "b": 1}`},
		{
			"keyword options",
			`{{ data|tojson(ensure_ascii=True, sort_keys=True, separators=(",", ":")) }}`,
			`{"a":"\u00e9","b":1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := c.Compile(tt.tpl)
			require.NoError(t, err)
			out, err := tpl.Render(context.Background(), vars, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Text)
		})
	}
}

func TestTojsonFilter_KeepsKeyOrder(t *testing.T) {
	c := newTestCache(t)

	var decoded Message
	require.NoError(t, decoded.UnmarshalJSON([]byte(`{"role": "user", "content": "hi", "meta": {"z": 1, "a": 2}}`)))

	schema, err := toolschema.Compile(toolschema.Callable{
		Name: "pick",
		Doc:  "Pick one.\n\nArgs:\n    zeta: Last letter.\n    alpha: First letter.",
		Params: []toolschema.Param{
			{Name: "zeta", Annotation: "str"},
			{Name: "alpha", Annotation: "int"},
		},
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		tpl  string
		vars Vars
		want string
	}{
		{
			name: "constructed message",
			tpl:  `{{ messages[0]|tojson }}`,
			vars: Vars{Messages: []Message{NewMessage("user", "hi")}},
			want: `{"role": "user", "content": "hi"}`,
		},
		{
			name: "decoded message",
			tpl:  `{{ messages[-1]|tojson }}`,
			vars: Vars{Messages: []Message{decoded}},
			want: `{"role": "user", "content": "hi", "meta": {"z": 1, "a": 2}}`,
		},
		{
			name: "tool properties in declaration order",
			tpl:  `{{ tools[0].function.parameters.properties|tojson }}`,
			vars: Vars{Tools: []toolschema.ToolSchema{schema}},
			want: `{"zeta": {"type": "string", "description": "Last letter."}, "alpha": {"type": "integer", "description": "First letter."}}`,
		},
		{
			name: "items follow key order",
			tpl:  `{% for k, v in messages[0]|items %}{{ k }};{% endfor %}{% for k in messages[0].keys() %}{{ k }};{% endfor %}`,
			vars: Vars{Messages: []Message{decoded}},
			want: `role;content;meta;role;content;meta;`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := c.Compile(tt.tpl)
			require.NoError(t, err)
			out, err := tpl.Render(context.Background(), tt.vars, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Text)
		})
	}
}

func TestTojsonFilter_BadOptions(t *testing.T) {
	c := newTestCache(t)
	for name, text := range map[string]string{
		"indent":     `{{ data|tojson(indent="wide") }}`,
		"separators": `{{ data|tojson(separators=",") }}`,
		"unknown":    `{{ data|tojson(colour=True) }}`,
	} {
		t.Run(name, func(t *testing.T) {
			tpl, err := c.Compile(text)
			require.NoError(t, err)
			_, err = tpl.Render(context.Background(), Vars{Extra: map[string]any{"data": 1}}, false)
			assert.ErrorIs(t, err, ErrTemplateExecution)
		})
	}
}
