package chattemplate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Whitespace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello\n  world", "hello\n  world"},
		{"trim blocks", "{% if true %}\nX\n{% endif %}\n", "X\n"},
		{"crlf", "{% if true %}\r\nX{% endif %}", "X"},
		{"lstrip blocks", "a\n    {% if true %}\nb{% endif %}", "a\nb"},
		{"no lstrip after text", "a {% if true %}b{% endif %}", "a b"},
		{"variables untouched", "  {{ x }}\nb", "  v\nb"},
		{"plus keeps indent", "a\n  {%+ if true %}b{% endif %}", "a\n  b"},
		{"plus keeps newline", "{% if true +%}\nb{% endif %}", "\nb"},
		{"minus trims", "a  \n  {%- if true -%}  \n b{% endif %}", "ab"},
		{"comment removed", "A\n  {# note\nmore #}\nB", "A\nB"},
		{"raw section", "{% raw %}{{ x }}{% endraw %}", "{{ x }}"},
		{"trailing newline dropped", "x\n", "x"},
	}

	c := newTestCache(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := c.Compile(tt.in)
			require.NoError(t, err)
			out, err := tpl.Render(context.Background(), Vars{Extra: map[string]any{"x": "v"}}, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Text)
		})
	}
}

func TestHasGenerationBlock(t *testing.T) {
	assert.True(t, HasGenerationBlock("{% generation %}x{% endgeneration %}"))
	assert.True(t, HasGenerationBlock("{%- generation -%}x{% endgeneration %}"))
	assert.True(t, HasGenerationBlock("{%generation%}"))
	assert.False(t, HasGenerationBlock("{{ generation }}"))
	assert.False(t, HasGenerationBlock("{% generations %}"))
	assert.False(t, HasGenerationBlock("plain text"))
}
