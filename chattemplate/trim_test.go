package chattemplate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimToFinalMessage(t *testing.T) {
	tests := []struct {
		name     string
		rendered string
		content  any
		want     string
	}{
		{
			name:     "template trailing space dropped",
			rendered: "User: Hi\nAssistant: Hello there ",
			content:  "Hello there",
			want:     "User: Hi\nAssistant: Hello there",
		},
		{
			name:     "message trailing whitespace preserved",
			rendered: "User: Hi\nAssistant: Hello there \n<|im_end|>\n",
			content:  "Hello there ",
			want:     "User: Hi\nAssistant: Hello there ",
		},
		{
			name:     "fallback to stripped text",
			rendered: "User: Hi\nAssistant: Hello there<|im_end|>\n",
			content:  "  Hello there  \n",
			want:     "User: Hi\nAssistant: Hello there",
		},
		{
			name:     "unicode trailing whitespace preserved",
			rendered: "A: こんにちは\u3000<eos>",
			content:  "こんにちは\u3000",
			want:     "A: こんにちは\u3000",
		},
		{
			name:     "unicode leading whitespace",
			rendered: "A:\u00a0Hello<eos>",
			content:  "\u00a0Hello",
			want:     "A:\u00a0Hello",
		},
		{
			name:     "last occurrence wins",
			rendered: "ok then ok<eos>",
			content:  "ok",
			want:     "ok then ok",
		},
		{
			name:     "last text block",
			rendered: "A: look at this<eos>",
			content: []any{
				map[string]any{"type": "text", "text": "ignored"},
				map[string]any{"type": "text", "text": "look at this"},
				map[string]any{"type": "image"},
			},
			want: "A: look at this",
		},
		{
			name:     "ordered text block",
			rendered: "A: ordered<eos>",
			content:  []any{NewMessage("user", nil).With("type", "text").With("text", "ordered").Ordered()},
			want:     "A: ordered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TrimToFinalMessage(tt.rendered, NewMessage("assistant", tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrimToFinalMessage_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content any
	}{
		{"not found", "Goodbye"},
		{"no text block", []any{map[string]any{"type": "image"}}},
		{"not text", 42},
		{"missing content", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TrimToFinalMessage("User: Hi\nAssistant: Hello", NewMessage("assistant", tt.content))
			assert.ErrorIs(t, err, ErrContinuation)
		})
	}
}
