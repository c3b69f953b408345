package chattemplate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jonwraymond/chattemplate/internal/jsonvalue"
)

// TrimToFinalMessage cuts rendered so it ends at the final message's
// text, letting the model continue that message instead of starting a new
// turn.
//
// The last occurrence of the stripped final text is located. If the text
// that follows the match keeps the message's own trailing whitespace, the
// cut lands after that whitespace; otherwise it lands right after the
// stripped text.
func TrimToFinalMessage(rendered string, final Message) (string, error) {
	text, err := finalText(final.Content())
	if err != nil {
		return "", err
	}

	stripped := strings.TrimSpace(text)
	lstripped := strings.TrimLeftFunc(text, unicode.IsSpace)
	if !strings.Contains(rendered, stripped) {
		return "", fmt.Errorf("%w: the final message content was not found in the rendered chat", ErrContinuation)
	}

	loc := strings.LastIndex(rendered, stripped)
	if end := loc + len(lstripped); end <= len(rendered) && rendered[loc:end] == text {
		return rendered[:end], nil
	}
	return rendered[:loc+len(stripped)], nil
}

// finalText returns the text of content: the string itself, or the last
// block carrying "text" in a block list.
func finalText(content any) (string, error) {
	switch c := content.(type) {
	case string:
		return c, nil
	case []any:
		for i := len(c) - 1; i >= 0; i-- {
			if text, ok := blockText(c[i]); ok {
				return text, nil
			}
		}
		return "", fmt.Errorf("%w: the final message has no text block to continue", ErrContinuation)
	case []map[string]any:
		blocks := make([]any, len(c))
		for i, b := range c {
			blocks[i] = b
		}
		return finalText(blocks)
	default:
		return "", fmt.Errorf("%w: the final message content is %T, not text", ErrContinuation, content)
	}
}

// blockText returns the "text" string of a content block.
func blockText(v any) (string, bool) {
	var text any
	switch b := v.(type) {
	case map[string]any:
		text = b["text"]
	case Message:
		text, _ = b.Get("text")
	default:
		om, ok := jsonvalue.Object(v)
		if !ok {
			return "", false
		}
		text, _ = om.Get("text")
	}
	s, ok := text.(string)
	return s, ok
}
