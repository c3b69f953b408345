package tooldoc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

var choicesRe = mustCompile(`\(choices:\s*(.*?)\)\s*$`, regexp2.IgnoreCase|regexp2.Singleline)

// SplitChoices extracts a trailing "(choices: [...])" annotation from an
// argument description. It returns the parsed choices, the description with
// the annotation removed, and whether an annotation was found.
func SplitChoices(desc string) (choices []any, rest string, ok bool, err error) {
	m, err := choicesRe.FindStringMatch(desc)
	if err != nil {
		return nil, desc, false, fmt.Errorf("%w: %v", ErrMatchTimeout, err)
	}
	if m == nil {
		return nil, desc, false, nil
	}

	var raw any
	if err := json.Unmarshal([]byte(m.GroupByNumber(1).String()), &raw); err != nil {
		return nil, desc, false, fmt.Errorf("%w: %v", ErrInvalidChoices, err)
	}
	choices, err = choicesFromAny(raw)
	if err != nil {
		return nil, desc, false, err
	}

	// regexp2 reports rune offsets.
	rest = strings.TrimSpace(string([]rune(desc)[:m.Index]))
	return choices, rest, true, nil
}

func choicesFromAny(v any) ([]any, error) {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			if s, ok := item.(string); ok {
				out[i] = strings.TrimSpace(s)
				continue
			}
			out[i] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected a list, got %T", ErrInvalidChoices, v)
	}
}
