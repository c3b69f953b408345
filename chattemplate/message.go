package chattemplate

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/iancoleman/orderedmap"

	"github.com/jonwraymond/chattemplate/internal/jsonvalue"
)

// Message is one conversation turn: at least "role" and "content", plus
// any extra keys the template reads (tool_calls, name, ...). Keys keep the
// order they were set in, which is the order templates iterate and
// serialize them in.
//
// Message values share their storage; use Clone for an independent copy.
type Message struct {
	fields *orderedmap.OrderedMap
}

// NewMessage returns a message holding role and content, in that order.
func NewMessage(role string, content any) Message {
	return Message{}.With("role", role).With("content", content)
}

// MessageFromMap copies m into a message. Since a Go map has no order,
// "role" and "content" come first and the remaining keys follow sorted.
func MessageFromMap(m map[string]any) Message {
	fields := jsonvalue.NewObject()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareMessageKeys)
	for _, k := range keys {
		fields.Set(k, m[k])
	}
	return Message{fields: fields}
}

// MessageFromOrdered wraps om, keeping its key order. om is not copied.
func MessageFromOrdered(om *orderedmap.OrderedMap) Message {
	return Message{fields: om}
}

func compareMessageKeys(a, b string) int {
	rank := func(k string) int {
		switch k {
		case "role":
			return 0
		case "content":
			return 1
		default:
			return 2
		}
	}
	if ra, rb := rank(a), rank(b); ra != rb {
		return ra - rb
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// With sets key to v and returns m. A zero Message gets fresh storage.
func (m Message) With(key string, v any) Message {
	if m.fields == nil {
		m.fields = jsonvalue.NewObject()
	}
	m.fields.Set(key, v)
	return m
}

// Get returns the value at key.
func (m Message) Get(key string) (any, bool) {
	if m.fields == nil {
		return nil, false
	}
	return m.fields.Get(key)
}

// Keys returns the message keys in order.
func (m Message) Keys() []string {
	if m.fields == nil {
		return nil
	}
	return slices.Clone(m.fields.Keys())
}

// Len returns the number of keys.
func (m Message) Len() int {
	if m.fields == nil {
		return 0
	}
	return len(m.fields.Keys())
}

// Role returns the message role.
func (m Message) Role() string {
	role, _ := m.Get("role")
	s, _ := role.(string)
	return s
}

// Content returns the raw content: a string, a list of content blocks, or
// nil.
func (m Message) Content() any {
	content, _ := m.Get("content")
	return content
}

// Clone returns a copy of m with its own top-level storage.
func (m Message) Clone() Message {
	out := Message{}
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		out = out.With(k, v)
	}
	return out
}

// Ordered returns the underlying ordered object, or nil for a zero Message.
func (m Message) Ordered() *orderedmap.OrderedMap {
	return m.fields
}

// MarshalJSON writes the message keys in order.
func (m Message) MarshalJSON() ([]byte, error) {
	if m.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.fields)
}

// UnmarshalJSON reads a JSON object, keeping its key order.
func (m *Message) UnmarshalJSON(data []byte) error {
	om, err := jsonvalue.UnmarshalObject(data)
	if err != nil {
		return fmt.Errorf("message: %w", err)
	}
	m.fields = om
	return nil
}

// ConversationLike is anything that can list its messages.
type ConversationLike interface {
	Messages() []Message
}

// Conversation is an ordered list of messages.
type Conversation []Message

// Messages returns c.
func (c Conversation) Messages() []Message {
	return c
}

// AsConversation normalizes the accepted conversation shapes: a
// ConversationLike, a []Message, a []map[string]any, or a []any of
// mappings. Ordered mappings keep their key order.
func AsConversation(v any) (Conversation, error) {
	switch t := v.(type) {
	case Conversation:
		return t, nil
	case ConversationLike:
		return Conversation(t.Messages()), nil
	case []Message:
		return Conversation(t), nil
	case []map[string]any:
		conv := make(Conversation, len(t))
		for i, m := range t {
			conv[i] = MessageFromMap(m)
		}
		return conv, nil
	case []*orderedmap.OrderedMap:
		conv := make(Conversation, len(t))
		for i, m := range t {
			if m == nil {
				return nil, fmt.Errorf("message %d is nil", i)
			}
			conv[i] = MessageFromOrdered(m)
		}
		return conv, nil
	case []any:
		conv := make(Conversation, len(t))
		for i, item := range t {
			m, err := asMessage(item)
			if err != nil {
				return nil, fmt.Errorf("message %d: %w", i, err)
			}
			conv[i] = m
		}
		return conv, nil
	default:
		return nil, fmt.Errorf("unsupported conversation type %T", v)
	}
}

func asMessage(v any) (Message, error) {
	switch m := v.(type) {
	case Message:
		return m, nil
	case map[string]any:
		return MessageFromMap(m), nil
	}
	if om, ok := jsonvalue.Object(v); ok {
		return MessageFromOrdered(om), nil
	}
	return Message{}, fmt.Errorf("%T is not a mapping", v)
}

// Span is a half-open [Start, End) range of character offsets into a
// rendered conversation.
type Span struct {
	Start int
	End   int
}

// MarshalJSON encodes s as a two-element array.
func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Start, s.End})
}

// UnmarshalJSON decodes a two-element array.
func (s *Span) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	s.Start, s.End = pair[0], pair[1]
	return nil
}
