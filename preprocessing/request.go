package preprocessing

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"github.com/jonwraymond/chattemplate/chattemplate"
	"github.com/jonwraymond/chattemplate/internal/jsonvalue"
)

// RenderRequest is the wire form of a render call.
//
// Keys other than the named fields are kept in Extra and exposed to the
// template as variables, like chat_template_kwargs.
type RenderRequest struct {
	Conversations []chattemplate.Conversation `json:"conversations,omitempty"`

	// Messages is a single conversation; it is rendered as the only entry
	// of Conversations.
	Messages chattemplate.Conversation `json:"messages,omitempty"`

	ChatTemplate string `json:"chat_template,omitempty"`

	// Model, Revision and Token resolve the template and special tokens
	// from the model registry when ChatTemplate is empty.
	Model    string `json:"model,omitempty"`
	Revision string `json:"revision,omitempty"`
	Token    string `json:"token,omitempty"`

	Tools     []any `json:"tools,omitempty"`
	Documents []any `json:"documents,omitempty"`

	ReturnAssistantTokensMask bool `json:"return_assistant_tokens_mask,omitempty"`
	ContinueFinalMessage      bool `json:"continue_final_message,omitempty"`
	AddGenerationPrompt       bool `json:"add_generation_prompt,omitempty"`

	ChatTemplateKWArgs map[string]any `json:"chat_template_kwargs,omitempty"`

	Extra map[string]any `json:"-"`
}

// renderRequestFields are the keys decoded into named fields.
var renderRequestFields = map[string]bool{
	"conversations":                true,
	"messages":                     true,
	"chat_template":                true,
	"model":                        true,
	"revision":                     true,
	"token":                        true,
	"tools":                        true,
	"documents":                    true,
	"return_assistant_tokens_mask": true,
	"continue_final_message":       true,
	"add_generation_prompt":        true,
	"chat_template_kwargs":         true,
}

// UnmarshalJSON decodes the named fields and collects every other key into
// Extra. Objects keep their key order, so messages, tools and documents
// serialize in templates the way the client sent them. Integral JSON
// numbers decode as int64, others as float64.
func (r *RenderRequest) UnmarshalJSON(data []byte) error {
	all, err := jsonvalue.UnmarshalObject(data)
	if err != nil {
		return err
	}

	type plain RenderRequest
	var p plain
	named := make(map[string]any, len(all.Keys()))
	for _, k := range all.Keys() {
		v, _ := all.Get(k)
		if renderRequestFields[k] {
			named[k] = v
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = v
	}

	md, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: orderedObjectHook,
		Result:     &p,
		TagName:    "json",
	})
	if err != nil {
		return err
	}
	if err := md.Decode(named); err != nil {
		return fmt.Errorf("decode render request: %w", err)
	}
	*r = RenderRequest(p)
	return nil
}

var messageType = reflect.TypeOf(chattemplate.Message{})

// orderedObjectHook turns decoded objects into messages where a message is
// expected and into maps where a map is. Values of interface type stay
// ordered.
func orderedObjectHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	om, ok := jsonvalue.Object(data)
	if !ok {
		return data, nil
	}
	switch {
	case to == messageType:
		return chattemplate.MessageFromOrdered(om), nil
	case to.Kind() == reflect.Map:
		return jsonvalue.Entries(om), nil
	default:
		return data, nil
	}
}

// MarshalJSON writes the named fields with Extra inlined at the top level.
func (r RenderRequest) MarshalJSON() ([]byte, error) {
	type plain RenderRequest
	data, err := json.Marshal(plain(r))
	if err != nil || len(r.Extra) == 0 {
		return data, err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, ok := all[k]; !ok {
			all[k] = v
		}
	}
	return json.Marshal(all)
}

// conversations returns the conversations to render. Messages, when set,
// replaces Conversations.
func (r *RenderRequest) conversations() []any {
	if r.Messages != nil {
		return []any{r.Messages}
	}
	out := make([]any, len(r.Conversations))
	for i, c := range r.Conversations {
		out[i] = c
	}
	return out
}

// RenderResponse is the wire form of a render result.
type RenderResponse struct {
	RenderedChats []string `json:"rendered_chats"`

	// GenerationIndices holds one list of generation spans per
	// conversation; the lists are empty unless tracking was requested.
	GenerationIndices [][]chattemplate.Span `json:"generation_indices"`

	// Warnings reports non-fatal problems with the request.
	Warnings []string `json:"warnings,omitempty"`
}

// FetchRequest asks for a model's chat template.
type FetchRequest struct {
	Model string `json:"model"`

	// ChatTemplate overrides the model's template; it may name one of the
	// model's named templates.
	ChatTemplate *string `json:"chat_template,omitempty"`

	Tools    []any  `json:"tools,omitempty"`
	Revision string `json:"revision,omitempty"`
	Token    string `json:"token,omitempty"`
}

// FetchResponse is a resolved chat template with the special-token
// variables it renders with.
type FetchResponse struct {
	ChatTemplate       string         `json:"chat_template"`
	ChatTemplateKWArgs map[string]any `json:"chat_template_kwargs"`
}
