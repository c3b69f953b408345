package chattemplate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nikolalohinski/gonja/v2/exec"
	"k8s.io/klog/v2"

	"github.com/jonwraymond/chattemplate/internal/logging"
	"github.com/jonwraymond/chattemplate/toolschema"
)

// Vars are the variables of one conversation render. Documents are
// mappings: map[string]any or ordered objects, which keep their order.
type Vars struct {
	Messages            []Message
	Tools               []toolschema.ToolSchema
	Documents           []any
	AddGenerationPrompt bool

	// Extra holds caller keyword arguments and special-token variables.
	// The named fields above take precedence over same-named keys.
	Extra map[string]any
}

// Rendered is the output of one conversation render.
type Rendered struct {
	Text  string
	Spans []Span
}

// CompiledTemplate is parsed template text, safe for concurrent use.
// Tracked renders of the same instance run one at a time since they
// share its tracker.
type CompiledTemplate struct {
	text          string
	fingerprint   string
	hasGeneration bool
	tpl           *exec.Template
	clock         func() time.Time

	mu      sync.Mutex
	tracker *Tracker
}

func newCompiledTemplate(text, fingerprint string, clock func() time.Time) (*CompiledTemplate, error) {
	tpl, err := parseTemplate(text, fingerprint)
	if err != nil {
		return nil, err
	}
	return &CompiledTemplate{
		text:          text,
		fingerprint:   fingerprint,
		hasGeneration: HasGenerationBlock(text),
		tpl:           tpl,
		clock:         clock,
		tracker:       NewTracker(),
	}, nil
}

// Text returns the source text.
func (t *CompiledTemplate) Text() string { return t.text }

// Fingerprint returns the sha256 hex digest of the source text.
func (t *CompiledTemplate) Fingerprint() string { return t.fingerprint }

// HasGenerationBlock reports whether the source contains a generation
// block.
func (t *CompiledTemplate) HasGenerationBlock() bool { return t.hasGeneration }

// Tracker returns the tracker tracked renders bind to.
func (t *CompiledTemplate) Tracker() *Tracker { return t.tracker }

// Render renders one conversation. With track set, the character spans of
// generation blocks in the output are returned; otherwise Spans is empty.
// The tracker is inactive again when Render returns, whatever the outcome.
func (t *CompiledTemplate) Render(ctx context.Context, vars Vars, track bool) (Rendered, error) {
	logger := klog.FromContext(ctx).WithName("chattemplate.Render")
	if err := ctx.Err(); err != nil {
		return Rendered{}, err
	}

	helpers := &renderHelpers{clock: t.clock}
	data := make(map[string]any, len(vars.Extra)+8)
	for k, v := range vars.Extra {
		if !identRe.MatchString(k) {
			logger.V(logging.DEBUG).Info("skipping template variable with invalid name", "name", k)
			continue
		}
		data[k] = templateValue(v)
	}
	data["messages"] = templateValue(vars.Messages)
	if vars.Tools != nil {
		data["tools"] = templateValue(vars.Tools)
	}
	if vars.Documents != nil {
		data["documents"] = templateValue(vars.Documents)
	}
	data["add_generation_prompt"] = vars.AddGenerationPrompt
	helpers.bind(data)

	acc := &Accumulator{}
	if track {
		t.mu.Lock()
		defer t.mu.Unlock()
		if err := t.tracker.Activate(acc); err != nil {
			return Rendered{}, err
		}
		defer t.tracker.Deactivate()
		data[trackerKey] = t.tracker
	} else {
		delete(data, trackerKey)
	}

	logger.V(logging.TRACE).Info("rendering", "template", shortFingerprint(t.fingerprint),
		"messages", len(vars.Messages), "track", track)

	if err := t.tpl.Execute(acc, exec.NewContext(data)); err != nil {
		if helpers.raised != nil {
			return Rendered{}, helpers.raised
		}
		var execErr *ExecutionError
		if errors.As(err, &execErr) {
			return Rendered{}, execErr
		}
		return Rendered{}, &ExecutionError{Message: err.Error(), Err: err}
	}

	spans := []Span{}
	if track {
		spans = t.tracker.Spans()
	}
	return Rendered{Text: acc.String(), Spans: spans}, nil
}
