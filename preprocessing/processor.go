package preprocessing

import (
	"context"
	"fmt"
	"maps"

	"k8s.io/klog/v2"

	"github.com/jonwraymond/chattemplate/chattemplate"
	"github.com/jonwraymond/chattemplate/internal/jsonvalue"
	"github.com/jonwraymond/chattemplate/internal/logging"
	"github.com/jonwraymond/chattemplate/modeltemplate"
	"github.com/jonwraymond/chattemplate/toolschema"
)

// WarnNoGenerationBlock is reported when generation tracking is requested
// for a template that has no generation block.
const WarnNoGenerationBlock = "return_assistant_tokens_mask is set but the chat template has no {% generation %} block"

// templateVarsKey names a request variable whose mapping is unpacked into
// the template variables.
const templateVarsKey = "template_vars"

// Options configures a Processor.
type Options struct {
	// TemplateCache holds compiled templates. If nil, uses
	// chattemplate.DefaultCache.
	TemplateCache *chattemplate.Cache

	// ModelCache resolves model templates. If nil, a cache over Registry is
	// created, or modeltemplate.DefaultCache is used when Registry is nil.
	ModelCache *modeltemplate.Cache

	// Registry backs a new ModelCache. Ignored when ModelCache is set.
	Registry modeltemplate.Registry

	// Compiler turns callables into tool schemas. If nil, uses a compiler
	// with toolschema.DefaultOptions.
	Compiler *toolschema.Compiler
}

// Processor renders batches of conversations through chat templates and
// resolves model templates. It is safe for concurrent use.
type Processor struct {
	templates *chattemplate.Cache
	models    *modeltemplate.Cache
	compiler  *toolschema.Compiler
}

// New creates a Processor with the given options.
func New(opts Options) *Processor {
	p := &Processor{
		templates: opts.TemplateCache,
		models:    opts.ModelCache,
		compiler:  opts.Compiler,
	}
	if p.templates == nil {
		p.templates = chattemplate.DefaultCache
	}
	if p.models == nil {
		if opts.Registry != nil {
			p.models = modeltemplate.NewCache(opts.Registry)
		} else {
			p.models = modeltemplate.DefaultCache
		}
	}
	if p.compiler == nil {
		p.compiler = toolschema.NewCompiler(toolschema.DefaultOptions())
	}
	return p
}

// Default is the processor over the process-wide caches.
var Default = New(Options{})

// TemplateCache returns the compiled-template cache.
func (p *Processor) TemplateCache() *chattemplate.Cache { return p.templates }

// ModelCache returns the model template cache.
func (p *Processor) ModelCache() *modeltemplate.Cache { return p.models }

// Batch is a render call in Go terms.
type Batch struct {
	// Conversations holds chattemplate.ConversationLike values, []Message,
	// []map[string]any or []any of message mappings.
	Conversations []any

	ChatTemplate string

	// Tools holds schema mappings, toolschema.ToolSchema, toolschema.Callable,
	// mcp.Tool, model.Tool, or {"callable": {...}} descriptors.
	Tools []any

	// Documents must all be mappings: map[string]any or ordered objects.
	Documents []any

	TrackGeneration      bool
	ContinueFinalMessage bool
	AddGenerationPrompt  bool

	// Vars are extra template variables.
	Vars map[string]any
}

// RenderBatch renders every conversation of b with one compiled template.
// Results keep the input order.
func (p *Processor) RenderBatch(ctx context.Context, b Batch) (*RenderResponse, error) {
	logger := klog.FromContext(ctx).WithName("preprocessing.RenderBatch")
	if b.ChatTemplate == "" {
		return nil, ErrNoTemplate
	}

	resp := &RenderResponse{
		RenderedChats:     make([]string, 0, len(b.Conversations)),
		GenerationIndices: make([][]chattemplate.Span, 0, len(b.Conversations)),
	}
	if b.TrackGeneration && !chattemplate.HasGenerationBlock(b.ChatTemplate) {
		logger.Info(WarnNoGenerationBlock)
		resp.Warnings = append(resp.Warnings, WarnNoGenerationBlock)
	}

	tools, err := normalizeTools(p.compiler, b.Tools)
	if err != nil {
		return nil, err
	}
	docs, err := normalizeDocuments(b.Documents)
	if err != nil {
		return nil, err
	}

	tpl, err := p.templates.Compile(b.ChatTemplate)
	if err != nil {
		return nil, err
	}

	for i, c := range b.Conversations {
		conv, err := chattemplate.AsConversation(c)
		if err != nil {
			return nil, fmt.Errorf("%w: conversations[%d]: %v", ErrConversationValidation, i, err)
		}
		out, err := tpl.Render(ctx, chattemplate.Vars{
			Messages:            conv,
			Tools:               tools,
			Documents:           docs,
			AddGenerationPrompt: b.AddGenerationPrompt,
			Extra:               b.Vars,
		}, b.TrackGeneration)
		if err != nil {
			return nil, fmt.Errorf("conversations[%d]: %w", i, err)
		}
		text := out.Text
		if b.ContinueFinalMessage {
			if len(conv) == 0 {
				return nil, fmt.Errorf("%w: conversations[%d] has no messages", chattemplate.ErrContinuation, i)
			}
			text, err = chattemplate.TrimToFinalMessage(text, conv[len(conv)-1])
			if err != nil {
				return nil, fmt.Errorf("conversations[%d]: %w", i, err)
			}
		}
		resp.RenderedChats = append(resp.RenderedChats, text)
		resp.GenerationIndices = append(resp.GenerationIndices, out.Spans)
	}

	logger.V(logging.VERBOSE).Info("rendered batch",
		"template", tpl.Fingerprint()[:12], "conversations", len(resp.RenderedChats),
		"tools", len(tools), "track", b.TrackGeneration)
	return resp, nil
}

// RenderChatTemplate renders a wire request. When the request names a
// model instead of a template, the model's template and special tokens are
// resolved first; caller variables win over resolved special tokens.
func (p *Processor) RenderChatTemplate(ctx context.Context, req *RenderRequest) (*RenderResponse, error) {
	if req == nil || (req.Conversations == nil && req.Messages == nil) {
		return nil, ErrNoConversations
	}

	vars, err := requestVars(req)
	if err != nil {
		return nil, err
	}

	text := req.ChatTemplate
	if text == "" && req.Model != "" {
		res, err := p.models.Resolve(ctx, modeltemplate.Request{
			Model:     req.Model,
			WithTools: len(req.Tools) > 0,
			Revision:  req.Revision,
			Token:     req.Token,
		})
		if err != nil {
			return nil, err
		}
		if res.ChatTemplate == "" {
			return nil, fmt.Errorf("%w: model %s has no chat template", ErrNoTemplate, req.Model)
		}
		text = res.ChatTemplate
		for k, v := range res.SpecialTokens {
			if _, ok := vars[k]; !ok {
				vars[k] = v
			}
		}
	}

	return p.RenderBatch(ctx, Batch{
		Conversations:        req.conversations(),
		ChatTemplate:         text,
		Tools:                req.Tools,
		Documents:            req.Documents,
		TrackGeneration:      req.ReturnAssistantTokensMask,
		ContinueFinalMessage: req.ContinueFinalMessage,
		AddGenerationPrompt:  req.AddGenerationPrompt,
		Vars:                 vars,
	})
}

// requestVars merges the request's extra keys, then chat_template_kwargs,
// then the template_vars mapping, later sources winning.
func requestVars(req *RenderRequest) (map[string]any, error) {
	vars := make(map[string]any, len(req.Extra)+len(req.ChatTemplateKWArgs))
	maps.Copy(vars, req.Extra)
	maps.Copy(vars, req.ChatTemplateKWArgs)

	tv, ok := vars[templateVarsKey]
	if !ok {
		return vars, nil
	}
	delete(vars, templateVarsKey)
	if tv == nil {
		return vars, nil
	}
	if om, ok := jsonvalue.Object(tv); ok {
		tv = jsonvalue.Entries(om)
	}
	m, ok := tv.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a mapping, got %T", templateVarsKey, tv)
	}
	maps.Copy(vars, m)
	return vars, nil
}

// FetchChatTemplate resolves a model's chat template and the special-token
// variables it renders with.
func (p *Processor) FetchChatTemplate(ctx context.Context, req FetchRequest) (*FetchResponse, error) {
	logger := klog.FromContext(ctx).WithName("preprocessing.FetchChatTemplate")
	res, err := p.models.Resolve(ctx, modeltemplate.Request{
		Model:        req.Model,
		ChatTemplate: req.ChatTemplate,
		WithTools:    len(req.Tools) > 0,
		Revision:     req.Revision,
		Token:        req.Token,
	})
	if err != nil {
		return nil, err
	}
	logger.V(logging.VERBOSE).Info("resolved chat template", "model", req.Model,
		"template", chattemplate.Fingerprint(res.ChatTemplate)[:12])
	return &FetchResponse{
		ChatTemplate:       res.ChatTemplate,
		ChatTemplateKWArgs: res.SpecialTokens,
	}, nil
}

// ClearCaches empties the processor's template and model caches.
func (p *Processor) ClearCaches(ctx context.Context) {
	klog.FromContext(ctx).WithName("preprocessing.ClearCaches").
		V(logging.VERBOSE).Info("clearing caches", "templates", p.templates.Len(), "models", p.models.Len())
	p.templates.Purge()
	p.models.Clear()
}

// ClearCaches empties the process-wide template and model caches.
func ClearCaches(ctx context.Context) {
	Default.ClearCaches(ctx)
}
