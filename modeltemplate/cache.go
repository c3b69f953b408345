package modeltemplate

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
	"k8s.io/klog/v2"

	"github.com/jonwraymond/chattemplate/internal/logging"
)

// SpecialTokenNames lists the tokenizer attributes copied into Resolved.
var SpecialTokenNames = []string{
	"bos_token",
	"eos_token",
	"eot_token",
	"pad_token",
	"unk_token",
	"sep_token",
	"additional_special_tokens",
}

func isSpecialTokenName(name string) bool {
	return slices.Contains(SpecialTokenNames, name)
}

// Request identifies the model whose chat template should be resolved.
type Request struct {
	Model string

	// ChatTemplate, when non-nil, overrides the model's default template.
	// A value naming one of the model's named templates selects it.
	ChatTemplate *string

	// WithTools prefers the model's "tool_use" template, when it has one
	// and no override is given.
	WithTools bool

	Revision string
	Token    string
}

func (r Request) key() Key {
	return Key{Model: r.Model, Revision: r.Revision, Token: r.Token}
}

// Resolved is a chat template plus the special tokens it renders with.
type Resolved struct {
	ChatTemplate  string
	SpecialTokens map[string]any
}

// Clone returns a deep copy of r.
func (r Resolved) Clone() Resolved {
	return Resolved{
		ChatTemplate:  r.ChatTemplate,
		SpecialTokens: cloneTokens(r.SpecialTokens),
	}
}

func cloneTokens(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneToken(v)
	}
	return out
}

// cloneToken copies the lists and mappings a token value may hold.
func cloneToken(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneToken(e)
		}
		return out
	case []string:
		return slices.Clone(t)
	case map[string]any:
		return cloneTokens(t)
	default:
		return v
	}
}

type entry struct {
	resolved Resolved
	named    map[string]string
}

// selectTemplate picks the template req asks for out of base and named.
func selectTemplate(base string, named map[string]string, req Request) string {
	if req.ChatTemplate != nil {
		if t, ok := named[*req.ChatTemplate]; ok {
			return t
		}
		return *req.ChatTemplate
	}
	if req.WithTools {
		if t, ok := named["tool_use"]; ok {
			return t
		}
	}
	return base
}

// Cache memoizes template resolution per model, revision and token.
type Cache struct {
	registry Registry

	mu      sync.Mutex
	entries map[string]entry

	group singleflight.Group
}

// NewCache creates a cache backed by registry.
func NewCache(registry Registry) *Cache {
	return &Cache{
		registry: registry,
		entries:  make(map[string]entry),
	}
}

// DefaultCache is the process-wide cache backed by the public Hub.
var DefaultCache = NewCache(mustHubRegistry())

func mustHubRegistry() *HubRegistry {
	h, err := NewHubRegistry(HubOptions{})
	if err != nil {
		panic(err)
	}
	return h
}

// Resolve returns the chat template and special tokens for req.Model.
//
// On a miss the tokenizer config is fetched once per key, even under
// concurrent callers, and the selected template is stored. Callers always
// receive independent copies; an override on a hit applies only to the
// returned value.
func (c *Cache) Resolve(ctx context.Context, req Request) (Resolved, error) {
	if req.Model == "" {
		return Resolved{}, ErrModelRequired
	}
	logger := klog.FromContext(ctx).WithName("modeltemplate.Resolve")
	key := req.key().String()

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		logger.V(logging.TRACE).Info("cache hit", "model", req.Model, "revision", req.key().revision())
		out := e.resolved.Clone()
		out.ChatTemplate = selectTemplate(out.ChatTemplate, e.named, req)
		return out, nil
	}

	logger.V(logging.TRACE).Info("cache miss", "model", req.Model, "revision", req.key().revision())
	v, err, shared := c.group.Do(key, func() (any, error) {
		cfg, err := c.registry.FetchTokenizerConfig(ctx, req.key())
		if err != nil {
			return nil, err
		}
		fetched := entry{
			resolved: Resolved{
				ChatTemplate:  cfg.ChatTemplate,
				SpecialTokens: allowListed(cfg.SpecialTokens),
			},
			named: maps.Clone(cfg.NamedTemplates),
		}
		stored := entry{resolved: fetched.resolved.Clone(), named: fetched.named}
		stored.resolved.ChatTemplate = selectTemplate(cfg.ChatTemplate, cfg.NamedTemplates, req)

		c.mu.Lock()
		if _, exists := c.entries[key]; !exists {
			c.entries[key] = stored
		}
		c.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve %s: %w", req.Model, err)
	}
	if shared {
		logger.V(logging.TRACE).Info("shared in-flight fetch", "model", req.Model)
	}

	fetched := v.(entry)
	out := fetched.resolved.Clone()
	out.ChatTemplate = selectTemplate(out.ChatTemplate, fetched.named, req)
	return out, nil
}

func allowListed(tokens map[string]any) map[string]any {
	out := make(map[string]any)
	for _, name := range SpecialTokenNames {
		if v, ok := tokens[name]; ok && v != nil {
			out[name] = v
		}
	}
	return cloneTokens(out)
}

// Len returns the number of cached models.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every cached entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Keys returns a snapshot of the cache keys.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.entries))
}
