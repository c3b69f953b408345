package modeltemplate

import "context"

// Key identifies one tokenizer configuration in a registry.
type Key struct {
	Model    string
	Revision string
	Token    string
}

// String returns the cache key "model:revision:token", with "main" and
// "none" standing in for an empty revision and token.
func (k Key) String() string {
	return k.Model + ":" + k.revision() + ":" + k.token()
}

func (k Key) revision() string {
	if k.Revision == "" {
		return "main"
	}
	return k.Revision
}

func (k Key) token() string {
	if k.Token == "" {
		return "none"
	}
	return k.Token
}

// TokenizerConfig is the part of a model's tokenizer metadata needed to
// render its chat template.
type TokenizerConfig struct {
	// ChatTemplate is the model's default chat template, or empty.
	ChatTemplate string

	// NamedTemplates holds every template of a model that ships several,
	// keyed by name ("default", "tool_use", "rag", ...).
	NamedTemplates map[string]string

	// SpecialTokens maps special-token names to a string, or to a list of
	// strings for additional_special_tokens.
	SpecialTokens map[string]any
}

// Registry fetches tokenizer metadata for a model.
type Registry interface {
	FetchTokenizerConfig(ctx context.Context, key Key) (TokenizerConfig, error)
}

// RegistryFunc adapts a function to the Registry interface.
type RegistryFunc func(ctx context.Context, key Key) (TokenizerConfig, error)

// FetchTokenizerConfig calls f.
func (f RegistryFunc) FetchTokenizerConfig(ctx context.Context, key Key) (TokenizerConfig, error) {
	return f(ctx, key)
}
