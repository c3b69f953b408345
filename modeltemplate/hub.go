package modeltemplate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"k8s.io/klog/v2"

	"github.com/jonwraymond/chattemplate/internal/logging"
)

// DefaultHubEndpoint is the public Hugging Face Hub.
const DefaultHubEndpoint = "https://huggingface.co"

const (
	tokenizerConfigFile = "tokenizer_config.json"
	chatTemplateFile    = "chat_template.jinja"
	defaultUserAgent    = "chattemplate/0.1"
)

// HubOptions configures a HubRegistry.
type HubOptions struct {
	// Endpoint is the Hub base URL. Default: DefaultHubEndpoint.
	Endpoint string

	// HTTPClient performs requests. Default: http.DefaultClient.
	HTTPClient *http.Client

	// UserAgent is sent with every request.
	UserAgent string
}

// HubRegistry reads tokenizer configs using the Hugging Face Hub file layout.
type HubRegistry struct {
	endpoint  string
	client    *http.Client
	userAgent string
}

// NewHubRegistry creates a registry for the configured Hub endpoint.
func NewHubRegistry(opts HubOptions) (*HubRegistry, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultHubEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid hub endpoint %q", endpoint)
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &HubRegistry{endpoint: endpoint, client: client, userAgent: ua}, nil
}

// Endpoint returns the Hub base URL.
func (h *HubRegistry) Endpoint() string {
	return h.endpoint
}

// FetchTokenizerConfig downloads tokenizer_config.json for key and, when it
// carries no chat template, the standalone chat_template.jinja.
func (h *HubRegistry) FetchTokenizerConfig(ctx context.Context, key Key) (TokenizerConfig, error) {
	if key.Model == "" {
		return TokenizerConfig{}, ErrModelRequired
	}
	logger := klog.FromContext(ctx).WithName("modeltemplate.Hub")

	body, found, err := h.get(ctx, key, tokenizerConfigFile)
	if err != nil {
		return TokenizerConfig{}, err
	}
	if !found {
		return TokenizerConfig{}, fmt.Errorf("%w: %s: %s not found", ErrFetch, key.Model, tokenizerConfigFile)
	}

	cfg, err := parseTokenizerConfig(body)
	if err != nil {
		return TokenizerConfig{}, fmt.Errorf("%s: %w", key.Model, err)
	}

	if cfg.ChatTemplate == "" {
		body, found, err := h.get(ctx, key, chatTemplateFile)
		if err != nil {
			return TokenizerConfig{}, err
		}
		if found {
			cfg.ChatTemplate = string(body)
		}
	}

	logger.V(logging.DEBUG).Info("fetched tokenizer config",
		"model", key.Model, "revision", key.revision(),
		"hasTemplate", cfg.ChatTemplate != "", "specialTokens", len(cfg.SpecialTokens))
	return cfg, nil
}

// get returns the file body; found is false on 404.
func (h *HubRegistry) get(ctx context.Context, key Key, file string) ([]byte, bool, error) {
	target, err := url.JoinPath(h.endpoint, key.Model, "resolve", key.revision(), file)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	if key.Token != "" {
		req.Header.Set("Authorization", "Bearer "+key.Token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false, fmt.Errorf("%w: %s/%s: %s", ErrFetch, key.Model, file, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return body, true, nil
}

type namedTemplate struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

func parseTokenizerConfig(body []byte) (TokenizerConfig, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return TokenizerConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var cfg TokenizerConfig
	if tmpl, ok := raw["chat_template"]; ok {
		s, named, err := decodeChatTemplate(tmpl)
		if err != nil {
			return TokenizerConfig{}, err
		}
		cfg.ChatTemplate = s
		cfg.NamedTemplates = named
	}

	cfg.SpecialTokens = make(map[string]any)
	for name, v := range raw {
		if !isSpecialTokenName(name) {
			continue
		}
		tok, ok, err := decodeSpecialToken(v)
		if err != nil {
			return TokenizerConfig{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
		if ok {
			cfg.SpecialTokens[name] = tok
		}
	}
	return cfg, nil
}

// decodeChatTemplate accepts a template string or a list of named
// templates. For a list, the "default" entry is the default template, else
// the first one.
func decodeChatTemplate(v json.RawMessage) (string, map[string]string, error) {
	if string(v) == "null" {
		return "", nil, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil, nil
	}
	var list []namedTemplate
	if err := json.Unmarshal(v, &list); err != nil {
		return "", nil, fmt.Errorf("%w: chat_template must be a string or a list of named templates", ErrInvalidConfig)
	}
	if len(list) == 0 {
		return "", nil, nil
	}
	named := make(map[string]string, len(list))
	for _, t := range list {
		named[t.Name] = t.Template
	}
	if d, ok := named["default"]; ok {
		return d, named, nil
	}
	return list[0].Template, named, nil
}

// decodeSpecialToken accepts a string, an AddedToken object, or a list of
// either. ok is false for null.
func decodeSpecialToken(v json.RawMessage) (any, bool, error) {
	if string(v) == "null" {
		return nil, false, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(v, &list); err == nil {
		out := make([]any, 0, len(list))
		for _, item := range list {
			s, err := tokenContent(item)
			if err != nil {
				return nil, false, err
			}
			out = append(out, s)
		}
		return out, true, nil
	}
	s, err := tokenContent(v)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func tokenContent(v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil
	}
	var added struct {
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(v, &added); err != nil || added.Content == nil {
		return "", fmt.Errorf("token must be a string or an object with content")
	}
	return *added.Content, nil
}
