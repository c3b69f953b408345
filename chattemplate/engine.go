package chattemplate

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nikolalohinski/gonja/v2/builtins"
	"github.com/nikolalohinski/gonja/v2/config"
	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/nikolalohinski/gonja/v2/loaders"
	"github.com/nikolalohinski/gonja/v2/nodes"
	"github.com/nikolalohinski/gonja/v2/parser"
	"golang.org/x/mod/semver"
)

// MinEngineVersion is the oldest template engine release with the
// extension points this package relies on.
const MinEngineVersion = "v2.9.0"

// engineVersion is the linked engine release; tests override it.
var engineVersion = linkedEngineVersion()

// bannedTags can reach outside the template text.
var bannedTags = []string{"include", "import", "from", "extends"}

var errLoaderDisabled = errors.New("template loading is disabled")

func linkedEngineVersion() string {
	if v, ok := builtins.GlobalVariables.Get("gonja"); ok {
		if info, ok := v.(map[string]any); ok {
			if s, ok := info["version"].(string); ok {
				return s
			}
		}
	}
	return ""
}

func checkEngineVersion() error {
	if !semver.IsValid(engineVersion) || semver.Compare(engineVersion, MinEngineVersion) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrEngineVersion, engineVersion, MinEngineVersion)
	}
	return nil
}

// sourceLoader serves the one template being compiled and nothing else.
type sourceLoader struct {
	name string
	text string
}

func (l *sourceLoader) Read(path string) (io.Reader, error) {
	if path != l.name {
		return nil, fmt.Errorf("%w: %s", errLoaderDisabled, path)
	}
	return strings.NewReader(l.text), nil
}

func (l *sourceLoader) Resolve(path string) (string, error) {
	if path != l.name {
		return "", fmt.Errorf("%w: %s", errLoaderDisabled, path)
	}
	return path, nil
}

func (l *sourceLoader) Inherit(string) (loaders.Loader, error) {
	return nil, errLoaderDisabled
}

// refuseTag rejects a banned tag when the template is parsed.
func refuseTag(name string) parser.ControlStructureParser {
	return func(p *parser.Parser, _ *parser.Parser) (nodes.ControlStructure, error) {
		return nil, p.Error(fmt.Sprintf("tag %q is not allowed", name), nil)
	}
}

// engineConfig mirrors the environment chat templates are written for:
// blocks eat the newline after them and the whitespace before them on
// their line, and nothing is HTML-escaped.
func engineConfig() *config.Config {
	cfg := config.New()
	cfg.TrimBlocks = true
	cfg.LeftStripBlocks = true
	cfg.AutoEscape = false
	return cfg
}

// environment is shared by every compiled template. Nothing mutates it
// after construction; per-render state lives in the render context.
var environment = sync.OnceValues(newEnvironment)

func newEnvironment() (*exec.Environment, error) {
	filters := exec.NewFilterSet(map[string]exec.FilterFunction{}).Update(builtins.Filters)
	if err := filters.Replace("tojson", filterToJSON); err != nil {
		return nil, err
	}
	if err := filters.Replace("items", filterItems); err != nil {
		return nil, err
	}

	structures := exec.NewControlStructureSet(map[string]parser.ControlStructureParser{}).
		Update(builtins.ControlStructures)
	for _, tag := range bannedTags {
		if err := structures.Replace(tag, refuseTag(tag)); err != nil {
			return nil, err
		}
	}
	if err := structures.Register("generation", parseGeneration); err != nil {
		return nil, err
	}

	methods := builtins.Methods
	methods.Dict = orderedDictMethods()

	return &exec.Environment{
		Filters:           filters,
		ControlStructures: structures,
		Tests:             builtins.Tests,
		Context:           exec.EmptyContext().Update(builtins.GlobalFunctions).Update(builtins.GlobalVariables),
		Methods:           methods,
	}, nil
}

// parseTemplate compiles text in the sandboxed environment.
func parseTemplate(text, fingerprint string) (*exec.Template, error) {
	if err := checkEngineVersion(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	env, err := environment()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}

	loader := &sourceLoader{name: "chattemplate-" + shortFingerprint(fingerprint), text: text}
	tpl, err := exec.NewTemplate(loader.name, engineConfig(), loader, env)
	if err != nil {
		// The engine quotes the whole source in its message.
		msg := strings.TrimPrefix(err.Error(), fmt.Sprintf("failed to parse template '%s': ", text))
		return nil, fmt.Errorf("%w: %w: %s", ErrCompile, ErrTemplateSyntax, msg)
	}
	return tpl, nil
}
