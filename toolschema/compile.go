package toolschema

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jonwraymond/chattemplate/internal/jsonvalue"
	"github.com/jonwraymond/chattemplate/tooldoc"
)

// Param is one declared parameter of a Callable.
type Param struct {
	Name string

	// Annotation is the spelling of the parameter type, parsed with
	// ParseType when Type is nil. Both empty means the annotation is
	// missing.
	Annotation string
	Type       *TypeExpr

	// HasDefault marks optional parameters; they are left out of
	// "required".
	HasDefault bool
	Default    any
}

// Callable describes a tool function: its name, doc comment, declared
// parameters and optional return annotation.
type Callable struct {
	Name   string
	Doc    string
	Params []Param

	// Returns is the return annotation. ReturnAnnotation is parsed when
	// Returns is nil; both empty means the callable has no return schema.
	Returns          *TypeExpr
	ReturnAnnotation string
}

// Options configures a Compiler.
type Options struct {
	// Multimodal enables the Image and Audio primitives.
	Multimodal bool
}

// DefaultOptions returns the options used by the package-level Compile.
func DefaultOptions() Options {
	return Options{Multimodal: true}
}

// Compiler turns callables into tool schemas.
type Compiler struct {
	opts Options
}

// NewCompiler returns a Compiler with opts.
func NewCompiler(opts Options) *Compiler {
	return &Compiler{opts: opts}
}

var defaultCompiler = NewCompiler(DefaultOptions())

// Compile compiles c with the default options.
func Compile(c Callable) (ToolSchema, error) {
	return defaultCompiler.Compile(c)
}

// SchemaFor returns the JSON schema of t with the default options.
func SchemaFor(t TypeExpr) (map[string]any, error) {
	return defaultCompiler.SchemaFor(t)
}

// Compile builds the {"type": "function", "function": {...}} schema of c.
func (c *Compiler) Compile(fn Callable) (ToolSchema, error) {
	if strings.TrimSpace(fn.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidCallable)
	}

	docText := strings.TrimSpace(fn.Doc)
	if docText == "" {
		return nil, &DocstringError{Function: fn.Name, Detail: "it has no docstring"}
	}
	doc, err := tooldoc.Parse(docText)
	if err != nil {
		if errors.Is(err, tooldoc.ErrNoDescription) {
			return nil, &DocstringError{Function: fn.Name, Detail: "the docstring has no description", Err: err}
		}
		return nil, &DocstringError{Function: fn.Name, Detail: "the docstring could not be parsed", Err: err}
	}

	// Every parameter must be annotated before any type is inspected.
	types := make([]TypeExpr, len(fn.Params))
	for _, p := range fn.Params {
		if p.Type == nil && strings.TrimSpace(p.Annotation) == "" {
			return nil, &TypeHintError{Function: fn.Name, Parameter: p.Name, Detail: "missing a type hint"}
		}
	}
	for i, p := range fn.Params {
		t, err := resolveType(p.Type, p.Annotation)
		if err != nil {
			return nil, &TypeHintError{Function: fn.Name, Parameter: p.Name, Detail: err.Error()}
		}
		types[i] = t
	}

	// Properties keep the order the parameters are declared in.
	properties := jsonvalue.NewObject()
	var required []any
	for i, p := range fn.Params {
		schema, err := c.SchemaFor(types[i])
		if err != nil {
			var hintErr *TypeHintError
			if errors.As(err, &hintErr) {
				hintErr.Function, hintErr.Parameter = fn.Name, p.Name
			}
			return nil, err
		}
		properties.Set(p.Name, schema)
		if !p.HasDefault {
			required = append(required, p.Name)
		}
	}

	var ret map[string]any
	if fn.Returns != nil || strings.TrimSpace(fn.ReturnAnnotation) != "" {
		t, err := resolveType(fn.Returns, fn.ReturnAnnotation)
		if err != nil {
			return nil, &TypeHintError{Function: fn.Name, Parameter: "return", Detail: err.Error()}
		}
		ret, err = c.SchemaFor(t)
		if err != nil {
			var hintErr *TypeHintError
			if errors.As(err, &hintErr) {
				hintErr.Function, hintErr.Parameter = fn.Name, "return"
			}
			return nil, err
		}
		if doc.HasReturns {
			ret["description"] = doc.Returns
		}
	}

	for _, p := range fn.Params {
		desc, ok := doc.Arg(p.Name)
		if !ok {
			return nil, &DocstringError{
				Function:  fn.Name,
				Parameter: p.Name,
				Detail:    fmt.Sprintf("the docstring has no description for the argument '%s'", p.Name),
			}
		}
		v, _ := properties.Get(p.Name)
		schema := v.(map[string]any)
		choices, rest, found, err := tooldoc.SplitChoices(desc)
		if err != nil {
			return nil, &DocstringError{
				Function:  fn.Name,
				Parameter: p.Name,
				Detail:    fmt.Sprintf("the choices for argument '%s' are invalid", p.Name),
				Err:       err,
			}
		}
		if found {
			schema["enum"] = choices
			desc = rest
		}
		schema["description"] = desc
	}

	parameters := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		parameters["required"] = required
	}

	function := map[string]any{
		"name":        fn.Name,
		"description": doc.Description,
		"parameters":  parameters,
	}
	if ret != nil {
		function["return"] = ret
	}

	return ToolSchema{"type": "function", "function": function}, nil
}

func resolveType(t *TypeExpr, annotation string) (TypeExpr, error) {
	if t != nil {
		return *t, nil
	}
	return ParseType(annotation)
}

// SchemaFor returns the JSON schema fragment of t. Every call returns a
// fresh map.
func (c *Compiler) SchemaFor(t TypeExpr) (map[string]any, error) {
	switch t.Kind {
	case KindInt:
		return map[string]any{"type": "integer"}, nil
	case KindFloat:
		return map[string]any{"type": "number"}, nil
	case KindStr:
		return map[string]any{"type": "string"}, nil
	case KindBool:
		return map[string]any{"type": "boolean"}, nil
	case KindNone:
		return map[string]any{"type": "null"}, nil
	case KindAny:
		return map[string]any{}, nil
	case KindImage, KindAudio:
		if !c.opts.Multimodal {
			return nil, &TypeHintError{Detail: fmt.Sprintf("%s is not supported by this compiler", t)}
		}
		if t.Kind == KindImage {
			return map[string]any{"type": "image"}, nil
		}
		return map[string]any{"type": "audio"}, nil
	case KindUnion:
		return c.unionSchema(t)
	case KindList:
		if len(t.Args) == 0 {
			return map[string]any{"type": "array"}, nil
		}
		items, err := c.SchemaFor(t.Args[0])
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "array", "items": items}, nil
	case KindTuple:
		if t.Variadic {
			return nil, &TypeHintError{Detail: "'...' is not supported in tuple type hints. Use list[] types for variable-length inputs instead"}
		}
		if len(t.Args) == 0 {
			return map[string]any{"type": "array"}, nil
		}
		if len(t.Args) == 1 {
			return nil, &TypeHintError{Detail: fmt.Sprintf("the type hint %s is a tuple with a single element, which is not supported; use list[] types instead", t)}
		}
		prefix := make([]any, len(t.Args))
		for i, a := range t.Args {
			s, err := c.SchemaFor(a)
			if err != nil {
				return nil, err
			}
			prefix[i] = s
		}
		return map[string]any{"type": "array", "prefixItems": prefix}, nil
	case KindDict:
		if len(t.Args) == 0 {
			return map[string]any{"type": "object"}, nil
		}
		if len(t.Args) != 2 {
			return nil, &TypeHintError{Detail: fmt.Sprintf("invalid mapping type hint %s", t)}
		}
		values, err := c.SchemaFor(t.Args[1])
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "object", "additionalProperties": values}, nil
	case KindNamed:
		return nil, &TypeHintError{Detail: fmt.Sprintf("couldn't parse the type hint %q, likely due to a custom class or object", t.Name)}
	default:
		return nil, &TypeHintError{Detail: "invalid type expression"}
	}
}

func (c *Compiler) unionSchema(t TypeExpr) (map[string]any, error) {
	var subtypes []map[string]any
	nullable := false
	for _, m := range t.Args {
		if m.Kind == KindNone {
			nullable = true
			continue
		}
		s, err := c.SchemaFor(m)
		if err != nil {
			return nil, err
		}
		subtypes = append(subtypes, s)
	}

	var out map[string]any
	switch {
	case len(subtypes) == 0:
		out = map[string]any{"type": "null"}
		nullable = false
	case len(subtypes) == 1:
		out = subtypes[0]
	case allPrimitive(subtypes):
		names := make([]string, len(subtypes))
		for i, s := range subtypes {
			names[i] = s["type"].(string)
		}
		slices.Sort(names)
		out = map[string]any{"type": names}
	default:
		anyOf := make([]any, len(subtypes))
		for i, s := range subtypes {
			anyOf[i] = s
		}
		out = map[string]any{"anyOf": anyOf}
	}
	if nullable {
		out["nullable"] = true
	}
	return out, nil
}

// allPrimitive reports whether every schema is exactly {"type": <string>}.
func allPrimitive(schemas []map[string]any) bool {
	for _, s := range schemas {
		if len(s) != 1 {
			return false
		}
		if _, ok := s["type"].(string); !ok {
			return false
		}
	}
	return true
}
