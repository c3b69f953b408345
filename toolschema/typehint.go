package toolschema

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of a type annotation.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindStr
	KindBool
	KindNone
	KindAny
	KindImage
	KindAudio
	KindUnion
	KindList
	KindTuple
	KindDict
	KindNamed
)

// TypeExpr is a static type annotation: a small closed algebra of
// primitives, unions, sequences, tuples and mappings. Named holds any
// other (opaque) type, which the compiler rejects.
type TypeExpr struct {
	Kind Kind

	// Args holds union members, the list element type, tuple element
	// types, or the mapping key and value types.
	Args []TypeExpr

	// Variadic marks a tuple of arbitrary length ("tuple[T, ...]").
	Variadic bool

	// Name is the spelling of an opaque type.
	Name string
}

// Primitive annotations.
var (
	Int   = TypeExpr{Kind: KindInt}
	Float = TypeExpr{Kind: KindFloat}
	Str   = TypeExpr{Kind: KindStr}
	Bool  = TypeExpr{Kind: KindBool}
	None  = TypeExpr{Kind: KindNone}
	Any   = TypeExpr{Kind: KindAny}
	Image = TypeExpr{Kind: KindImage}
	Audio = TypeExpr{Kind: KindAudio}

	// BareList, BareTuple and BareDict carry no element types.
	BareList  = TypeExpr{Kind: KindList}
	BareTuple = TypeExpr{Kind: KindTuple}
	BareDict  = TypeExpr{Kind: KindDict}
)

// ListOf returns a sequence of elem.
func ListOf(elem TypeExpr) TypeExpr {
	return TypeExpr{Kind: KindList, Args: []TypeExpr{elem}}
}

// TupleOf returns a fixed-length tuple of elems.
func TupleOf(elems ...TypeExpr) TypeExpr {
	return TypeExpr{Kind: KindTuple, Args: elems}
}

// VariadicTuple returns a tuple of any number of elem.
func VariadicTuple(elem TypeExpr) TypeExpr {
	return TypeExpr{Kind: KindTuple, Args: []TypeExpr{elem}, Variadic: true}
}

// DictOf returns a mapping from key to value.
func DictOf(key, value TypeExpr) TypeExpr {
	return TypeExpr{Kind: KindDict, Args: []TypeExpr{key, value}}
}

// Opaque returns a named type that has no schema equivalent.
func Opaque(name string) TypeExpr {
	return TypeExpr{Kind: KindNamed, Name: name}
}

// Optional returns the union of t and None.
func Optional(t TypeExpr) TypeExpr {
	return UnionOf(t, None)
}

// UnionOf returns the union of members. Nested unions are flattened and
// duplicate members dropped; a union of one member is that member.
func UnionOf(members ...TypeExpr) TypeExpr {
	var flat []TypeExpr
	seen := map[string]bool{}
	var add func(t TypeExpr)
	add = func(t TypeExpr) {
		if t.Kind == KindUnion {
			for _, m := range t.Args {
				add(m)
			}
			return
		}
		key := t.String()
		if seen[key] {
			return
		}
		seen[key] = true
		flat = append(flat, t)
	}
	for _, m := range members {
		add(m)
	}

	if len(flat) == 1 {
		return flat[0]
	}
	return TypeExpr{Kind: KindUnion, Args: flat}
}

// String returns the canonical spelling of t.
func (t TypeExpr) String() string {
	switch t.Kind {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindBool:
		return "bool"
	case KindNone:
		return "None"
	case KindAny:
		return "Any"
	case KindImage:
		return "Image"
	case KindAudio:
		return "Audio"
	case KindUnion:
		return "Union[" + joinTypes(t.Args) + "]"
	case KindList:
		if len(t.Args) == 0 {
			return "list"
		}
		return "list[" + joinTypes(t.Args) + "]"
	case KindTuple:
		if len(t.Args) == 0 {
			return "tuple"
		}
		if t.Variadic {
			return "tuple[" + joinTypes(t.Args) + ", ...]"
		}
		return "tuple[" + joinTypes(t.Args) + "]"
	case KindDict:
		if len(t.Args) == 0 {
			return "dict"
		}
		return "dict[" + joinTypes(t.Args) + "]"
	case KindNamed:
		return t.Name
	default:
		return "<invalid>"
	}
}

func joinTypes(ts []TypeExpr) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// ParseType parses an annotation spelling such as "Optional[int]",
// "list[str]", "int | None" or "dict[str, tuple[int, float]]". Unknown
// identifiers become opaque named types.
func ParseType(spelling string) (TypeExpr, error) {
	p := &typeParser{toks: tokenize(spelling), src: spelling}
	if len(p.toks) == 0 {
		return TypeExpr{}, fmt.Errorf("%w: empty annotation", ErrInvalidAnnotation)
	}
	t, err := p.parseUnion()
	if err != nil {
		return TypeExpr{}, err
	}
	if p.pos != len(p.toks) {
		return TypeExpr{}, p.errorf("unexpected %q", p.toks[p.pos])
	}
	return t, nil
}

type typeParser struct {
	toks []string
	pos  int
	src  string
}

func (p *typeParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %q: %s", ErrInvalidAnnotation, p.src, fmt.Sprintf(format, args...))
}

func (p *typeParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *typeParser) next() string {
	tok := p.peek()
	if tok != "" {
		p.pos++
	}
	return tok
}

func (p *typeParser) parseUnion() (TypeExpr, error) {
	first, err := p.parsePrimary()
	if err != nil {
		return TypeExpr{}, err
	}
	members := []TypeExpr{first}
	for p.peek() == "|" {
		p.next()
		t, err := p.parsePrimary()
		if err != nil {
			return TypeExpr{}, err
		}
		members = append(members, t)
	}
	if len(members) == 1 {
		return first, nil
	}
	return UnionOf(members...), nil
}

func (p *typeParser) parsePrimary() (TypeExpr, error) {
	name := p.next()
	switch name {
	case "":
		return TypeExpr{}, p.errorf("unexpected end of annotation")
	case "[", "]", ",", "|", "...":
		return TypeExpr{}, p.errorf("unexpected %q", name)
	}
	name = strings.TrimPrefix(name, "typing.")

	var args []TypeExpr
	variadic := false
	hasArgs := false
	if p.peek() == "[" {
		p.next()
		hasArgs = true
		for {
			if p.peek() == "..." {
				p.next()
				variadic = true
			} else {
				t, err := p.parseUnion()
				if err != nil {
					return TypeExpr{}, err
				}
				if variadic {
					return TypeExpr{}, p.errorf("... must be the last element")
				}
				args = append(args, t)
			}
			sep := p.next()
			if sep == "]" {
				break
			}
			if sep != "," {
				return TypeExpr{}, p.errorf("expected , or ] but found %q", sep)
			}
		}
	}

	if variadic && name != "tuple" && name != "Tuple" {
		return TypeExpr{}, p.errorf("... is only valid in tuple annotations")
	}

	switch name {
	case "int":
		return Int, p.noArgs(name, hasArgs)
	case "float":
		return Float, p.noArgs(name, hasArgs)
	case "str":
		return Str, p.noArgs(name, hasArgs)
	case "bool":
		return Bool, p.noArgs(name, hasArgs)
	case "None", "NoneType":
		return None, p.noArgs(name, hasArgs)
	case "Any":
		return Any, p.noArgs(name, hasArgs)
	case "Image":
		return Image, p.noArgs(name, hasArgs)
	case "Audio":
		return Audio, p.noArgs(name, hasArgs)
	case "Optional":
		if len(args) != 1 {
			return TypeExpr{}, p.errorf("Optional takes exactly one argument")
		}
		return Optional(args[0]), nil
	case "Union":
		if len(args) == 0 {
			return TypeExpr{}, p.errorf("Union needs at least one argument")
		}
		return UnionOf(args...), nil
	case "list", "List", "Sequence":
		if len(args) > 1 {
			return TypeExpr{}, p.errorf("%s takes at most one argument", name)
		}
		return TypeExpr{Kind: KindList, Args: args}, nil
	case "tuple", "Tuple":
		if variadic && len(args) != 1 {
			return TypeExpr{}, p.errorf("variadic tuple takes exactly one element type")
		}
		return TypeExpr{Kind: KindTuple, Args: args, Variadic: variadic}, nil
	case "dict", "Dict", "Mapping":
		if len(args) != 0 && len(args) != 2 {
			return TypeExpr{}, p.errorf("%s takes zero or two arguments", name)
		}
		return TypeExpr{Kind: KindDict, Args: args}, nil
	default:
		return Opaque(name), nil
	}
}

func (p *typeParser) noArgs(name string, hasArgs bool) error {
	if hasArgs {
		return p.errorf("%s does not take arguments", name)
	}
	return nil
}

func tokenize(s string) []string {
	var toks []string
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '[' || c == ']' || c == ',' || c == '|':
			toks = append(toks, string(c))
			i++
		case strings.HasPrefix(s[i:], "..."):
			toks = append(toks, "...")
			i += 3
		default:
			j := i
			for j < len(s) && (isIdentByte(s[j]) || j > i && s[j] == '.' && !strings.HasPrefix(s[j:], "...")) {
				j++
			}
			if j == i {
				// Emit the stray byte so the parser reports it.
				toks = append(toks, string(c))
				i++
				continue
			}
			toks = append(toks, s[i:j])
			i = j
		}
	}
	return toks
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
