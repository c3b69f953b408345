package chattemplate

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/iancoleman/orderedmap"
	"github.com/nikolalohinski/gonja/v2/exec"

	"github.com/jonwraymond/chattemplate/toolschema"
)

// JSONOptions controls ToJSON. The zero value is compact output with
// ", " and ": " separators.
type JSONOptions struct {
	// EnsureASCII escapes every non-ASCII character as \uXXXX.
	EnsureASCII bool

	// Indented enables pretty printing with Indent spaces per level.
	Indented bool
	Indent   int

	// ItemSeparator and KeySeparator override the separators. When empty
	// they default to ", " (or "," when indented) and ": ".
	ItemSeparator string
	KeySeparator  string

	// SortKeys orders object keys alphabetically. Otherwise ordered
	// objects keep their order and plain maps use schema key order.
	SortKeys bool
}

func (o JSONOptions) separators() (item, key string) {
	item, key = o.ItemSeparator, o.KeySeparator
	if item == "" {
		item = ", "
		if o.Indented {
			item = ","
		}
	}
	if key == "" {
		key = ": "
	}
	return item, key
}

// ToJSON serializes v without HTML escaping.
func ToJSON(v any, opts JSONOptions) (string, error) {
	e := &jsonEncoder{opts: opts}
	e.item, e.key = opts.separators()
	if err := e.encode(v, 0); err != nil {
		return "", err
	}
	return e.b.String(), nil
}

type jsonEncoder struct {
	b    strings.Builder
	opts JSONOptions
	item string
	key  string
}

func (e *jsonEncoder) newline(depth int) {
	if !e.opts.Indented {
		return
	}
	e.b.WriteByte('\n')
	e.b.WriteString(strings.Repeat(" ", e.opts.Indent*depth))
}

func (e *jsonEncoder) encode(v any, depth int) error {
	switch t := v.(type) {
	case nil:
		e.b.WriteString("null")
	case *exec.Value:
		if t == nil {
			e.b.WriteString("null")
			return nil
		}
		return e.encode(t.Interface(), depth)
	case *exec.Dict:
		if t == nil {
			e.b.WriteString("null")
			return nil
		}
		return e.encodeDict(t, depth)
	case exec.Dict:
		return e.encodeDict(&t, depth)
	case string:
		e.writeString(t)
	case bool:
		if t {
			e.b.WriteString("true")
		} else {
			e.b.WriteString("false")
		}
	case json.Number:
		e.b.WriteString(t.String())
	case float64:
		e.writeFloat(t)
	case float32:
		e.writeFloat(float64(t))
	case int:
		e.b.WriteString(strconv.Itoa(t))
	case int64:
		e.b.WriteString(strconv.FormatInt(t, 10))
	case map[string]any:
		return e.encodeMap(t, depth)
	case toolschema.ToolSchema:
		return e.encodeMap(t, depth)
	case Message:
		if t.Ordered() == nil {
			e.b.WriteString("{}")
			return nil
		}
		return e.encodeOrdered(t.Ordered(), depth)
	case *orderedmap.OrderedMap:
		if t == nil {
			e.b.WriteString("null")
			return nil
		}
		return e.encodeOrdered(t, depth)
	case orderedmap.OrderedMap:
		return e.encodeOrdered(&t, depth)
	case []any:
		return e.encodeList(len(t), func(i int) any { return t[i] }, depth)
	case sequence:
		return e.encodeList(len(t), func(i int) any { return t[i] }, depth)
	case Span:
		e.b.WriteString("[" + strconv.Itoa(t.Start) + e.item + strconv.Itoa(t.End) + "]")
	default:
		return e.encodeReflect(v, depth)
	}
	return nil
}

func (e *jsonEncoder) encodeReflect(v any, depth int) error {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			e.b.WriteString("null")
			return nil
		}
		if _, ok := v.(json.Marshaler); !ok {
			return e.encode(rv.Elem().Interface(), depth)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.b.WriteString(strconv.FormatInt(rv.Int(), 10))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		e.b.WriteString(strconv.FormatUint(rv.Uint(), 10))
		return nil
	case reflect.Float32, reflect.Float64:
		e.writeFloat(rv.Float())
		return nil
	case reflect.String:
		e.writeString(rv.String())
		return nil
	case reflect.Bool:
		return e.encode(rv.Bool(), depth)
	case reflect.Slice, reflect.Array:
		if _, ok := v.(json.Marshaler); ok {
			break
		}
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			e.b.WriteString("null")
			return nil
		}
		return e.encodeList(rv.Len(), func(i int) any { return rv.Index(i).Interface() }, depth)
	case reflect.Map:
		if _, ok := v.(json.Marshaler); ok {
			break
		}
		if rv.IsNil() {
			e.b.WriteString("null")
			return nil
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
		return e.encodeMap(m, depth)
	}

	// Structs and custom marshalers round-trip through encoding/json,
	// keeping their field order.
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("tojson: %w", err)
	}
	return e.encodeRaw(data, depth)
}

func (e *jsonEncoder) encodeRaw(data []byte, depth int) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		om := orderedmap.New()
		if err := om.UnmarshalJSON(data); err != nil {
			return fmt.Errorf("tojson: %w", err)
		}
		return e.encodeOrdered(om, depth)
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return fmt.Errorf("tojson: %w", err)
	}
	return e.encode(decoded, depth)
}

func (e *jsonEncoder) encodeMap(m map[string]any, depth int) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	if e.opts.SortKeys {
		slices.Sort(keys)
	} else {
		toolschema.OrderKeys(keys)
	}
	return e.encodeObject(keys, func(k string) any { return m[k] }, depth)
}

func (e *jsonEncoder) encodeOrdered(om *orderedmap.OrderedMap, depth int) error {
	keys := slices.Clone(om.Keys())
	if e.opts.SortKeys {
		slices.Sort(keys)
	}
	return e.encodeObject(keys, func(k string) any {
		v, _ := om.Get(k)
		return v
	}, depth)
}

func (e *jsonEncoder) encodeDict(d *exec.Dict, depth int) error {
	keys := make([]string, len(d.Pairs))
	values := make(map[string]any, len(d.Pairs))
	for i, p := range d.Pairs {
		keys[i] = p.Key.String()
		values[keys[i]] = p.Value
	}
	if e.opts.SortKeys {
		slices.Sort(keys)
	}
	return e.encodeObject(keys, func(k string) any { return values[k] }, depth)
}

func (e *jsonEncoder) encodeObject(keys []string, get func(string) any, depth int) error {
	if len(keys) == 0 {
		e.b.WriteString("{}")
		return nil
	}
	e.b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			e.b.WriteString(e.item)
		}
		e.newline(depth + 1)
		e.writeString(k)
		e.b.WriteString(e.key)
		if err := e.encode(get(k), depth+1); err != nil {
			return err
		}
	}
	e.newline(depth)
	e.b.WriteByte('}')
	return nil
}

func (e *jsonEncoder) encodeList(n int, at func(int) any, depth int) error {
	if n == 0 {
		e.b.WriteString("[]")
		return nil
	}
	e.b.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			e.b.WriteString(e.item)
		}
		e.newline(depth + 1)
		if err := e.encode(at(i), depth+1); err != nil {
			return err
		}
	}
	e.newline(depth)
	e.b.WriteByte(']')
	return nil
}

// writeFloat spells f the way Python's float repr does: fixed notation
// with at least one decimal for exponents in [-4, 16), scientific
// otherwise.
func (e *jsonEncoder) writeFloat(f float64) {
	switch {
	case math.IsNaN(f):
		e.b.WriteString("NaN")
		return
	case math.IsInf(f, 1):
		e.b.WriteString("Infinity")
		return
	case math.IsInf(f, -1):
		e.b.WriteString("-Infinity")
		return
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		e.b.WriteString(sci)
		return
	}
	fixed := strconv.FormatFloat(f, 'f', -1, 64)
	e.b.WriteString(fixed)
	if !strings.ContainsRune(fixed, '.') {
		e.b.WriteString(".0")
	}
}

const hexDigits = "0123456789abcdef"

func (e *jsonEncoder) writeString(s string) {
	e.b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			e.b.WriteString(`\"`)
		case '\\':
			e.b.WriteString(`\\`)
		case '\n':
			e.b.WriteString(`\n`)
		case '\r':
			e.b.WriteString(`\r`)
		case '\t':
			e.b.WriteString(`\t`)
		case '\b':
			e.b.WriteString(`\b`)
		case '\f':
			e.b.WriteString(`\f`)
		default:
			switch {
			case r < 0x20:
				e.writeEscape(r)
			case r >= utf8.RuneSelf && e.opts.EnsureASCII:
				if r > 0xFFFF {
					hi, lo := utf16.EncodeRune(r)
					e.writeEscape(hi)
					e.writeEscape(lo)
				} else {
					e.writeEscape(r)
				}
			default:
				e.b.WriteRune(r)
			}
		}
	}
	e.b.WriteByte('"')
}

func (e *jsonEncoder) writeEscape(r rune) {
	e.b.WriteString(`\u`)
	e.b.WriteByte(hexDigits[(r>>12)&0xF])
	e.b.WriteByte(hexDigits[(r>>8)&0xF])
	e.b.WriteByte(hexDigits[(r>>4)&0xF])
	e.b.WriteByte(hexDigits[r&0xF])
}

// jsonOptionsFromArgs reads the tojson filter arguments: indent,
// ensure_ascii, separators and sort_keys, by keyword or in that order.
func jsonOptionsFromArgs(params *exec.VarArgs) (JSONOptions, error) {
	var opts JSONOptions
	indent := exec.AsValue(nil)
	separators := exec.AsValue(nil)
	if err := params.Take(
		exec.KeywordArgument("indent", exec.AsValue(nil), valueArgument(&indent)),
		exec.KeywordArgument("ensure_ascii", exec.AsValue(false), exec.BoolArgument(&opts.EnsureASCII)),
		exec.KeywordArgument("separators", exec.AsValue(nil), valueArgument(&separators)),
		exec.KeywordArgument("sort_keys", exec.AsValue(false), exec.BoolArgument(&opts.SortKeys)),
	); err != nil {
		return opts, err
	}

	if !indent.IsNil() {
		if !indent.IsInteger() {
			return opts, fmt.Errorf("indent must be an integer, got %s", indent.String())
		}
		opts.Indented, opts.Indent = true, indent.Integer()
	}
	if !separators.IsNil() {
		if !separators.IsList() || separators.Len() != 2 ||
			!separators.Index(0).IsString() || !separators.Index(1).IsString() {
			return opts, fmt.Errorf("separators must be a pair of strings, got %s", separators.String())
		}
		opts.ItemSeparator, opts.KeySeparator = separators.Index(0).String(), separators.Index(1).String()
	}
	return opts, nil
}

func filterToJSON(_ *exec.Evaluator, in *exec.Value, params *exec.VarArgs) *exec.Value {
	if in.IsError() {
		return in
	}
	opts, err := jsonOptionsFromArgs(params)
	if err != nil {
		return exec.AsValue(exec.ErrInvalidCall(err))
	}
	out, err := ToJSON(in.Interface(), opts)
	if err != nil {
		return exec.AsValue(err)
	}
	return exec.AsSafeValue(out)
}
