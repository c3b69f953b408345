package chattemplate

import (
	"reflect"

	"github.com/iancoleman/orderedmap"
	"github.com/nikolalohinski/gonja/v2/builtins"
	"github.com/nikolalohinski/gonja/v2/exec"

	"github.com/jonwraymond/chattemplate/toolschema"
)

// templateValue converts v into the shapes templates read: mappings
// become ordered engine dicts and lists become sequences. Plain Go maps
// have no order of their own and get schema key order. Empty mappings
// stay plain maps so that they test false.
func templateValue(v any) any {
	switch t := v.(type) {
	case nil, *exec.Value, *exec.Dict:
		return v
	case Message:
		if t.Len() == 0 {
			return map[string]any{}
		}
		return orderedDict(t.Ordered())
	case toolschema.ToolSchema:
		if len(t) == 0 {
			return map[string]any{}
		}
		return orderedDict(t.Ordered())
	case *orderedmap.OrderedMap, orderedmap.OrderedMap:
		om, _ := asOrdered(v)
		if om == nil || len(om.Keys()) == 0 {
			return map[string]any{}
		}
		return orderedDict(om)
	case map[string]any:
		if len(t) == 0 {
			return map[string]any{}
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		toolschema.OrderKeys(keys)
		d := &exec.Dict{Pairs: make([]*exec.Pair, 0, len(keys))}
		for _, k := range keys {
			d.Pairs = append(d.Pairs, &exec.Pair{Key: exec.AsValue(k), Value: exec.AsValue(templateValue(t[k]))})
		}
		return d
	case []any:
		out := make(sequence, len(t))
		for i, item := range t {
			out[i] = templateValue(item)
		}
		return out
	case []Message:
		out := make(sequence, len(t))
		for i, m := range t {
			out[i] = templateValue(m)
		}
		return out
	case Conversation:
		return templateValue([]Message(t))
	case []toolschema.ToolSchema:
		out := make(sequence, len(t))
		for i, s := range t {
			out[i] = templateValue(s)
		}
		return out
	case string, []byte:
		return v
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make(sequence, rv.Len())
		for i := range out {
			out[i] = templateValue(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

func asOrdered(v any) (*orderedmap.OrderedMap, bool) {
	switch t := v.(type) {
	case *orderedmap.OrderedMap:
		return t, t != nil
	case orderedmap.OrderedMap:
		return &t, true
	}
	return nil, false
}

func orderedDict(om *orderedmap.OrderedMap) *exec.Dict {
	d := &exec.Dict{Pairs: make([]*exec.Pair, 0, len(om.Keys()))}
	for _, k := range om.Keys() {
		e, _ := om.Get(k)
		d.Pairs = append(d.Pairs, &exec.Pair{Key: exec.AsValue(k), Value: exec.AsValue(templateValue(e))})
	}
	return d
}

// sequence is a template list. Negative subscripts count from the end,
// so messages[-1] is the last message even in a one-element list.
type sequence []any

func (s sequence) GetItem(key any) (*exec.Value, bool) {
	i, ok := key.(int)
	if !ok {
		return exec.AsValue(nil), false
	}
	if i < 0 {
		i += len(s)
	}
	if i < 0 || i >= len(s) {
		return exec.AsValue(nil), false
	}
	return exec.ToValue(s[i]), true
}

func asDict(v *exec.Value) (*exec.Dict, bool) {
	switch d := v.Interface().(type) {
	case *exec.Dict:
		return d, d != nil
	case exec.Dict:
		return &d, true
	}
	return nil, false
}

// filterItems is the items filter, keeping dict order.
func filterItems(e *exec.Evaluator, in *exec.Value, params *exec.VarArgs) *exec.Value {
	d, ok := asDict(in)
	if !ok {
		builtin, _ := builtins.Filters.Get("items")
		return builtin(e, in, params)
	}
	if err := params.Take(); err != nil {
		return exec.AsValue(exec.ErrInvalidCall(err))
	}
	return exec.AsValue(dictItems(d))
}

func dictItems(d *exec.Dict) sequence {
	out := make(sequence, len(d.Pairs))
	for i, p := range d.Pairs {
		out[i] = sequence{p.Key, p.Value}
	}
	return out
}

type dictMethod func(d *exec.Dict, args *exec.VarArgs) (any, error)

// orderedDictMethods replaces the dict methods that read keys, so they
// follow dict order. The rest are the engine's own.
func orderedDictMethods() *exec.MethodSet[map[string]any] {
	methods := map[string]exec.Method[map[string]any]{
		"items": withDict("items", func(d *exec.Dict, args *exec.VarArgs) (any, error) {
			if err := args.Take(); err != nil {
				return nil, exec.ErrInvalidCall(err)
			}
			return dictItems(d), nil
		}),
		"keys": withDict("keys", func(d *exec.Dict, args *exec.VarArgs) (any, error) {
			if err := args.Take(); err != nil {
				return nil, exec.ErrInvalidCall(err)
			}
			out := make(sequence, len(d.Pairs))
			for i, p := range d.Pairs {
				out[i] = p.Key
			}
			return out, nil
		}),
		"values": withDict("values", func(d *exec.Dict, args *exec.VarArgs) (any, error) {
			if err := args.Take(); err != nil {
				return nil, exec.ErrInvalidCall(err)
			}
			out := make(sequence, len(d.Pairs))
			for i, p := range d.Pairs {
				out[i] = p.Value
			}
			return out, nil
		}),
		"get": withDict("get", func(d *exec.Dict, args *exec.VarArgs) (any, error) {
			var key string
			fallback := exec.AsValue(nil)
			if err := args.Take(
				exec.PositionalArgument("key", nil, exec.StringArgument(&key)),
				exec.PositionalArgument("default", exec.AsValue(nil), valueArgument(&fallback)),
			); err != nil {
				return nil, exec.ErrInvalidCall(err)
			}
			for _, p := range d.Pairs {
				if p.Key.String() == key {
					return p.Value.Interface(), nil
				}
			}
			return fallback.Interface(), nil
		}),
	}
	for _, name := range []string{"pop", "setdefault", "update", "copy", "clear"} {
		if m, ok := builtins.Methods.Dict.Get(name); ok {
			methods[name] = m
		}
	}
	return exec.NewMethodSet(methods)
}

// withDict runs fn on ordered dicts and the engine's method on plain maps.
func withDict(name string, fn dictMethod) exec.Method[map[string]any] {
	builtin, _ := builtins.Methods.Dict.Get(name)
	return func(self map[string]any, selfValue *exec.Value, args *exec.VarArgs) (any, error) {
		if d, ok := asDict(selfValue); ok {
			return fn(d, args)
		}
		return builtin(self, selfValue, args)
	}
}

func valueArgument(out **exec.Value) exec.ArgumentTransmuter {
	return func(v *exec.Value) error {
		*out = v
		return nil
	}
}
