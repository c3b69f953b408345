package toolschema

import (
	"encoding/json"
	"slices"

	"github.com/iancoleman/orderedmap"

	"github.com/jonwraymond/chattemplate/internal/jsonvalue"
)

// ToolSchema is a compiled tool definition in the
// {"type": "function", "function": {...}} shape templates expect.
type ToolSchema map[string]any

// Function returns the "function" object, or nil. An ordered object is
// returned as a map of its entries; nested values are not converted.
func (s ToolSchema) Function() map[string]any {
	switch fn := s["function"].(type) {
	case map[string]any:
		return fn
	case *orderedmap.OrderedMap, orderedmap.OrderedMap:
		if om, ok := jsonvalue.Object(fn); ok {
			return jsonvalue.Entries(om)
		}
	}
	return nil
}

// Name returns the function name, falling back to a top-level "name".
func (s ToolSchema) Name() string {
	if fn := s.Function(); fn != nil {
		if name, ok := fn["name"].(string); ok {
			return name
		}
	}
	name, _ := s["name"].(string)
	return name
}

// Description returns the function description.
func (s ToolSchema) Description() string {
	if fn := s.Function(); fn != nil {
		if desc, ok := fn["description"].(string); ok {
			return desc
		}
	}
	desc, _ := s["description"].(string)
	return desc
}

// Ordered returns s as an ordered object. Plain maps get schema key
// order; ordered objects, such as compiled properties or decoded
// requests, keep the order they have.
func (s ToolSchema) Ordered() *orderedmap.OrderedMap {
	return orderValue(map[string]any(s), false).(*orderedmap.OrderedMap)
}

// MarshalJSON emits s with keys in schema order.
func (s ToolSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Ordered())
}

// orderValue converts nested maps to ordered objects. Property names are
// user identifiers, so the children of a plain "properties" map sort
// alphabetically.
func orderValue(v any, names bool) any {
	switch t := v.(type) {
	case ToolSchema:
		return orderValue(map[string]any(t), names)
	case *orderedmap.OrderedMap, orderedmap.OrderedMap:
		src, ok := jsonvalue.Object(t)
		if !ok {
			return v
		}
		om := jsonvalue.NewObject()
		for _, k := range src.Keys() {
			e, _ := src.Get(k)
			om.Set(k, orderValue(e, !names && k == "properties"))
		}
		return om
	case map[string]any:
		om := jsonvalue.NewObject()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		if names {
			slices.Sort(keys)
		} else {
			OrderKeys(keys)
		}
		for _, k := range keys {
			om.Set(k, orderValue(t[k], !names && k == "properties"))
		}
		return om
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = orderValue(item, false)
		}
		return out
	default:
		return v
	}
}

// keyRank lists the schema keys that come first, in this order. Remaining
// keys follow alphabetically.
var keyRank = map[string]int{
	"type":                 0,
	"function":             1,
	"name":                 2,
	"description":          3,
	"parameters":           4,
	"properties":           5,
	"items":                6,
	"prefixItems":          7,
	"additionalProperties": 8,
	"anyOf":                9,
	"enum":                 10,
	"nullable":             11,
	"required":             12,
	"return":               13,
}

// OrderKeys sorts keys into schema order in place and returns them.
func OrderKeys(keys []string) []string {
	slices.SortFunc(keys, func(a, b string) int {
		ra, aok := keyRank[a]
		rb, bok := keyRank[b]
		switch {
		case aok && bok:
			return ra - rb
		case aok:
			return -1
		case bok:
			return 1
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	})
	return keys
}
