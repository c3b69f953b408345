// Package jsonvalue decodes JSON into generic values that keep object key
// order: objects become *orderedmap.OrderedMap, arrays []any, integral
// numbers int64 and other numbers float64.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/iancoleman/orderedmap"
)

// NewObject returns an empty ordered object that serializes without HTML
// escaping.
func NewObject() *orderedmap.OrderedMap {
	om := orderedmap.New()
	om.SetEscapeHTML(false)
	return om
}

// Unmarshal decodes a single JSON value from data.
func Unmarshal(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("jsonvalue: trailing data after top-level value")
	}
	return v, nil
}

// UnmarshalObject decodes data, which must hold a JSON object.
func UnmarshalObject(data []byte) (*orderedmap.OrderedMap, error) {
	v, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	om, ok := v.(*orderedmap.OrderedMap)
	if !ok {
		return nil, fmt.Errorf("jsonvalue: expected an object, got %T", v)
	}
	return om, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("jsonvalue: unexpected delimiter %q", t)
		}
	case json.Number:
		return Number(t), nil
	default:
		// string, bool or nil
		return t, nil
	}
}

func decodeObject(dec *json.Decoder) (*orderedmap.OrderedMap, error) {
	om := NewObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("jsonvalue: object key is %T", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		// A repeated key keeps its first position and its last value.
		om.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return om, nil
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	out := []any{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

// Number converts n to int64 when it is integral, float64 otherwise.
func Number(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, _ := n.Float64()
	return f
}

// Plain converts ordered objects in v, at any depth, to map[string]any.
// Other values are returned unchanged.
func Plain(v any) any {
	switch t := v.(type) {
	case *orderedmap.OrderedMap:
		if t == nil {
			return map[string]any(nil)
		}
		return plainObject(t)
	case orderedmap.OrderedMap:
		return plainObject(&t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Plain(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Plain(e)
		}
		return out
	default:
		return v
	}
}

func plainObject(om *orderedmap.OrderedMap) map[string]any {
	out := make(map[string]any, len(om.Keys()))
	for _, k := range om.Keys() {
		e, _ := om.Get(k)
		out[k] = Plain(e)
	}
	return out
}

// Entries returns the entries of om as a map. Values are not converted.
func Entries(om *orderedmap.OrderedMap) map[string]any {
	out := make(map[string]any, len(om.Keys()))
	for _, k := range om.Keys() {
		out[k], _ = om.Get(k)
	}
	return out
}

// Object returns v as an ordered object when it is one, by pointer or by
// value.
func Object(v any) (*orderedmap.OrderedMap, bool) {
	switch t := v.(type) {
	case *orderedmap.OrderedMap:
		return t, t != nil
	case orderedmap.OrderedMap:
		return &t, true
	default:
		return nil, false
	}
}
