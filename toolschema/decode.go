package toolschema

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// wireCallable is the JSON form of a Callable:
//
//	{"name": "get_weather", "doc": "...", "returns": "str",
//	 "params": [{"name": "city", "annotation": "str"},
//	            {"name": "unit", "annotation": "str", "default": "celsius"}]}
type wireCallable struct {
	Name    string           `json:"name"`
	Doc     string           `json:"doc"`
	Params  []map[string]any `json:"params"`
	Returns string           `json:"returns"`
}

type wireParam struct {
	Name       string `json:"name"`
	Annotation string `json:"annotation"`
	HasDefault bool   `json:"has_default"`
	Default    any    `json:"default"`
}

// DecodeCallable decodes the JSON form of a callable. A parameter is
// optional when it carries a "default" key or "has_default": true.
// Unknown keys are rejected.
func DecodeCallable(raw map[string]any) (Callable, error) {
	var wc wireCallable
	if err := decodeStrict(raw, &wc); err != nil {
		return Callable{}, fmt.Errorf("%w: %v", ErrInvalidCallable, err)
	}
	if wc.Name == "" {
		return Callable{}, fmt.Errorf("%w: name is required", ErrInvalidCallable)
	}

	c := Callable{
		Name:             wc.Name,
		Doc:              wc.Doc,
		ReturnAnnotation: wc.Returns,
		Params:           make([]Param, 0, len(wc.Params)),
	}
	for i, rp := range wc.Params {
		var wp wireParam
		if err := decodeStrict(rp, &wp); err != nil {
			return Callable{}, fmt.Errorf("%w: params[%d]: %v", ErrInvalidCallable, i, err)
		}
		if wp.Name == "" {
			return Callable{}, fmt.Errorf("%w: params[%d]: name is required", ErrInvalidCallable, i)
		}
		_, hasDefault := rp["default"]
		c.Params = append(c.Params, Param{
			Name:       wp.Name,
			Annotation: wp.Annotation,
			HasDefault: hasDefault || wp.HasDefault,
			Default:    wp.Default,
		})
	}
	return c, nil
}

func decodeStrict(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		TagName:     "json",
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
