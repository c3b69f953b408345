package toolschema_test

import (
	"encoding/json"
	"fmt"

	"github.com/jonwraymond/chattemplate/toolschema"
)

func ExampleCompile() {
	schema, err := toolschema.Compile(toolschema.Callable{
		Name: "multiply",
		Doc: `Multiply two numbers.

Args:
    a: The first factor.
    b: The second factor.`,
		Params: []toolschema.Param{
			{Name: "a", Annotation: "float"},
			{Name: "b", Annotation: "float", HasDefault: true, Default: 1.0},
		},
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	out, _ := json.Marshal(schema)
	fmt.Println(string(out))
	// Output:
	// {"type":"function","function":{"name":"multiply","description":"Multiply two numbers.","parameters":{"type":"object","properties":{"a":{"type":"number","description":"The first factor."},"b":{"type":"number","description":"The second factor."}},"required":["a"]}}}
}

func ExampleParseType() {
	t, _ := toolschema.ParseType("dict[str, int | None]")
	schema, _ := toolschema.SchemaFor(t)
	out, _ := json.Marshal(schema)
	fmt.Println(t)
	fmt.Println(string(out))
	// Output:
	// dict[str, Union[int, None]]
	// {"additionalProperties":{"nullable":true,"type":"integer"},"type":"object"}
}
