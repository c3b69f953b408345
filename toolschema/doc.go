// Package toolschema compiles tool callables into the JSON function
// schemas that chat templates render for the model.
//
// A Callable carries a name, a Google-style doc comment (see package
// tooldoc), declared parameters and an optional return annotation.
// Annotations are TypeExpr values, built with the constructors in this
// package or parsed from their usual spellings with ParseType:
//
//	int  float  str  bool  None  Any  Image  Audio
//	Optional[T]  Union[A, B]  A | B
//	list[T]  tuple[A, B]  dict[K, V]
//
// Compile produces:
//
//	{"type": "function",
//	 "function": {"name": ..., "description": ...,
//	              "parameters": {"type": "object", "properties": {...}, "required": [...]},
//	              "return": {...}}}
//
// Union members other than None are compiled one by one. A single member
// is inlined; members that are all plain {"type": T} schemas collapse to a
// sorted type list; anything else becomes "anyOf". A None member adds
// "nullable": true.
//
// Parameters without an annotation fail with *TypeHintError before any
// type is compiled. Parameters missing from the doc comment fail with
// *DocstringError. An argument description ending in "(choices: [...])"
// becomes an "enum".
//
// ToMCPTool, ToModelTool and FromMCPTool convert between function
// schemas and MCP tool definitions.
package toolschema
