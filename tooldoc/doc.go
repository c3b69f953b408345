// Package tooldoc parses the structured documentation attached to a tool
// callable. Tool authors document a callable with a Google-style comment:
//
//	Get the current weather in a given location.
//
//	Args:
//	    location: The city and state, e.g. San Francisco, CA
//	    unit: The temperature unit (choices: ["celsius", "fahrenheit"])
//
//	Returns:
//	    The current temperature as a string.
//
// Parse splits such a comment into three parts, in order:
//
//   - Description: the free text up to the first Args:, Returns: or Raises:
//     marker (or the end of the comment).
//   - Args: one entry per "name: description" line. A description may span
//     several lines; it ends at the next "name:" marker or at the end of the
//     Args block. Continuation lines are folded into single spaces.
//   - Returns: the body of the Returns: section, when present.
//
// Matching is whitespace tolerant. A comment without a description is
// rejected with ErrNoDescription.
//
// # Choices
//
// An argument description may end with an inline "(choices: [...])"
// annotation holding a JSON list literal. SplitChoices extracts the list
// and returns the description with the annotation removed; the schema
// compiler in package toolschema turns the list into an "enum".
//
// # Thread Safety
//
// All functions are safe for concurrent use; the compiled expressions are
// package-level and read-only.
package tooldoc
