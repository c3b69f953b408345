package toolschema

import (
	"errors"
	"fmt"
)

// Error values for consistent error handling by callers.
var (
	ErrTypeHint          = errors.New("type hint parsing error")
	ErrDocstring         = errors.New("docstring parsing error")
	ErrInvalidAnnotation = errors.New("invalid type annotation")
	ErrInvalidCallable   = errors.New("invalid callable")
	ErrInvalidSchema     = errors.New("invalid tool schema")
)

// TypeHintError reports a parameter whose annotation is missing or cannot
// be expressed as JSON Schema.
type TypeHintError struct {
	Function  string
	Parameter string
	Detail    string
}

func (e *TypeHintError) Error() string {
	switch {
	case e.Function != "" && e.Parameter != "":
		return fmt.Sprintf("%v: argument %s of function %s: %s", ErrTypeHint, e.Parameter, e.Function, e.Detail)
	case e.Function != "":
		return fmt.Sprintf("%v: function %s: %s", ErrTypeHint, e.Function, e.Detail)
	default:
		return fmt.Sprintf("%v: %s", ErrTypeHint, e.Detail)
	}
}

// Is reports whether target is ErrTypeHint.
func (e *TypeHintError) Is(target error) bool {
	return target == ErrTypeHint
}

// DocstringError reports a doc comment that cannot describe the callable.
type DocstringError struct {
	Function  string
	Parameter string
	Detail    string
	Err       error
}

func (e *DocstringError) Error() string {
	msg := fmt.Sprintf("%v: cannot generate JSON schema for %s because %s", ErrDocstring, e.Function, e.Detail)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrDocstring.
func (e *DocstringError) Is(target error) bool {
	return target == ErrDocstring
}

func (e *DocstringError) Unwrap() error {
	return e.Err
}
