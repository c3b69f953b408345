package chattemplate

import (
	"errors"
	"fmt"
)

// Error values for consistent error handling by callers.
var (
	// ErrCompile wraps every failure to turn template text into a
	// CompiledTemplate.
	ErrCompile = errors.New("template compile error")

	ErrTemplateSyntax = errors.New("template syntax error")
	ErrEngineVersion  = errors.New("template engine version too old")

	// ErrTrackerReuse is returned when a tracker is activated twice.
	ErrTrackerReuse = errors.New("generation tracker already active")

	ErrTemplateExecution = errors.New("template execution error")

	// ErrContinuation is returned when the final message cannot be located
	// in the rendered text.
	ErrContinuation = errors.New("continue_final_message error")
)

// ExecutionError carries the message a template raised with
// raise_exception, or the engine's description of a failed render.
type ExecutionError struct {
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%v: %s", ErrTemplateExecution, e.Message)
}

// Is reports whether target is ErrTemplateExecution.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrTemplateExecution
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
