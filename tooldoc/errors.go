package tooldoc

import "errors"

// Error values for consistent error handling by callers.
var (
	ErrNoDescription  = errors.New("doc comment has no description")
	ErrInvalidChoices = errors.New("invalid choices annotation")
	ErrMatchTimeout   = errors.New("doc comment too complex to parse")
)
