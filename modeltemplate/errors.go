package modeltemplate

import "errors"

// Error values for consistent error handling by callers.
var (
	ErrModelRequired = errors.New("model is required")
	ErrFetch         = errors.New("tokenizer config fetch failed")
	ErrInvalidConfig = errors.New("invalid tokenizer config")
)
