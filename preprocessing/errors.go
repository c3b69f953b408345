package preprocessing

import "errors"

// Error values for request validation.
var (
	ErrToolValidation         = errors.New("tools must be JSON schemas or callable descriptors")
	ErrDocumentValidation     = errors.New("documents must be mappings with title and text")
	ErrConversationValidation = errors.New("conversations must be lists of message mappings")
	ErrNoTemplate             = errors.New("chat_template or model is required")
	ErrNoConversations        = errors.New("conversations or messages is required")
)
