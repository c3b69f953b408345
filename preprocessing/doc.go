// Package preprocessing renders batches of chat conversations through a chat
// template and resolves model chat templates.
//
// It is the entry point over the chattemplate, toolschema and modeltemplate
// packages: requests are validated, tools are normalized into function
// schemas (compiling callable descriptors), the template is compiled once
// per batch, and each conversation is rendered in order.
//
// # Basic Usage
//
//	p := preprocessing.New(preprocessing.Options{})
//
//	resp, err := p.RenderChatTemplate(ctx, &preprocessing.RenderRequest{
//	    Messages:     chattemplate.Conversation{chattemplate.NewMessage("user", "Hi")},
//	    ChatTemplate: tmpl,
//	    ReturnAssistantTokensMask: true,
//	})
//
// # Model Templates
//
// A request with a model and no chat_template resolves the model's template
// and special tokens (bos_token, eos_token, ...) through the model cache:
//
//	resp, err := p.RenderChatTemplate(ctx, &preprocessing.RenderRequest{
//	    Messages: msgs,
//	    Model:    "HuggingFaceH4/zephyr-7b-beta",
//	})
//
// # Caches
//
// Compiled templates and resolved model templates live in process-wide
// caches by default. ClearCaches empties both.
//
// # Thread Safety
//
// All Processor methods are safe for concurrent use.
package preprocessing
