// Package chattemplate renders chat templates: it compiles template text
// into sandboxed CompiledTemplates, caches them, renders conversations,
// and reports where the assistant's generated text lands in the output.
//
// # Compilation
//
// Compile (or Cache.Compile) parses template text with block whitespace
// trimming (trim_blocks and lstrip_blocks), with tags that reach outside
// the template (include, import, from, extends) banned and every template
// load refused. Autoescaping is off.
//
// Messages, tools and documents reach the template as ordered mappings
// and lists: subscripts such as messages[-1]['content'] work, loop
// variables are available, and mappings keep their key order through
// items(), keys() and tojson. Templates get these helpers:
//
//   - tojson: JSON serialization without HTML escaping, taking the
//     indent, ensure_ascii, separators and sort_keys arguments. indent may
//     also be given positionally.
//   - raise_exception(msg): aborts the render with an *ExecutionError.
//   - strftime_now(format): formats the cache clock's current time.
//
// Compiled templates are kept in a bounded least-recently-used cache
// keyed by the Fingerprint of their text. DefaultCache serves Compile.
//
// # Generation spans
//
// A template marks assistant output with a block:
//
//	{% generation %}{{ message.content }}{% endgeneration %}
//
// When Render is called with tracking on, the template's Tracker records
// the character range each block occupies in the output, so callers can
// build assistant token masks. Without tracking the block renders its body
// unchanged.
//
// # Continuation
//
// TrimToFinalMessage cuts a rendered conversation so that it ends with the
// final message's text, for continuing that message instead of opening a
// new turn.
//
// # Thread Safety
//
// Cache and CompiledTemplate are safe for concurrent use. Tracked renders
// of one CompiledTemplate are serialized; untracked renders run freely.
package chattemplate
