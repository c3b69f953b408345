// Package modeltemplate resolves a model's chat template and special tokens
// from a tokenizer registry and memoizes the result per model, revision and
// access token.
//
// The Hub registry reads tokenizer_config.json (falling back to
// chat_template.jinja) using the Hugging Face Hub file layout. Cache entries
// are never handed out directly: every Resolve returns a deep copy, so a
// caller may modify its result, or pass a template override, without
// affecting other callers.
//
// Usage:
//
//	res, err := modeltemplate.DefaultCache.Resolve(ctx, modeltemplate.Request{
//		Model: "HuggingFaceH4/zephyr-7b-beta",
//	})
//	if err != nil {
//		return err
//	}
//	fmt.Println(res.SpecialTokens["eos_token"])
package modeltemplate
