// Package gemini implements generation.Generator on Google's Gemini API.
//
// Prompts live in prompts/*.tmpl and are embedded into the binary. Structured
// artifacts are requested in JSON mode and validated before they are handed
// back; chat replies are free text. Transient API failures are retried with
// exponential backoff and jitter, while blocked content and malformed
// responses fail immediately.
package gemini
