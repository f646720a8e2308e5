// Package llm provides an OpenAI-compatible chat client for transcript
// summarization.
//
// # Summarization Logic
//
// The client sends one transcript chunk at a time to the configured model
// with a structured prompt requesting JSON output. The response carries a
// prose summary of the chunk plus a list of discrete takeaway points; the
// summarize stage joins these across chunks into the final texts.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive JSON response.
// Client.SummarizeChunk: chunk-specific summarization (for the summarize stage).
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default).
// Context cancellation aborts retries immediately. Unparseable model output
// is a malformed-response error and is never retried.
package llm
