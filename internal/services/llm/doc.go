// Package llm provides an OpenRouter chat client for the model-backed steps
// of the pipeline.
//
// This package is used by:
//   - Scene splitting: propose candidate cut timestamps from a transcript
//   - Knowledge extraction: identify vocabulary spans in segment text
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive JSON response.
// Client.ProposeBoundaries: transcript -> candidate scene cuts.
// Client.ExtractSpans: segment text -> vocabulary span proposals.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default).
// Context cancellation aborts retries immediately.
package llm
