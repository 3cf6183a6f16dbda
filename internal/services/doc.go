// Package services defines shared utilities consumed by the ingest pipeline
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job identity, video UIDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (retryable vs fatal) uniform across sub-tasks.
//   - The bounded exponential-backoff Retry loop applied to transient
//     sub-task failures before they escalate to a job failure.
package services
