// Package workflow schedules ingest work: a pool of worker goroutines pulls
// deliveries from the transport and drives each one through the consumer,
// with per-job failure isolation and graceful shutdown.
package workflow
