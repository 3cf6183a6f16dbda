// Package store persists clipper's durable state in SQLite: the ingest job
// ledger that makes event processing idempotent, and the catalog of videos,
// segments, fine units, and occurrences the pipeline produces.
package store
