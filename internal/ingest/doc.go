// Package ingest contains the event-driven half of clipper: delivery events,
// the at-least-once transport abstraction with its in-process dev
// implementation, the consumer that admits deliveries through the job
// ledger, and the pipeline that processes admitted jobs to a terminal state.
package ingest
