// Package daemon wires the ingest services into a single lifecycle with
// flock-based locking to prevent multiple concurrent daemon instances.
package daemon
