// Package main hosts the clipper CLI entrypoint and command graph.
//
// The Cobra-based command tree covers scene splitting, ingest ledger
// inspection and retries, environment status checks, configuration
// scaffolding, and running the daemon in the foreground. It centralizes
// configuration resolution and logging setup so subcommands can focus on
// user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
