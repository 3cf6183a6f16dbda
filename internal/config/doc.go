// Package config loads, normalizes, and validates clipper configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the daemon and CLI need: directories, LLM credentials, splitter thresholds,
// worker counts, retry budgets, and the job staleness timeout that governs
// crash-recovery re-admission.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
