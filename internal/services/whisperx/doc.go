// Package whisperx runs the WhisperX CLI to produce word-aligned transcripts
// for segment clips.
//
// Align invokes the binary, waits for its JSON output, and converts it into
// a validated transcript. A custom command runner can be injected for tests.
package whisperx
