// Package ffmpeg wraps the ffmpeg binary for the pipeline's media
// operations: cutting scene clips, transcoding segments to HLS, and
// extracting alignment-ready audio.
//
// Invocations honor context cancellation and surface ffmpeg's stderr in
// returned errors. A custom command runner can be injected for tests.
package ffmpeg
