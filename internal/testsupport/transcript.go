package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"clipper/internal/media"
)

// NewTranscript builds a transcript from (start, end, text) triples, failing
// the test on invalid input.
func NewTranscript(t testing.TB, lines ...media.Line) *media.Transcript {
	t.Helper()

	transcript, err := media.NewTranscript(lines)
	if err != nil {
		t.Fatalf("media.NewTranscript: %v", err)
	}
	return transcript
}

// WriteSRT writes an SRT file with the given content under dir and returns
// its path.
func WriteSRT(t testing.TB, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
