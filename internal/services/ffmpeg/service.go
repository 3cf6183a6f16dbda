package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"clipper/internal/services"
)

// DefaultBinary is the ffmpeg command resolved from PATH when no explicit
// path is configured.
const DefaultBinary = "ffmpeg"

// DefaultSegmentSeconds is the HLS chunk length used when none is configured.
const DefaultSegmentSeconds = 6

// Service wraps ffmpeg invocations for cutting scene clips and transcoding
// segments to HLS.
type Service struct {
	binary        string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates an ffmpeg service using the given binary path.
func NewService(binary string) *Service {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Service{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Binary returns the resolved ffmpeg binary for logging.
func (s *Service) Binary() string {
	return s.binary
}

// Cut re-encodes the [start, end) time range of source into a standalone
// clip at dest. Re-encoding (rather than stream copy) keeps cut points
// frame-accurate at scene boundaries.
func (s *Service) Cut(ctx context.Context, source string, start, end float64, dest string) error {
	if source == "" {
		return fmt.Errorf("ffmpeg cut: source required")
	}
	if end <= start {
		return fmt.Errorf("ffmpeg cut: invalid range [%0.2f, %0.2f)", start, end)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("ffmpeg cut: ensure output dir: %w", err)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(start),
		"-i", source,
		"-t", formatSeconds(end - start),
		"-c:v", "libx264",
		"-c:a", "aac",
		"-ac", "2",
		"-preset", "fast",
		dest,
	}
	if err := s.run(ctx, args...); err != nil {
		return fmt.Errorf("ffmpeg cut: %w", err)
	}
	return nil
}

// TranscodeHLS converts source into an HLS rendition under outputDir and
// returns the playlist path. segmentSec bounds chunk duration; values <= 0
// fall back to the default.
func (s *Service) TranscodeHLS(ctx context.Context, source, outputDir string, segmentSec int) (string, error) {
	if source == "" {
		return "", fmt.Errorf("ffmpeg transcode: source required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if segmentSec <= 0 {
		segmentSec = DefaultSegmentSeconds
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("ffmpeg transcode: ensure output dir: %w", err)
	}
	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	playlist := filepath.Join(outputDir, baseName+".m3u8")
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-preset", "fast",
		"-hls_time", strconv.Itoa(segmentSec),
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(outputDir, baseName+"_%03d.ts"),
		playlist,
	}
	if err := s.run(ctx, args...); err != nil {
		return "", fmt.Errorf("ffmpeg transcode: %w", err)
	}
	return playlist, nil
}

// ExtractAudio writes a mono 16kHz WAV of source's audio, the input format
// the aligner expects.
func (s *Service) ExtractAudio(ctx context.Context, source, dest string) error {
	if source == "" {
		return fmt.Errorf("ffmpeg extract audio: source required")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("ffmpeg extract audio: ensure output dir: %w", err)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := s.run(ctx, args...); err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w", err)
	}
	return nil
}

// run executes the binary and tags failures as external tool errors so the
// pipeline's bounded retry treats them as retryable.
func (s *Service) run(ctx context.Context, args ...string) error {
	if s.commandRunner != nil {
		if err := s.commandRunner(ctx, s.binary, args...); err != nil {
			return services.Wrap(services.ErrExternalTool, "ffmpeg", "", s.binary, err)
		}
		return nil
	}
	cmd := exec.CommandContext(ctx, s.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		detail := fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "", s.binary, detail)
	}
	return nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
