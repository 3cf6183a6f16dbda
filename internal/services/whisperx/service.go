package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"clipper/internal/media"
	"clipper/internal/services"
)

// Config captures runtime settings for WhisperX operations.
type Config struct {
	// Binary is the whisperx executable; resolved from PATH when empty.
	Binary string
	// Model is the WhisperX model to use (e.g. "large-v3").
	Model string
	// CUDAEnabled enables GPU acceleration.
	CUDAEnabled bool
	// Language forces the transcription language (ISO 639-1).
	Language string
}

// WhisperX configuration constants.
const (
	DefaultBinary  = "whisperx"
	DefaultModel   = "large-v3"
	BatchSize      = "4"
	OutputFormat   = "json"
	CPUDevice      = "cpu"
	CUDADevice     = "cuda"
	CPUComputeType = "float32"
)

// Service runs WhisperX to produce word-aligned transcripts for segments.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Align transcribes source and returns the timestamped transcript. outputDir
// is where WhisperX writes its JSON result; it defaults to the source's
// directory.
func (s *Service) Align(ctx context.Context, source, outputDir string) (*media.Transcript, error) {
	if source == "" {
		return nil, fmt.Errorf("whisperx align: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("whisperx align: ensure output dir: %w", err)
	}

	args := s.buildArgs(source, outputDir)
	if err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		return nil, fmt.Errorf("whisperx align: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	return LoadTranscript(jsonPath)
}

func (s *Service) buildArgs(source, outputDir string) []string {
	model := s.cfg.Model
	if model == "" {
		model = DefaultModel
	}
	args := []string{
		source,
		"--model", model,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
	}
	if lang := strings.TrimSpace(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

// run executes the binary and tags failures as external tool errors so the
// pipeline's bounded retry treats them as retryable.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		if err := s.commandRunner(ctx, name, args...); err != nil {
			return services.Wrap(services.ErrExternalTool, "whisperx", "", name, err)
		}
		return nil
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		detail := fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
		return services.Wrap(services.ErrExternalTool, "whisperx", "", name, detail)
	}
	return nil
}

// Word is a single word with timing from WhisperX output.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is one transcribed span from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

type whisperXPayload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload.Segments, nil
}

// LoadTranscript converts a WhisperX JSON file into a transcript. Segments
// with empty text are dropped.
func LoadTranscript(jsonPath string) (*media.Transcript, error) {
	segments, err := LoadSegments(jsonPath)
	if err != nil {
		return nil, err
	}
	lines := make([]media.Line, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		lines = append(lines, media.Line{Start: seg.Start, End: seg.End, Text: text})
	}
	return media.NewTranscript(lines)
}
