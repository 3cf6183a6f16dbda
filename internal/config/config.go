package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for the daemon and CLI.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// LLM contains connection settings for the chat-completions endpoint that
// backs boundary proposals and span extraction.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Splitter contains scene boundary partitioning settings.
type Splitter struct {
	// SnapToleranceSeconds is the maximum distance a proposed cut may sit
	// from a transcript line boundary before it is discarded.
	SnapToleranceSeconds float64 `toml:"snap_tolerance_seconds"`
	// MinSceneSeconds is the floor enforced on every emitted interval.
	MinSceneSeconds float64 `toml:"min_scene_seconds"`
}

// ASR contains WhisperX alignment settings.
type ASR struct {
	Binary      string `toml:"binary"`
	Model       string `toml:"model"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	Language    string `toml:"language"`
}

// Transcode contains ffmpeg transcode settings for playable renditions.
type Transcode struct {
	Binary     string `toml:"binary"`
	OutputDir  string `toml:"output_dir"`
	SegmentSec int    `toml:"segment_seconds"`
}

// Workflow contains daemon scheduling and retry settings.
type Workflow struct {
	Workers                  int    `toml:"workers"`
	ErrorRetryInterval       int    `toml:"error_retry_interval"`
	JobStaleTimeoutSeconds   int    `toml:"job_stale_timeout_seconds"`
	ProcessingTimeoutSeconds int    `toml:"processing_timeout_seconds"`
	SubtaskRetryAttempts     int    `toml:"subtask_retry_attempts"`
	SubtaskRetryBaseDelayMs  int    `toml:"subtask_retry_base_delay_ms"`
	SubtaskRetryMaxDelayMs   int    `toml:"subtask_retry_max_delay_ms"`
	RedeliveryTimeoutSeconds int    `toml:"redelivery_timeout_seconds"`
	DefaultSegmentLang       string `toml:"default_segment_lang"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	SplitEvents    bool   `toml:"split_events"`
	IngestEvents   bool   `toml:"ingest_events"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipper.
//
// Configuration sections by subsystem:
//   - Paths: data, staging, and log directories
//   - LLM: shared chat-completions connection settings
//   - Splitter: scene boundary snapping and validation thresholds
//   - ASR: WhisperX alignment settings
//   - Transcode: ffmpeg rendition settings
//   - Workflow: worker count, staleness, and retry budgets
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Splitter      Splitter      `toml:"splitter"`
	ASR           ASR           `toml:"asr"`
	Transcode     Transcode     `toml:"transcode"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipper/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipper.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.StagingDir, c.Paths.LogDir}
	if strings.TrimSpace(c.Transcode.OutputDir) != "" {
		dirs = append(dirs, c.Transcode.OutputDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the SQLite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "clipper.db")
}

// FFmpegBinary returns the ffmpeg executable used for cutting and transcoding.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.Transcode.Binary) != "" {
		return c.Transcode.Binary
	}
	return "ffmpeg"
}

// WhisperXBinary returns the whisperx executable used for ASR alignment.
func (c *Config) WhisperXBinary() string {
	if strings.TrimSpace(c.ASR.Binary) != "" {
		return c.ASR.Binary
	}
	return "whisperx"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes path expansion for CLI helpers.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the embedded sample configuration to the given path.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
