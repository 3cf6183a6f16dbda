// Package daemonrun assembles the daemon process: configuration, logging,
// storage, external service adapters, and the worker pool, wired together
// behind a signal-aware run loop. Both cmd/clipperd and the CLI's daemon
// command use it.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"clipper/internal/config"
	"clipper/internal/daemon"
	"clipper/internal/ingest"
	"clipper/internal/logging"
	"clipper/internal/matcher"
	"clipper/internal/notifications"
	"clipper/internal/services"
	"clipper/internal/services/ffmpeg"
	"clipper/internal/services/llm"
	"clipper/internal/services/whisperx"
	"clipper/internal/store"
	"clipper/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the clipper daemon runtime loop and blocks until the context is
// cancelled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, "clipperd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}

	transport := ingest.NewDevTransport(time.Duration(cfg.Workflow.RedeliveryTimeoutSeconds) * time.Second)
	defer transport.Close()

	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	transcoder := ffmpeg.NewService(cfg.FFmpegBinary())
	aligner := whisperx.NewService(whisperx.Config{
		Binary:      cfg.WhisperXBinary(),
		Model:       cfg.ASR.Model,
		CUDAEnabled: cfg.ASR.CUDAEnabled,
		Language:    cfg.ASR.Language,
	})
	notifier := notifications.NewService(cfg)

	pipeline := ingest.NewPipeline(st, transcoder, aligner,
		matcher.New(matcher.NewLLMExtractor(llmClient), logger),
		notifier,
		ingest.PipelineConfig{
			ProcessingTimeout: time.Duration(cfg.Workflow.ProcessingTimeoutSeconds) * time.Second,
			Retry: services.RetryPolicy{
				MaxAttempts: cfg.Workflow.SubtaskRetryAttempts,
				BaseDelay:   time.Duration(cfg.Workflow.SubtaskRetryBaseDelayMs) * time.Millisecond,
				MaxDelay:    time.Duration(cfg.Workflow.SubtaskRetryMaxDelayMs) * time.Millisecond,
			},
			TranscodeDir:   transcodeDir(cfg),
			WorkDir:        cfg.Paths.StagingDir,
			SegmentSeconds: cfg.Transcode.SegmentSec,
			DefaultLang:    cfg.Workflow.DefaultSegmentLang,
		}, logger)

	consumer := ingest.NewConsumer(st, pipeline, ingest.ConsumerConfig{
		JobStaleTimeout: time.Duration(cfg.Workflow.JobStaleTimeoutSeconds) * time.Second,
	}, logger)

	manager := workflow.NewManager(cfg, transport, consumer, st, logger)
	d, err := daemon.New(cfg, st, manager, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and database access"))
		return err
	}

	<-signalCtx.Done()
	logger.Info("clipper daemon shutting down")
	return nil
}

func transcodeDir(cfg *config.Config) string {
	if cfg.Transcode.OutputDir != "" {
		return cfg.Transcode.OutputDir
	}
	return filepath.Join(cfg.Paths.DataDir, "renditions")
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
