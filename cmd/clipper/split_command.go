package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipper/internal/config"
	"clipper/internal/ingest"
	"clipper/internal/logging"
	"clipper/internal/matcher"
	"clipper/internal/media"
	"clipper/internal/notifications"
	"clipper/internal/services"
	"clipper/internal/services/ffmpeg"
	"clipper/internal/services/llm"
	"clipper/internal/services/whisperx"
	"clipper/internal/splitter"
	"clipper/internal/store"
)

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var duration float64
	var runIngest bool

	cmd := &cobra.Command{
		Use:   "split <video> <transcript.srt>",
		Short: "Split an episode into scenes and publish one event per scene",
		Long: `Split partitions an episode into contiguous scenes using its transcript,
cuts one clip per scene, and publishes a delivery event for each clip.

The scene boundaries come from the configured LLM proposer, snapped to
transcript line boundaries. When the proposer is unreachable the whole
episode becomes a single scene.

With --ingest the published events are processed immediately in this
process: each clip is transcoded, aligned, annotated, and persisted the
same way the daemon workers would.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			source := strings.TrimSpace(args[0])
			transcriptPath := strings.TrimSpace(args[1])
			if source == "" || transcriptPath == "" {
				return fmt.Errorf("video and transcript paths are required")
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return fmt.Errorf("setup logging: %w", err)
			}

			transcript, err := media.ParseSRTFile(transcriptPath)
			if err != nil {
				return fmt.Errorf("parse transcript: %w", err)
			}
			if duration <= 0 {
				duration = transcriptEndSeconds(transcript)
			}

			dir := strings.TrimSpace(outputDir)
			if dir == "" {
				dir = filepath.Join(cfg.Paths.DataDir, "scenes")
			}

			llmClient := llm.NewClient(llm.Config{
				APIKey:         cfg.LLM.APIKey,
				BaseURL:        cfg.LLM.BaseURL,
				Model:          cfg.LLM.Model,
				Referer:        cfg.LLM.Referer,
				Title:          cfg.LLM.Title,
				TimeoutSeconds: cfg.LLM.TimeoutSeconds,
			})
			cutter := ffmpeg.NewService(cfg.FFmpegBinary())
			transport := ingest.NewDevTransport(time.Duration(cfg.Workflow.RedeliveryTimeoutSeconds) * time.Second)
			defer transport.Close()

			sp := splitter.New(splitter.NewLLMProposer(llmClient), cutter, transport, splitter.Config{
				SnapTolerance:   cfg.Splitter.SnapToleranceSeconds,
				MinSceneSeconds: cfg.Splitter.MinSceneSeconds,
				OutputDir:       dir,
			}, logger)

			runCtx := cmd.Context()
			result, err := sp.Run(runCtx, source, transcript, duration)
			if err != nil {
				return fmt.Errorf("split %s: %w", source, err)
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(result.Artifacts))
			for _, artifact := range result.Artifacts {
				rows = append(rows, []string{
					fmt.Sprintf("%d", artifact.Interval.Index+1),
					fmt.Sprintf("%.2f", artifact.Interval.Start),
					fmt.Sprintf("%.2f", artifact.Interval.End),
					filepath.Base(artifact.ObjectKey),
					artifact.EventID,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Scene", "Start", "End", "Clip", "Event"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			for _, failure := range result.Failures {
				fmt.Fprintf(out, "scene %d [%.2f, %.2f) failed: %v\n",
					failure.Interval.Index+1, failure.Interval.Start, failure.Interval.End, failure.Err)
			}
			fmt.Fprintf(out, "Published %d of %d scenes\n", len(result.Artifacts), len(result.Intervals))

			notifier := notifications.NewService(cfg)
			if err := notifier.NotifySplitCompleted(runCtx, source, len(result.Artifacts), len(result.Failures)); err != nil {
				logger.Warn("split notification failed", logging.Error(err))
			}

			if len(result.Failures) > 0 {
				return fmt.Errorf("%d of %d scenes failed", len(result.Failures), len(result.Intervals))
			}
			if !runIngest {
				return nil
			}
			return ingestInline(cmd, cfg, logger, transport, llmClient, len(result.Artifacts))
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for the cut scene clips")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Episode duration in seconds (defaults to the last transcript timestamp)")
	cmd.Flags().BoolVar(&runIngest, "ingest", false, "Process the published events in this process instead of leaving them for the daemon")
	return cmd
}

// ingestInline drains the split run's events through the same consumer and
// pipeline the daemon workers use, one delivery at a time.
func ingestInline(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, transport *ingest.DevTransport, llmClient *llm.Client, pending int) error {
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	consumer := buildConsumer(cfg, st, llmClient, logger)

	runCtx := cmd.Context()
	out := cmd.OutOrStdout()
	failures := 0
	for i := 0; i < pending; i++ {
		delivery, err := transport.Receive(runCtx)
		if err != nil {
			return fmt.Errorf("receive event: %w", err)
		}
		event := delivery.Event()
		if err := consumer.Consume(runCtx, delivery); err != nil {
			failures++
			fmt.Fprintf(out, "ingest %s failed: %v\n", event.VideoUID, err)
			continue
		}
		fmt.Fprintf(out, "ingested %s\n", event.VideoUID)
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d events failed to ingest", failures, pending)
	}
	fmt.Fprintf(out, "Ingested %d scenes\n", pending)
	return nil
}

// buildConsumer assembles the ingest consumer exactly as the daemon does, so
// inline runs and worker runs share semantics.
func buildConsumer(cfg *config.Config, st *store.Store, llmClient *llm.Client, logger *slog.Logger) *ingest.Consumer {
	transcoder := ffmpeg.NewService(cfg.FFmpegBinary())
	aligner := whisperx.NewService(whisperx.Config{
		Binary:      cfg.WhisperXBinary(),
		Model:       cfg.ASR.Model,
		CUDAEnabled: cfg.ASR.CUDAEnabled,
		Language:    cfg.ASR.Language,
	})
	pipeline := ingest.NewPipeline(st, transcoder, aligner,
		matcher.New(matcher.NewLLMExtractor(llmClient), logger),
		notifications.NewService(cfg),
		ingest.PipelineConfig{
			ProcessingTimeout: time.Duration(cfg.Workflow.ProcessingTimeoutSeconds) * time.Second,
			Retry: services.RetryPolicy{
				MaxAttempts: cfg.Workflow.SubtaskRetryAttempts,
				BaseDelay:   time.Duration(cfg.Workflow.SubtaskRetryBaseDelayMs) * time.Millisecond,
				MaxDelay:    time.Duration(cfg.Workflow.SubtaskRetryMaxDelayMs) * time.Millisecond,
			},
			TranscodeDir:   renditionDir(cfg),
			WorkDir:        cfg.Paths.StagingDir,
			SegmentSeconds: cfg.Transcode.SegmentSec,
			DefaultLang:    cfg.Workflow.DefaultSegmentLang,
		}, logger)
	return ingest.NewConsumer(st, pipeline, ingest.ConsumerConfig{
		JobStaleTimeout: time.Duration(cfg.Workflow.JobStaleTimeoutSeconds) * time.Second,
	}, logger)
}

// transcriptEndSeconds is the fallback episode duration when no --duration
// flag is given: the end timestamp of the final transcript line.
func transcriptEndSeconds(transcript *media.Transcript) float64 {
	lines := transcript.Lines()
	return lines[len(lines)-1].End
}

func renditionDir(cfg *config.Config) string {
	if cfg.Transcode.OutputDir != "" {
		return cfg.Transcode.OutputDir
	}
	return filepath.Join(cfg.Paths.DataDir, "renditions")
}
