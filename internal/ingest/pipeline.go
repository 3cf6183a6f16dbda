package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"clipper/internal/logging"
	"clipper/internal/media"
	"clipper/internal/services"
	"clipper/internal/store"
)

// Transcoder produces playable renditions and extracted audio from a source
// clip.
type Transcoder interface {
	TranscodeHLS(ctx context.Context, source, outputDir string, segmentSec int) (string, error)
	ExtractAudio(ctx context.Context, source, dest string) error
}

// Aligner runs ASR alignment over an audio file and returns the timed
// transcript.
type Aligner interface {
	Align(ctx context.Context, source, outputDir string) (*media.Transcript, error)
}

// Annotator extracts fine-unit annotations from segment texts.
type Annotator interface {
	Annotate(ctx context.Context, segments []store.SegmentInput) ([]store.AnnotationInput, error)
}

// Notifier receives terminal pipeline outcomes. Implementations must tolerate
// being called with a cancelled context.
type Notifier interface {
	NotifyIngestCompleted(ctx context.Context, videoUID string, segments int) error
	NotifyIngestFailed(ctx context.Context, videoUID string, cause error) error
}

// PipelineConfig bounds a single job's processing.
type PipelineConfig struct {
	// ProcessingTimeout caps wall-clock time per job; exceeding it fails the
	// job permanently. Zero disables the cap.
	ProcessingTimeout time.Duration
	// Retry bounds local retries of the transcode and alignment sub-tasks.
	Retry services.RetryPolicy
	// TranscodeDir receives per-video HLS renditions.
	TranscodeDir string
	// WorkDir receives per-video scratch output (extracted audio, alignment
	// JSON).
	WorkDir string
	// SegmentSeconds is the HLS segment target duration.
	SegmentSeconds int
	// DefaultLang is the language recorded on segments, normalized to BCP-47.
	DefaultLang string
}

// Pipeline drives one admitted job from delivery event to terminal ledger
// state: concurrent transcode and alignment, knowledge matching, and a single
// transactional persistence of the results.
type Pipeline struct {
	store      *store.Store
	transcoder Transcoder
	aligner    Aligner
	annotator  Annotator
	notifier   Notifier
	cfg        PipelineConfig
	logger     *slog.Logger
}

// NewPipeline constructs a pipeline. A nil notifier disables notifications
// and a nil logger disables logging.
func NewPipeline(st *store.Store, transcoder Transcoder, aligner Aligner, annotator Annotator, notifier Notifier, cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = services.DefaultRetryPolicy()
	}
	return &Pipeline{
		store:      st,
		transcoder: transcoder,
		aligner:    aligner,
		annotator:  annotator,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Process runs the full ingest for one admitted event and always leaves the
// ledger in a terminal state: done on success, failed on any error. The
// returned error reports why a job failed; callers must ack the delivery
// either way because the ledger, not the queue, owns retry decisions.
func (p *Pipeline) Process(ctx context.Context, event Event) error {
	if p.cfg.ProcessingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.ProcessingTimeout)
		defer cancel()
	}
	ctx = services.WithJobKey(ctx, event.ObjectKey, event.Etag)
	ctx = services.WithVideoUID(ctx, event.VideoUID)
	ctx = services.WithRequestID(ctx, event.ID)
	logger := logging.WithContext(ctx, p.logger)

	started := time.Now()
	logger.Info("job started")

	videoID, err := p.prepare(ctx, event)
	if err != nil {
		return p.fail(ctx, logger, event, videoID, err)
	}

	transcript, playlist, err := p.renderAndAlign(ctx, logger, event)
	if err != nil {
		return p.fail(ctx, logger, event, videoID, err)
	}

	segments := p.buildSegments(transcript)
	if len(segments) == 0 {
		return p.fail(ctx, logger, event, videoID,
			services.Wrap(services.ErrValidation, "pipeline", "align", "transcript produced no segments", nil))
	}

	annotations, err := p.annotator.Annotate(ctx, segments)
	if err != nil {
		return p.fail(ctx, logger, event, videoID,
			services.Wrap(services.ErrStageFailure, "pipeline", "match", "annotation failed", err))
	}

	stats, err := p.store.SaveAnalysis(ctx, videoID, segments, annotations)
	if err != nil {
		return p.fail(ctx, logger, event, videoID,
			services.Wrap(services.ErrStageFailure, "pipeline", "persist", "save analysis", err))
	}

	duration := segments[len(segments)-1].TEnd
	if err := p.store.SetVideoDuration(ctx, videoID, duration); err != nil {
		return p.fail(ctx, logger, event, videoID, err)
	}
	if err := p.store.UpdateVideoStatus(ctx, videoID, store.VideoReady); err != nil {
		return p.fail(ctx, logger, event, videoID, err)
	}
	if _, err := p.store.CompleteJob(ctx, event.ObjectKey, event.Etag, store.JobDone, ""); err != nil {
		return p.fail(ctx, logger, event, videoID, err)
	}

	logger.Info("job completed",
		logging.Duration("elapsed", time.Since(started)),
		logging.Int("segments", stats.Segments),
		logging.Int("fine_units_created", stats.FineUnitsCreated),
		logging.Int("occurrences", stats.Occurrences),
		logging.Int("occurrences_skipped", stats.OccurrencesSkipped),
		logging.String("playlist", playlist))
	if p.notifier != nil {
		if err := p.notifier.NotifyIngestCompleted(ctx, event.VideoUID, stats.Segments); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}
	return nil
}

// prepare validates the source artifact and claims the video row.
func (p *Pipeline) prepare(ctx context.Context, event Event) (int64, error) {
	info, err := os.Stat(event.ObjectKey)
	if err != nil {
		return 0, services.Wrap(services.ErrNotFound, "pipeline", "prepare",
			fmt.Sprintf("source artifact %s", event.ObjectKey), err)
	}
	if info.IsDir() {
		return 0, services.Wrap(services.ErrValidation, "pipeline", "prepare",
			fmt.Sprintf("source artifact %s is a directory", event.ObjectKey), nil)
	}

	videoID, err := p.store.EnsureVideo(ctx, event.VideoUID, media.InferTitle(event.ObjectKey), event.ObjectKey, 0)
	if err != nil {
		return 0, err
	}
	if err := p.store.UpdateVideoStatus(ctx, videoID, store.VideoProcessing); err != nil {
		return videoID, err
	}
	if err := p.store.SetJobVideoID(ctx, event.ObjectKey, event.Etag, videoID); err != nil {
		return videoID, err
	}
	return videoID, nil
}

// renderAndAlign fans the transcode and alignment sub-tasks out concurrently
// and joins on both. Either one failing cancels the other; both are retried
// locally within the configured budget before the failure escalates.
func (p *Pipeline) renderAndAlign(ctx context.Context, logger *slog.Logger, event Event) (*media.Transcript, string, error) {
	groupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg           sync.WaitGroup
		playlist     string
		transcript   *media.Transcript
		transcodeErr error
		alignErr     error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		transcodeErr = services.Retry(groupCtx, p.cfg.Retry, func(ctx context.Context) error {
			out, err := p.transcoder.TranscodeHLS(ctx, event.ObjectKey, filepath.Join(p.cfg.TranscodeDir, event.VideoUID), p.cfg.SegmentSeconds)
			if err != nil {
				return err
			}
			playlist = out
			return nil
		})
		if transcodeErr != nil {
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		alignErr = services.Retry(groupCtx, p.cfg.Retry, func(ctx context.Context) error {
			out, err := p.align(ctx, event)
			if err != nil {
				return err
			}
			transcript = out
			return nil
		})
		if alignErr != nil {
			cancel()
		}
	}()
	wg.Wait()

	if err := firstCauseError(ctx, transcodeErr, alignErr); err != nil {
		return nil, "", services.Wrap(services.ErrStageFailure, "pipeline", "render", "transcode or alignment failed", err)
	}
	logger.Info("render and alignment complete",
		logging.String("playlist", playlist),
		logging.Int("lines", transcript.Len()))
	return transcript, playlist, nil
}

func (p *Pipeline) align(ctx context.Context, event Event) (*media.Transcript, error) {
	workDir := filepath.Join(p.cfg.WorkDir, event.VideoUID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	audio := filepath.Join(workDir, event.VideoUID+".wav")
	if err := p.transcoder.ExtractAudio(ctx, event.ObjectKey, audio); err != nil {
		return nil, err
	}
	return p.aligner.Align(ctx, audio, workDir)
}

func (p *Pipeline) buildSegments(transcript *media.Transcript) []store.SegmentInput {
	lang := store.NormalizeLang(p.cfg.DefaultLang)
	lines := transcript.Lines()
	segments := make([]store.SegmentInput, 0, len(lines))
	for _, line := range lines {
		segments = append(segments, store.SegmentInput{
			TStart: line.Start,
			TEnd:   line.End,
			Text:   line.Text,
			Lang:   lang,
		})
	}
	return segments
}

// fail records the terminal failure in the ledger and on the video row. The
// completion write uses a fresh context so a job that failed by timing out
// still reaches the failed state.
func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, event Event, videoID int64, cause error) error {
	logger.Error("job failed", logging.Error(cause))

	finalizeCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		finalizeCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
	}

	if videoID > 0 {
		if err := p.store.UpdateVideoStatus(finalizeCtx, videoID, store.VideoError); err != nil {
			logger.Error("record video error state", logging.Error(err))
		}
	}
	if _, err := p.store.CompleteJob(finalizeCtx, event.ObjectKey, event.Etag, store.JobFailed, cause.Error()); err != nil {
		logger.Error("record job failure", logging.Error(err))
	}
	if p.notifier != nil {
		if err := p.notifier.NotifyIngestFailed(finalizeCtx, event.VideoUID, cause); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}
	return cause
}

// firstCauseError picks the most informative error out of a fan-out join:
// sub-task errors beat the bare context errors produced by fail-fast
// cancellation.
func firstCauseError(ctx context.Context, errs ...error) error {
	var fallback error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return err
		}
		if fallback == nil {
			fallback = err
		}
	}
	return fallback
}
