package splitter

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"clipper/internal/ingest"
	"clipper/internal/logging"
	"clipper/internal/media"
	"clipper/internal/services"
)

// Proposal is one candidate cut timestamp with the proposer's reasoning.
type Proposal struct {
	Timestamp float64
	Rationale string
}

// BoundaryProposer supplies candidate scene cut timestamps for a transcript.
type BoundaryProposer interface {
	ProposeBoundaries(ctx context.Context, transcriptText string, duration float64) ([]Proposal, error)
}

// Cutter produces a standalone clip for one time range of the source video.
type Cutter interface {
	Cut(ctx context.Context, source string, start, end float64, dest string) error
}

// Publisher emits a delivery event for a stored scene artifact.
type Publisher interface {
	Publish(ctx context.Context, event ingest.Event) error
}

// Interval is one contiguous scene of the partition. Intervals are strictly
// ordered, gap-free, and cover [0, duration) exactly.
type Interval struct {
	Index int
	Start float64
	End   float64
}

// Duration returns the interval length in seconds.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// Config bounds how candidate cuts are snapped and filtered.
type Config struct {
	// SnapTolerance is the maximum distance, in seconds, a proposed cut may
	// move to reach the nearest transcript line boundary. Proposals farther
	// than this from any line boundary are discarded.
	SnapTolerance float64
	// MinSceneSeconds is the minimum duration of any emitted interval.
	MinSceneSeconds float64
	// OutputDir receives the cut scene clips.
	OutputDir string
}

// Artifact records one successfully cut and published scene.
type Artifact struct {
	Interval  Interval
	ObjectKey string
	Etag      string
	EventID   string
}

// Failure records one interval whose cut or publish step failed.
type Failure struct {
	Interval Interval
	Err      error
}

// Result aggregates a split run: everything that was cut and published, and
// everything that was not.
type Result struct {
	Intervals []Interval
	Artifacts []Artifact
	Failures  []Failure
}

// Splitter partitions an episode into scenes and produces one published
// artifact per scene.
type Splitter struct {
	proposer  BoundaryProposer
	cutter    Cutter
	publisher Publisher
	cfg       Config
	logger    *slog.Logger
}

// New constructs a splitter. A nil logger disables logging.
func New(proposer BoundaryProposer, cutter Cutter, publisher Publisher, cfg Config, logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Splitter{
		proposer:  proposer,
		cutter:    cutter,
		publisher: publisher,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "splitter"),
	}
}

// Partition turns proposed cut timestamps into a validated partition of
// [0, duration). Each proposal snaps to the nearest transcript line boundary
// within the tolerance window; out-of-tolerance proposals are discarded, as
// are snapped cuts that would create an interval shorter than minScene.
// Zero usable cuts yield a single interval covering the whole duration.
func Partition(transcript *media.Transcript, duration float64, proposals []Proposal, tolerance, minScene float64) ([]Interval, error) {
	if transcript == nil || transcript.Len() == 0 {
		return nil, services.Wrap(services.ErrValidation, "splitter", "partition", "transcript required", nil)
	}
	if duration <= 0 {
		return nil, services.Wrap(services.ErrValidation, "splitter", "partition",
			fmt.Sprintf("non-positive duration %.3f", duration), nil)
	}

	boundaries := transcript.Boundaries()
	snapped := make([]float64, 0, len(proposals))
	for _, proposal := range proposals {
		cut, ok := snapToBoundary(proposal.Timestamp, boundaries, tolerance)
		if !ok {
			continue
		}
		if cut <= 0 || cut >= duration {
			continue
		}
		snapped = append(snapped, cut)
	}
	sort.Float64s(snapped)
	snapped = dedupeFloats(snapped)

	// Greedy min-duration filter: keep a cut only when both the interval it
	// closes and the remaining tail stay above the threshold.
	cuts := make([]float64, 0, len(snapped))
	prev := 0.0
	for _, cut := range snapped {
		if cut-prev < minScene {
			continue
		}
		if duration-cut < minScene {
			continue
		}
		cuts = append(cuts, cut)
		prev = cut
	}

	edges := make([]float64, 0, len(cuts)+2)
	edges = append(edges, 0)
	edges = append(edges, cuts...)
	edges = append(edges, duration)

	intervals := make([]Interval, 0, len(edges)-1)
	for i := 0; i+1 < len(edges); i++ {
		if edges[i+1] <= edges[i] {
			return nil, services.Wrap(services.ErrValidation, "splitter", "partition",
				fmt.Sprintf("degenerate interval [%.3f, %.3f)", edges[i], edges[i+1]), nil)
		}
		intervals = append(intervals, Interval{Index: i, Start: edges[i], End: edges[i+1]})
	}
	return intervals, nil
}

// Run partitions the source video and cuts plus publishes one artifact per
// interval. A failed interval is recorded and skipped; the rest of the run
// continues. The returned error is non-nil only when at least one interval
// failed, summarizing the failures in aggregate.
func (s *Splitter) Run(ctx context.Context, source string, transcript *media.Transcript, duration float64) (Result, error) {
	var result Result

	proposals, err := s.proposer.ProposeBoundaries(ctx, renderTranscript(transcript), duration)
	if err != nil {
		if ctx.Err() != nil {
			return result, err
		}
		// Proposer outage degrades to a single whole-episode interval rather
		// than blocking the run.
		s.logger.Warn("boundary proposer failed, falling back to single interval",
			logging.Error(err))
		proposals = nil
	}

	intervals, err := Partition(transcript, duration, proposals, s.cfg.SnapTolerance, s.cfg.MinSceneSeconds)
	if err != nil {
		return result, err
	}
	result.Intervals = intervals
	s.logger.Info("partitioned episode",
		logging.Int("intervals", len(intervals)),
		logging.Int("proposals", len(proposals)))

	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	for _, interval := range intervals {
		dest := filepath.Join(s.cfg.OutputDir, fmt.Sprintf("%s_scene_%02d.mp4", stem, interval.Index+1))

		if err := s.cutter.Cut(ctx, source, interval.Start, interval.End, dest); err != nil {
			s.logger.Error("cut failed",
				logging.Int("interval", interval.Index),
				logging.Float64("start", interval.Start),
				logging.Float64("end", interval.End),
				logging.Error(err))
			result.Failures = append(result.Failures, Failure{Interval: interval, Err: err})
			continue
		}

		etag, err := fileEtag(dest)
		if err != nil {
			result.Failures = append(result.Failures, Failure{Interval: interval, Err: err})
			continue
		}

		event := ingest.NewEvent(dest, etag)
		if err := s.publisher.Publish(ctx, event); err != nil {
			result.Failures = append(result.Failures, Failure{Interval: interval, Err: err})
			continue
		}

		s.logger.Info("scene published",
			logging.Int("interval", interval.Index),
			logging.String(logging.FieldObjectKey, event.ObjectKey),
			logging.String(logging.FieldEtag, event.Etag),
			logging.String(logging.FieldVideoUID, event.VideoUID))
		result.Artifacts = append(result.Artifacts, Artifact{
			Interval:  interval,
			ObjectKey: event.ObjectKey,
			Etag:      event.Etag,
			EventID:   event.ID,
		})
	}

	if len(result.Failures) > 0 {
		return result, services.Wrap(services.ErrStageFailure, "splitter", "run",
			fmt.Sprintf("%d of %d intervals failed", len(result.Failures), len(intervals)), nil)
	}
	return result, nil
}

func snapToBoundary(timestamp float64, boundaries []float64, tolerance float64) (float64, bool) {
	if len(boundaries) == 0 {
		return 0, false
	}
	best := boundaries[0]
	bestDist := math.Abs(timestamp - best)
	for _, boundary := range boundaries[1:] {
		if dist := math.Abs(timestamp - boundary); dist < bestDist {
			best = boundary
			bestDist = dist
		}
	}
	if bestDist > tolerance {
		return 0, false
	}
	return best, true
}

func dedupeFloats(sorted []float64) []float64 {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, value := range sorted[1:] {
		if value != out[len(out)-1] {
			out = append(out, value)
		}
	}
	return out
}

func renderTranscript(transcript *media.Transcript) string {
	if transcript == nil {
		return ""
	}
	var b strings.Builder
	for _, line := range transcript.Lines() {
		fmt.Fprintf(&b, "[%.1f - %.1f] %s\n", line.Start, line.End, line.Text)
	}
	return b.String()
}

// fileEtag hashes the artifact's content, matching how object stores derive
// etags for single-part uploads.
func fileEtag(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("etag %s: %w", path, err)
	}
	defer f.Close()
	h := md5.New() //nolint:gosec
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("etag %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
