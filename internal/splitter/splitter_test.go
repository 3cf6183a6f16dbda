package splitter_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"clipper/internal/ingest"
	"clipper/internal/media"
	"clipper/internal/splitter"
	"clipper/internal/testsupport"
)

func threeLineTranscript(t *testing.T) *media.Transcript {
	t.Helper()
	return testsupport.NewTranscript(t,
		media.Line{Start: 0, End: 2, Text: "Morning, everyone."},
		media.Line{Start: 2, End: 5, Text: "Did you hear about the cafe?"},
		media.Line{Start: 5, End: 10, Text: "They open next week."},
	)
}

func TestPartitionSnapsProposalToLineBoundary(t *testing.T) {
	transcript := threeLineTranscript(t)

	intervals, err := splitter.Partition(transcript, 10, []splitter.Proposal{
		{Timestamp: 4.9, Rationale: "topic change"},
	}, 5.0, 1.0)
	if err != nil {
		t.Fatalf("Partition returned error: %v", err)
	}
	if len(intervals) != 2 {
		t.Fatalf("expected 2 intervals, got %d: %#v", len(intervals), intervals)
	}
	if intervals[0].Start != 0 || intervals[0].End != 5 {
		t.Fatalf("expected [0,5), got [%v,%v)", intervals[0].Start, intervals[0].End)
	}
	if intervals[1].Start != 5 || intervals[1].End != 10 {
		t.Fatalf("expected [5,10), got [%v,%v)", intervals[1].Start, intervals[1].End)
	}
}

func TestPartitionDiscardsOutOfToleranceProposals(t *testing.T) {
	transcript := threeLineTranscript(t)

	// Nearest boundary to 3.6 is 5.0 at distance 1.4 (and 2.0 at 1.6), both
	// beyond a 1.0s tolerance, so the proposal is dropped.
	intervals, err := splitter.Partition(transcript, 10, []splitter.Proposal{
		{Timestamp: 3.6},
	}, 1.0, 1.0)
	if err != nil {
		t.Fatalf("Partition returned error: %v", err)
	}
	if len(intervals) != 1 {
		t.Fatalf("expected fallback single interval, got %#v", intervals)
	}
	if intervals[0].Start != 0 || intervals[0].End != 10 {
		t.Fatalf("expected [0,10), got [%v,%v)", intervals[0].Start, intervals[0].End)
	}
}

func TestPartitionIsContiguousAndGapFree(t *testing.T) {
	transcript := threeLineTranscript(t)

	intervals, err := splitter.Partition(transcript, 10, []splitter.Proposal{
		{Timestamp: 2.1},
		{Timestamp: 4.9},
		{Timestamp: 5.0}, // duplicate after snapping
	}, 0.5, 1.0)
	if err != nil {
		t.Fatalf("Partition returned error: %v", err)
	}
	if len(intervals) != 3 {
		t.Fatalf("expected 3 intervals, got %#v", intervals)
	}
	if intervals[0].Start != 0 {
		t.Fatalf("partition must start at 0, got %v", intervals[0].Start)
	}
	if intervals[len(intervals)-1].End != 10 {
		t.Fatalf("partition must end at duration, got %v", intervals[len(intervals)-1].End)
	}
	for i := 1; i < len(intervals); i++ {
		if intervals[i].Start != intervals[i-1].End {
			t.Fatalf("gap between interval %d and %d: %#v", i-1, i, intervals)
		}
	}
	boundaries := transcript.Boundaries()
	for _, interval := range intervals[:len(intervals)-1] {
		if !containsFloat(boundaries, interval.End) {
			t.Fatalf("cut %v is not a transcript line boundary", interval.End)
		}
	}
}

func TestPartitionEnforcesMinimumSceneDuration(t *testing.T) {
	transcript := threeLineTranscript(t)

	// A cut at 2.0 would create a 2s head interval; with a 3s floor it is
	// dropped while the 5.0 cut stays.
	intervals, err := splitter.Partition(transcript, 10, []splitter.Proposal{
		{Timestamp: 2.0},
		{Timestamp: 5.0},
	}, 0.5, 3.0)
	if err != nil {
		t.Fatalf("Partition returned error: %v", err)
	}
	if len(intervals) != 2 {
		t.Fatalf("expected 2 intervals, got %#v", intervals)
	}
	if intervals[0].End != 5 {
		t.Fatalf("expected surviving cut at 5.0, got %v", intervals[0].End)
	}
}

func TestPartitionRejectsInvalidInput(t *testing.T) {
	transcript := threeLineTranscript(t)
	if _, err := splitter.Partition(transcript, 0, nil, 5, 1); err == nil {
		t.Fatal("expected error for zero duration")
	}
	if _, err := splitter.Partition(nil, 10, nil, 5, 1); err == nil {
		t.Fatal("expected error for nil transcript")
	}
}

type stubProposer struct {
	proposals []splitter.Proposal
	err       error
}

func (s *stubProposer) ProposeBoundaries(ctx context.Context, transcriptText string, duration float64) ([]splitter.Proposal, error) {
	return s.proposals, s.err
}

type stubCutter struct {
	failRanges map[int]bool
	calls      int
}

func (s *stubCutter) Cut(ctx context.Context, source string, start, end float64, dest string) error {
	call := s.calls
	s.calls++
	if s.failRanges[call] {
		return errors.New("encoder exploded")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(fmt.Sprintf("clip %0.1f-%0.1f", start, end)), 0o644)
}

type stubPublisher struct {
	events []ingest.Event
	err    error
}

func (s *stubPublisher) Publish(ctx context.Context, event ingest.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func TestRunCutsAndPublishesEachInterval(t *testing.T) {
	transcript := threeLineTranscript(t)
	cutter := &stubCutter{}
	publisher := &stubPublisher{}
	s := splitter.New(
		&stubProposer{proposals: []splitter.Proposal{{Timestamp: 4.9}}},
		cutter,
		publisher,
		splitter.Config{SnapTolerance: 5, MinSceneSeconds: 1, OutputDir: t.TempDir()},
		nil,
	)

	result, err := s.Run(context.Background(), "/media/ep01.mp4", transcript, 10)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(result.Artifacts) != 2 || len(result.Failures) != 0 {
		t.Fatalf("expected 2 artifacts and no failures, got %#v", result)
	}
	if len(publisher.events) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(publisher.events))
	}
	first := publisher.events[0]
	if first.VideoUID != "ep01_scene_01" {
		t.Fatalf("unexpected video uid %q", first.VideoUID)
	}
	if first.Etag == "" || first.ID == "" {
		t.Fatalf("expected etag and event id, got %#v", first)
	}
	if publisher.events[0].Etag == publisher.events[1].Etag {
		t.Fatal("distinct clips must have distinct etags")
	}
}

func TestRunIsolatesPerIntervalFailures(t *testing.T) {
	transcript := threeLineTranscript(t)
	cutter := &stubCutter{failRanges: map[int]bool{0: true}}
	publisher := &stubPublisher{}
	s := splitter.New(
		&stubProposer{proposals: []splitter.Proposal{{Timestamp: 4.9}}},
		cutter,
		publisher,
		splitter.Config{SnapTolerance: 5, MinSceneSeconds: 1, OutputDir: t.TempDir()},
		nil,
	)

	result, err := s.Run(context.Background(), "/media/ep01.mp4", transcript, 10)
	if err == nil {
		t.Fatal("expected aggregate error when an interval fails")
	}
	if len(result.Failures) != 1 || result.Failures[0].Interval.Index != 0 {
		t.Fatalf("expected first interval to fail, got %#v", result.Failures)
	}
	if len(result.Artifacts) != 1 || result.Artifacts[0].Interval.Index != 1 {
		t.Fatalf("expected second interval to survive, got %#v", result.Artifacts)
	}
}

func TestRunFallsBackWhenProposerFails(t *testing.T) {
	transcript := threeLineTranscript(t)
	cutter := &stubCutter{}
	publisher := &stubPublisher{}
	s := splitter.New(
		&stubProposer{err: errors.New("model unavailable")},
		cutter,
		publisher,
		splitter.Config{SnapTolerance: 5, MinSceneSeconds: 1, OutputDir: t.TempDir()},
		nil,
	)

	result, err := s.Run(context.Background(), "/media/ep01.mp4", transcript, 10)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(result.Intervals) != 1 {
		t.Fatalf("expected single whole-episode interval, got %#v", result.Intervals)
	}
	if len(result.Artifacts) != 1 {
		t.Fatalf("expected one artifact, got %#v", result.Artifacts)
	}
}

func containsFloat(values []float64, target float64) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
