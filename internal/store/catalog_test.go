package store_test

import (
	"context"
	"testing"

	"clipper/internal/store"
	"clipper/internal/testsupport"
)

func TestEnsureVideoIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first, err := st.EnsureVideo(ctx, "uid-1", "Episode 1", "videos/ep01.mp4", 120)
	if err != nil {
		t.Fatalf("EnsureVideo failed: %v", err)
	}
	second, err := st.EnsureVideo(ctx, "uid-1", "Episode 1 (retry)", "videos/ep01.mp4", 120)
	if err != nil {
		t.Fatalf("second EnsureVideo failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected same video id, got %d and %d", first, second)
	}

	video, err := st.GetVideoByUID(ctx, "uid-1")
	if err != nil {
		t.Fatalf("GetVideoByUID failed: %v", err)
	}
	if video == nil || video.ID != first {
		t.Fatalf("unexpected video row: %#v", video)
	}
	if video.Title != "Episode 1" {
		t.Fatalf("expected original title preserved, got %q", video.Title)
	}
	if video.Status != store.VideoProcessing {
		t.Fatalf("expected processing status, got %s", video.Status)
	}
}

func TestUpdateVideoStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	videoID := testsupport.MustEnsureVideo(t, st, "uid-1", "Episode 1", 120)
	if err := st.UpdateVideoStatus(ctx, videoID, store.VideoReady); err != nil {
		t.Fatalf("UpdateVideoStatus failed: %v", err)
	}

	video, err := st.GetVideoByUID(ctx, "uid-1")
	if err != nil {
		t.Fatalf("GetVideoByUID failed: %v", err)
	}
	if video.Status != store.VideoReady {
		t.Fatalf("expected ready, got %s", video.Status)
	}
}

func TestSaveAnalysisPersistsSegmentsAndAnnotations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	videoID := testsupport.MustEnsureVideo(t, st, "uid-1", "Episode 1", 20)

	segments := []store.SegmentInput{
		{TStart: 0, TEnd: 10, Text: "I run every morning.", Lang: "en"},
		{TStart: 10, TEnd: 20, Text: "They run a small cafe.", Lang: "en"},
	}
	annotations := []store.AnnotationInput{
		{SegmentIndex: 0, Label: "run", PartOfSpeech: "verb", Definition: "move quickly on foot", Evidence: `{"span":"run"}`},
		{SegmentIndex: 1, Label: "run", PartOfSpeech: "verb", Definition: "operate or manage", Evidence: `{"span":"run"}`},
		{SegmentIndex: 1, Label: "cafe", PartOfSpeech: "noun", Definition: "small restaurant", Evidence: `{"span":"cafe"}`},
	}

	stats, err := st.SaveAnalysis(ctx, videoID, segments, annotations)
	if err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}
	if stats.Segments != 2 {
		t.Fatalf("expected 2 segments, got %d", stats.Segments)
	}
	if stats.FineUnitsCreated != 2 {
		t.Fatalf("expected 2 fine units created, got %d", stats.FineUnitsCreated)
	}
	if stats.Occurrences != 3 {
		t.Fatalf("expected 3 occurrences, got %d", stats.Occurrences)
	}

	// The same word in two segments shares one dictionary row.
	unit, err := st.FineUnitByLabel(ctx, "run", "verb")
	if err != nil {
		t.Fatalf("FineUnitByLabel failed: %v", err)
	}
	if unit == nil {
		t.Fatal("expected fine unit for run/verb")
	}
	if unit.Definition != "move quickly on foot" {
		t.Fatalf("expected first definition kept, got %q", unit.Definition)
	}

	persisted, err := st.SegmentsByVideo(ctx, videoID)
	if err != nil {
		t.Fatalf("SegmentsByVideo failed: %v", err)
	}
	if len(persisted) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(persisted))
	}
	if persisted[0].TStart != 0 || persisted[1].TStart != 10 {
		t.Fatalf("expected time-ordered segments, got %#v", persisted)
	}

	occurrences, err := st.OccurrencesBySegment(ctx, persisted[1].ID)
	if err != nil {
		t.Fatalf("OccurrencesBySegment failed: %v", err)
	}
	if len(occurrences) != 2 {
		t.Fatalf("expected 2 occurrences on second segment, got %d", len(occurrences))
	}
	for _, occ := range occurrences {
		if occ.Status != store.OccurrenceActive {
			t.Fatalf("expected active occurrence, got %q", occ.Status)
		}
	}
}

func TestSaveAnalysisReplayChangesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	videoID := testsupport.MustEnsureVideo(t, st, "uid-1", "Episode 1", 20)

	segments := []store.SegmentInput{
		{TStart: 0, TEnd: 10, Text: "I run every morning.", Lang: "en"},
	}
	annotations := []store.AnnotationInput{
		{SegmentIndex: 0, Label: "run", PartOfSpeech: "verb", Definition: "move quickly on foot", Evidence: `{"span":"run"}`},
	}

	if _, err := st.SaveAnalysis(ctx, videoID, segments, annotations); err != nil {
		t.Fatalf("first SaveAnalysis failed: %v", err)
	}
	stats, err := st.SaveAnalysis(ctx, videoID, segments, annotations)
	if err != nil {
		t.Fatalf("replay SaveAnalysis failed: %v", err)
	}
	if stats.FineUnitsCreated != 0 {
		t.Fatalf("expected no new fine units on replay, got %d", stats.FineUnitsCreated)
	}
	if stats.Occurrences != 0 || stats.OccurrencesSkipped != 1 {
		t.Fatalf("expected the occurrence to be skipped on replay, got %#v", stats)
	}

	persisted, err := st.SegmentsByVideo(ctx, videoID)
	if err != nil {
		t.Fatalf("SegmentsByVideo failed: %v", err)
	}
	if len(persisted) != 1 {
		t.Fatalf("expected 1 segment after replay, got %d", len(persisted))
	}
}

func TestSaveAnalysisRejectsOutOfRangeAnnotation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	videoID := testsupport.MustEnsureVideo(t, st, "uid-1", "Episode 1", 10)

	segments := []store.SegmentInput{
		{TStart: 0, TEnd: 10, Text: "Hello.", Lang: "en"},
	}
	annotations := []store.AnnotationInput{
		{SegmentIndex: 3, Label: "hello", PartOfSpeech: "interjection"},
	}

	if _, err := st.SaveAnalysis(ctx, videoID, segments, annotations); err == nil {
		t.Fatal("expected error for out-of-range segment index")
	}

	// The transaction must roll everything back, segments included.
	persisted, err := st.SegmentsByVideo(ctx, videoID)
	if err != nil {
		t.Fatalf("SegmentsByVideo failed: %v", err)
	}
	if len(persisted) != 0 {
		t.Fatalf("expected rollback to leave no segments, got %d", len(persisted))
	}
}

func TestNormalizeLang(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"", "en"},
		{"en", "en"},
		{"EN-us", "en-US"},
		{"ja", "ja"},
		{"not a tag", "en"},
	}
	for _, tc := range cases {
		if got := store.NormalizeLang(tc.raw); got != tc.want {
			t.Errorf("NormalizeLang(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
