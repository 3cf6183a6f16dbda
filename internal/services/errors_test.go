package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"clipper/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection reset")
	err := services.Wrap(services.ErrTransient, "asr", "align", "request failed", base)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", services.Wrap(services.ErrTransient, "s", "o", "", nil), true},
		{"external", services.Wrap(services.ErrExternalTool, "s", "o", "", nil), true},
		{"validation", services.Wrap(services.ErrValidation, "s", "o", "", nil), false},
		{"configuration", services.Wrap(services.ErrConfiguration, "s", "o", "", nil), false},
		{"stage failure", services.Wrap(services.ErrStageFailure, "s", "o", "", nil), false},
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := services.IsRetryable(tc.err); got != tc.want {
			t.Fatalf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	policy := services.RetryPolicy{MaxAttempts: 5, Sleep: func(time.Duration) {}}
	err := services.Retry(context.Background(), policy, func(context.Context) error {
		calls++
		return services.Wrap(services.ErrValidation, "splitter", "validate", "bad partition", nil)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call for non-retryable error, got %d", calls)
	}
}

func TestRetryExhaustsBudget(t *testing.T) {
	calls := 0
	var delays []time.Duration
	policy := services.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    15 * time.Millisecond,
		Sleep:       func(d time.Duration) { delays = append(delays, d) },
	}
	err := services.Retry(context.Background(), policy, func(context.Context) error {
		calls++
		return services.Wrap(services.ErrTransient, "transcode", "run", "flaky", nil)
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if len(delays) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(delays))
	}
	if delays[1] > 15*time.Millisecond {
		t.Fatalf("expected capped delay, got %v", delays[1])
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	policy := services.RetryPolicy{MaxAttempts: 4, Sleep: func(time.Duration) {}}
	err := services.Retry(context.Background(), policy, func(context.Context) error {
		calls++
		if calls < 3 {
			return services.Wrap(services.ErrTransient, "asr", "align", "hiccup", nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobKey(ctx, "clips/ep1_scene_01.mp4", "etag-a")
	ctx = services.WithVideoUID(ctx, "ep1_scene_01")
	ctx = services.WithStage(ctx, "persist")
	ctx = services.WithRequestID(ctx, "req-1")

	key, etag, ok := services.JobKeyFromContext(ctx)
	if !ok || key != "clips/ep1_scene_01.mp4" || etag != "etag-a" {
		t.Fatalf("unexpected job key: %q %q %v", key, etag, ok)
	}
	if uid, ok := services.VideoUIDFromContext(ctx); !ok || uid != "ep1_scene_01" {
		t.Fatalf("unexpected video uid: %q %v", uid, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "persist" {
		t.Fatalf("unexpected stage: %q %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("unexpected request id: %q %v", rid, ok)
	}
}
