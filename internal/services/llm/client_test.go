package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": `{"ok":true}`,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestClientProposeBoundariesSortsOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": `{"boundaries":[{"timestamp":300.0,"rationale":"office storyline"},{"timestamp":120.5,"rationale":"kitchen argument ends"}]}`,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	proposals, err := client.ProposeBoundaries(context.Background(), "[0.0 - 10.0] hello", 600)
	if err != nil {
		t.Fatalf("ProposeBoundaries returned error: %v", err)
	}
	if len(proposals) != 2 {
		t.Fatalf("expected 2 proposals, got %d", len(proposals))
	}
	if proposals[0].Timestamp != 120.5 || proposals[1].Timestamp != 300.0 {
		t.Fatalf("expected sorted proposals, got %#v", proposals)
	}
	if proposals[0].Rationale != "kitchen argument ends" {
		t.Fatalf("unexpected rationale: %q", proposals[0].Rationale)
	}
}

func TestClientProposeBoundariesCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": "```json\n{\"boundaries\":[{\"timestamp\":42.0,\"rationale\":\"scene change\"}]}\n```",
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	proposals, err := client.ProposeBoundaries(context.Background(), "[0.0 - 10.0] hello", 90)
	if err != nil {
		t.Fatalf("ProposeBoundaries returned error: %v", err)
	}
	if len(proposals) != 1 || proposals[0].Timestamp != 42.0 {
		t.Fatalf("unexpected proposals: %#v", proposals)
	}
}

func TestClientExtractSpansNormalizesLabels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": `{"spans":[{"label":" Run ","part_of_speech":"Verb","span_start":2,"span_end":9,"definition":"to move quickly on foot","evidence":"I running every morning"}]}`,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	spans, err := client.ExtractSpans(context.Background(), "I running every morning")
	if err != nil {
		t.Fatalf("ExtractSpans returned error: %v", err)
	}
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Label != "run" || spans[0].PartOfSpeech != "verb" {
		t.Fatalf("expected normalized label/pos, got %#v", spans[0])
	}
}

func TestClientExtractSpansEmptyText(t *testing.T) {
	client := NewClient(Config{APIKey: "test", Model: "demo"})
	spans, err := client.ExtractSpans(context.Background(), "   ")
	if err != nil {
		t.Fatalf("ExtractSpans returned error: %v", err)
	}
	if len(spans) != 0 {
		t.Fatalf("expected no spans for blank text, got %d", len(spans))
	}
}

func TestClientExtractSpansToolCallsArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "tool_calls",
					"message": map[string]any{
						"content": "",
						"tool_calls": []any{
							map[string]any{
								"type": "function",
								"id":   "call_1",
								"function": map[string]any{
									"name":      "extract_spans",
									"arguments": `{"spans":[{"label":"cafe","part_of_speech":"noun","span_start":17,"span_end":21,"definition":"small restaurant","evidence":"They run a small cafe."}]}`,
								},
							},
						},
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	spans, err := client.ExtractSpans(context.Background(), "They run a small cafe.")
	if err != nil {
		t.Fatalf("ExtractSpans returned error: %v", err)
	}
	if len(spans) != 1 || spans[0].Label != "cafe" {
		t.Fatalf("unexpected spans: %#v", spans)
	}
}

func TestClientEmptyContentHasSnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"message": map[string]any{
						"content": "",
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.ExtractSpans(context.Background(), "some text")
	if err == nil {
		t.Fatal("expected extract to fail")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": `{"boundaries":[]}`,
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	proposals, err := client.ProposeBoundaries(context.Background(), "[0.0 - 10.0] hello", 10)
	if err != nil {
		t.Fatalf("ProposeBoundaries returned error: %v", err)
	}
	if len(proposals) != 0 {
		t.Fatalf("expected empty proposals, got %#v", proposals)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}
