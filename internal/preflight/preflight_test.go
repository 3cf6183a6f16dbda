package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"clipper/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = ""
	result := CheckLLM(context.Background(), "LLM", cfg.LLM)
	if result.Passed {
		t.Fatal("expected failure for missing API key")
	}
}

func TestCheckLLM_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.LLM.APIKey = "test"
	cfg.LLM.BaseURL = srv.URL

	result := CheckLLM(context.Background(), "LLM", cfg.LLM)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReportsDirectoryChecks(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.StagingDir = t.TempDir()
	cfg.Transcode.OutputDir = ""
	cfg.LLM.APIKey = ""

	results := RunAll(context.Background(), &cfg)
	// data dir + staging dir + LLM
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results[:2] {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if results[2].Passed {
		t.Error("expected LLM check to fail without an API key")
	}
}

func TestCheckSystemDeps_ListsRequiredBinaries(t *testing.T) {
	cfg := config.Default()
	results := CheckSystemDeps(context.Background(), &cfg)
	if len(results) != 2 {
		t.Fatalf("expected 2 dependency checks, got %d", len(results))
	}
	if results[0].Name != "FFmpeg" || results[1].Name != "WhisperX" {
		t.Fatalf("unexpected dependency names: %#v", results)
	}
}
