package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipper/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "clipper")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Workflow.Workers != 4 {
		t.Fatalf("unexpected default worker count: %d", cfg.Workflow.Workers)
	}
	if cfg.Workflow.JobStaleTimeoutSeconds != 3600 {
		t.Fatalf("unexpected stale timeout: %d", cfg.Workflow.JobStaleTimeoutSeconds)
	}
	if cfg.Splitter.SnapToleranceSeconds != 5.0 {
		t.Fatalf("unexpected snap tolerance: %v", cfg.Splitter.SnapToleranceSeconds)
	}
	if cfg.LLM.BaseURL == "" {
		t.Fatal("expected default LLM base URL")
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "clipper.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestLoadParsesExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		"[workflow]",
		"workers = 2",
		"processing_timeout_seconds = 60",
		"job_stale_timeout_seconds = 120",
		"[logging]",
		`format = "json"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit config to be used, got resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Workflow.Workers != 2 {
		t.Fatalf("unexpected workers: %d", cfg.Workflow.Workers)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsStaleTimeoutBelowProcessingTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.ProcessingTimeoutSeconds = 600
	cfg.Workflow.JobStaleTimeoutSeconds = 300
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "job_stale_timeout_seconds") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected error on second CreateSample")
	}
}
