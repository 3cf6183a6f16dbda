package preflight

import (
	"context"
	"strings"

	"clipper/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	if strings.TrimSpace(cfg.Transcode.OutputDir) != "" {
		results = append(results, CheckDirectoryAccess("Transcode output directory", cfg.Transcode.OutputDir))
	}

	results = append(results, CheckLLM(ctx, "LLM", cfg.LLM))

	return results
}
